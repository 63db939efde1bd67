package metrics

import (
	"fmt"
	"strconv"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// values are recorded in microseconds
	hdrMinValue    = 1
	hdrMaxValue    = 3600 * 1000 * 1000
	hdrSigFigs     = 3
	microsPerMilli = 1e3
)

// DefaultPercentiles are reported for every trend.
var DefaultPercentiles = []float64{90, 95}

// statGroup collects streaming statistics of a timing in milliseconds.
type statGroup struct {
	min   float64
	max   float64
	mean  float64
	sum   float64
	count int64

	latencyHDRHistogram *hdrhistogram.Histogram
}

func newStatGroup() *statGroup {
	return &statGroup{
		latencyHDRHistogram: hdrhistogram.New(hdrMinValue, hdrMaxValue, hdrSigFigs),
	}
}

// push updates the group with a new value.
func (s *statGroup) push(n float64) {
	if s.count == 0 {
		s.min = n
		s.max = n
	}
	if n < s.min {
		s.min = n
	}
	if n > s.max {
		s.max = n
	}
	s.sum += n

	// constant-space mean update:
	s.mean = (s.mean*float64(s.count) + n) / float64(s.count+1)
	s.count++

	v := int64(n * microsPerMilli)
	if v < 0 {
		v = 0
	} else if v > hdrMaxValue {
		v = hdrMaxValue
	}
	_ = s.latencyHDRHistogram.RecordValue(v)
}

// quantile returns the value at q (0-100) in milliseconds.
func (s *statGroup) quantile(q float64) float64 {
	if s.count == 0 {
		return 0
	}
	return float64(s.latencyHDRHistogram.ValueAtQuantile(q)) / microsPerMilli
}

func (s *statGroup) median() float64 {
	return s.quantile(50)
}

func (s *statGroup) values(percentiles []float64) map[string]float64 {
	vals := map[string]float64{
		"avg": s.mean,
		"min": s.min,
		"med": s.median(),
		"max": s.max,
	}
	for _, p := range percentiles {
		vals[PercentileKey(p)] = s.quantile(p)
	}
	return vals
}

// String makes a simple description of a statGroup.
func (s *statGroup) String() string {
	return fmt.Sprintf("min: %8.2fms, med: %8.2fms, mean: %8.2fms, max: %7.2fms, p95: %8.2fms, count: %d",
		s.min, s.median(), s.mean, s.max, s.quantile(95), s.count)
}

// PercentileKey is the value name of percentile p, e.g. "p(95)".
func PercentileKey(p float64) string {
	return "p(" + strconv.FormatFloat(p, 'f', -1, 64) + ")"
}

// rateGroup counts how many of the pushed values were true.
type rateGroup struct {
	trues int64
	total int64
}

func (r *rateGroup) push(b bool) {
	if b {
		r.trues++
	}
	r.total++
}

func (r *rateGroup) rate() float64 {
	if r.total == 0 {
		return 0
	}
	return float64(r.trues) / float64(r.total)
}

type gauge struct {
	value float64
	min   float64
	max   float64
	set   bool
}

func (g *gauge) push(v float64) {
	if !g.set || v < g.min {
		g.min = v
	}
	if !g.set || v > g.max {
		g.max = v
	}
	g.value = v
	g.set = true
}
