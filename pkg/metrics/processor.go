package metrics

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultBufferSize = 1024

// ProcessorArgs configures a Processor.
type ProcessorArgs struct {
	// BufferSize is the capacity of the sample channel.
	BufferSize int
	// PrintInterval is how often intermediate stats are logged (0 to disable).
	PrintInterval time.Duration
	// Percentiles are reported for every trend on top of DefaultPercentiles.
	Percentiles []float64
	// Exporter, when set, mirrors every sample into Prometheus collectors.
	Exporter *Exporter
	Logger   *zap.Logger
}

type checkCount struct {
	name   string
	passes int64
	fails  int64
}

// Processor is the single aggregation point of a run. Virtual users submit
// samples over a channel; one goroutine folds them into the metric set, which
// is read only after CloseAndWait.
type Processor struct {
	args   *ProcessorArgs
	c      chan Sample
	wg     sync.WaitGroup
	logger *zap.Logger

	startTime   time.Time
	percentiles []float64

	duration     *statGroup
	byEndpoint   map[string]*statGroup
	iterDuration *statGroup
	reqCount     int64
	iterCount    int64
	bytesIn      int64
	failed       rateGroup
	errors       rateGroup
	checks       []*checkCount
	checkIndex   map[string]*checkCount
	gauges       map[string]*gauge
}

// NewProcessor returns a Processor; call Start before sending samples.
func NewProcessor(args *ProcessorArgs) *Processor {
	if args == nil {
		panic("Processor needs args")
	}
	logger := args.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		args:         args,
		logger:       logger,
		percentiles:  mergePercentiles(DefaultPercentiles, args.Percentiles),
		duration:     newStatGroup(),
		byEndpoint:   map[string]*statGroup{},
		iterDuration: newStatGroup(),
		checkIndex:   map[string]*checkCount{},
		gauges:       map[string]*gauge{},
	}
}

func mergePercentiles(a, b []float64) []float64 {
	seen := map[float64]bool{}
	out := make([]float64, 0, len(a)+len(b))
	for _, p := range append(append([]float64{}, a...), b...) {
		if p < 0 || p > 100 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Float64s(out)
	return out
}

// Start launches the aggregation goroutine.
func (sp *Processor) Start() {
	size := sp.args.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	sp.c = make(chan Sample, size)
	sp.startTime = time.Now()
	sp.wg.Add(1)
	go sp.process()
}

// SendRequest records one finished HTTP request.
func (sp *Processor) SendRequest(r Request) {
	sp.c <- Sample{
		kind:   requestSample,
		label:  r.Endpoint,
		value:  millis(r.Duration),
		status: r.Status,
		failed: r.Failed,
		bytes:  r.BytesIn,
	}
}

// SendCheck records the outcome of one named check.
func (sp *Processor) SendCheck(name string, ok bool) {
	sp.c <- Sample{kind: checkSample, label: name, failed: !ok}
}

// SendIteration records one completed iteration of a virtual user.
func (sp *Processor) SendIteration(d time.Duration) {
	sp.c <- Sample{kind: iterationSample, value: millis(d)}
}

// SendGauge records the current value of a gauge such as the active VU count.
func (sp *Processor) SendGauge(name string, v int) {
	sp.c <- Sample{kind: gaugeSample, label: name, value: float64(v)}
}

func (sp *Processor) process() {
	defer sp.wg.Done()

	var tick <-chan time.Time
	if sp.args.PrintInterval > 0 {
		ticker := time.NewTicker(sp.args.PrintInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	prevTime := sp.startTime
	prevRequestCount := int64(0)
	for {
		select {
		case s, ok := <-sp.c:
			if !ok {
				return
			}
			sp.fold(s)
		case now := <-tick:
			took := now.Sub(prevTime)
			intervalRate := float64(sp.reqCount-prevRequestCount) / took.Seconds()
			overallRate := float64(sp.reqCount) / now.Sub(sp.startTime).Seconds()
			sp.logger.Info("progress",
				zap.Int64("requests", sp.reqCount),
				zap.Int64("iterations", sp.iterCount),
				zap.Float64("interval_req_rate", intervalRate),
				zap.Float64("overall_req_rate", overallRate),
				zap.Float64("failed_rate", sp.failed.rate()),
				zap.Float64("error_rate", sp.errors.rate()),
				zap.String("http_req_duration", sp.duration.String()),
			)
			prevTime = now
			prevRequestCount = sp.reqCount
		}
	}
}

func (sp *Processor) fold(s Sample) {
	switch s.kind {
	case requestSample:
		sp.reqCount++
		sp.bytesIn += s.bytes
		sp.duration.push(s.value)
		if _, ok := sp.byEndpoint[s.label]; !ok {
			sp.byEndpoint[s.label] = newStatGroup()
		}
		sp.byEndpoint[s.label].push(s.value)
		sp.failed.push(s.failed)
	case checkSample:
		c, ok := sp.checkIndex[s.label]
		if !ok {
			c = &checkCount{name: s.label}
			sp.checkIndex[s.label] = c
			sp.checks = append(sp.checks, c)
		}
		if s.failed {
			c.fails++
		} else {
			c.passes++
		}
		sp.errors.push(s.failed)
	case iterationSample:
		sp.iterCount++
		sp.iterDuration.push(s.value)
	case gaugeSample:
		if _, ok := sp.gauges[s.label]; !ok {
			sp.gauges[s.label] = &gauge{}
		}
		sp.gauges[s.label].push(s.value)
	}
	if sp.args.Exporter != nil {
		sp.args.Exporter.observe(s)
	}
}

// CloseAndWait closes the sample channel and blocks until every queued
// sample has been folded in.
func (sp *Processor) CloseAndWait() {
	close(sp.c)
	sp.wg.Wait()
}
