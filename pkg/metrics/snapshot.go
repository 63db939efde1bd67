package metrics

import (
	"sort"
	"time"
)

// Metric kinds and value contents as they appear in the result document.
const (
	TypeCounter = "counter"
	TypeGauge   = "gauge"
	TypeRate    = "rate"
	TypeTrend   = "trend"

	ContainsDefault = "default"
	ContainsTime    = "time"
	ContainsData    = "data"
)

// Metric is the aggregated state of one metric.
type Metric struct {
	Type     string             `json:"type"`
	Contains string             `json:"contains"`
	Values   map[string]float64 `json:"values"`
}

// Check is the pass/fail tally of one named check.
type Check struct {
	Name   string `json:"name"`
	Passes int64  `json:"passes"`
	Fails  int64  `json:"fails"`
}

// Snapshot is the final metric set of a run.
type Snapshot struct {
	Metrics map[string]*Metric
	// Endpoints holds http_req_duration broken down by endpoint name.
	Endpoints map[string]*Metric
	Checks    []Check
	Duration  time.Duration
}

// Snapshot builds the final metric set. It must only be called after
// CloseAndWait; took is the wall clock duration of the run.
func (sp *Processor) Snapshot(took time.Duration) *Snapshot {
	secs := took.Seconds()
	perSecond := func(n int64) float64 {
		if secs <= 0 {
			return 0
		}
		return float64(n) / secs
	}

	snap := &Snapshot{
		Metrics:   map[string]*Metric{},
		Endpoints: map[string]*Metric{},
		Duration:  took,
	}

	if sp.reqCount > 0 {
		snap.Metrics[HTTPReqs] = &Metric{
			Type:     TypeCounter,
			Contains: ContainsDefault,
			Values:   map[string]float64{"count": float64(sp.reqCount), "rate": perSecond(sp.reqCount)},
		}
		snap.Metrics[HTTPReqDuration] = &Metric{
			Type:     TypeTrend,
			Contains: ContainsTime,
			Values:   sp.duration.values(sp.percentiles),
		}
		snap.Metrics[HTTPReqFailed] = rateMetric(sp.failed)
		snap.Metrics[DataReceived] = &Metric{
			Type:     TypeCounter,
			Contains: ContainsData,
			Values:   map[string]float64{"count": float64(sp.bytesIn), "rate": perSecond(sp.bytesIn)},
		}
		for name, g := range sp.byEndpoint {
			snap.Endpoints[name] = &Metric{Type: TypeTrend, Contains: ContainsTime, Values: g.values(sp.percentiles)}
		}
	}
	if sp.iterCount > 0 {
		snap.Metrics[Iterations] = &Metric{
			Type:     TypeCounter,
			Contains: ContainsDefault,
			Values:   map[string]float64{"count": float64(sp.iterCount), "rate": perSecond(sp.iterCount)},
		}
		snap.Metrics[IterationDuration] = &Metric{
			Type:     TypeTrend,
			Contains: ContainsTime,
			Values:   sp.iterDuration.values(sp.percentiles),
		}
	}
	if sp.errors.total > 0 {
		snap.Metrics[Errors] = rateMetric(sp.errors)
		var checks rateGroup
		for _, c := range sp.checks {
			checks.trues += c.passes
			checks.total += c.passes + c.fails
			snap.Checks = append(snap.Checks, Check{Name: c.name, Passes: c.passes, Fails: c.fails})
		}
		snap.Metrics[Checks] = rateMetric(checks)
	}
	for name, g := range sp.gauges {
		snap.Metrics[name] = &Metric{
			Type:     TypeGauge,
			Contains: ContainsDefault,
			Values:   map[string]float64{"value": g.value, "min": g.min, "max": g.max},
		}
		if name == VUs {
			snap.Metrics[VUsMax] = &Metric{
				Type:     TypeGauge,
				Contains: ContainsDefault,
				Values:   map[string]float64{"value": g.max, "min": g.max, "max": g.max},
			}
		}
	}
	return snap
}

func rateMetric(r rateGroup) *Metric {
	return &Metric{
		Type:     TypeRate,
		Contains: ContainsDefault,
		Values: map[string]float64{
			"rate":   r.rate(),
			"passes": float64(r.trues),
			"fails":  float64(r.total - r.trues),
		},
	}
}

// Value looks up one aggregated value, e.g. ("http_req_duration", "p(95)").
func (s *Snapshot) Value(metric, aggregation string) (float64, bool) {
	m, ok := s.Metrics[metric]
	if !ok {
		return 0, false
	}
	v, ok := m.Values[aggregation]
	return v, ok
}

// MetricNames returns the names of all metrics in the snapshot, sorted.
func (s *Snapshot) MetricNames() []string {
	names := make([]string, 0, len(s.Metrics))
	for name := range s.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
