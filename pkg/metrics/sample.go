package metrics

import "time"

// Names of the metrics a run produces.
const (
	HTTPReqs          = "http_reqs"
	HTTPReqDuration   = "http_req_duration"
	HTTPReqFailed     = "http_req_failed"
	Iterations        = "iterations"
	IterationDuration = "iteration_duration"
	DataReceived      = "data_received"
	Checks            = "checks"
	VUs               = "vus"
	VUsMax            = "vus_max"
	Errors            = "errors"
)

type sampleKind uint8

const (
	requestSample sampleKind = iota
	checkSample
	iterationSample
	gaugeSample
)

// Sample is one measurement sent from a virtual user (or the scheduler) to
// the Processor.
type Sample struct {
	kind   sampleKind
	label  string
	value  float64
	status int
	failed bool
	bytes  int64
}

// Request describes one finished HTTP request.
type Request struct {
	Endpoint string
	Status   int
	Duration time.Duration
	// Failed is set for transport errors and statuses outside 200-399.
	Failed  bool
	BytesIn int64
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
