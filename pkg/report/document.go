// Package report renders the end-of-run artifacts: the JSON result document
// and the human readable text summary.
package report

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/cicdpoc/loadharness/load"
	"github.com/cicdpoc/loadharness/pkg/metrics"
	"github.com/cicdpoc/loadharness/pkg/threshold"
)

// DefaultExportPath is where the result document is written unless
// configured otherwise.
const DefaultExportPath = "load-test-results.json"

const indent = "  "

// Options records how the run was configured.
type Options struct {
	BaseURL    string              `json:"baseUrl"`
	Profile    string              `json:"profile"`
	Mode       string              `json:"mode"`
	Stages     []Stage             `json:"stages"`
	Thresholds map[string][]string `json:"thresholds"`
}

// Stage is a ramp stage as written to the document.
type Stage struct {
	Duration string `json:"duration"`
	Target   int    `json:"target"`
}

// NewOptions converts the run configuration into its document form.
func NewOptions(baseURL, profile, mode string, stages load.Stages, thresholds threshold.Set) Options {
	out := Options{
		BaseURL:    baseURL,
		Profile:    profile,
		Mode:       mode,
		Stages:     make([]Stage, len(stages)),
		Thresholds: thresholds.Raw(),
	}
	for i, st := range stages {
		out.Stages[i] = Stage{Duration: st.Duration.String(), Target: st.Target}
	}
	return out
}

// State holds run-level facts.
type State struct {
	TestRunDurationMs float64 `json:"testRunDurationMs"`
}

// Verdict is the outcome of one threshold expression.
type Verdict struct {
	OK bool `json:"ok"`
}

// Metric is an aggregated metric together with the verdicts of the
// thresholds bound to it.
type Metric struct {
	metrics.Metric
	Thresholds map[string]Verdict `json:"thresholds,omitempty"`
}

// Group is the check breakdown of the run.
type Group struct {
	Name   string          `json:"name"`
	Path   string          `json:"path"`
	Checks []metrics.Check `json:"checks"`
}

// Document is the complete result artifact.
type Document struct {
	Options   Options            `json:"options"`
	State     State              `json:"state"`
	Metrics   map[string]*Metric `json:"metrics"`
	Endpoints map[string]*Metric `json:"endpoints,omitempty"`
	RootGroup Group              `json:"root_group"`
}

// Build assembles the document from the final snapshot and threshold results.
func Build(opts Options, snap *metrics.Snapshot, results threshold.Results) *Document {
	doc := &Document{
		Options:   opts,
		State:     State{TestRunDurationMs: float64(snap.Duration) / float64(time.Millisecond)},
		Metrics:   make(map[string]*Metric, len(snap.Metrics)),
		RootGroup: Group{Checks: append([]metrics.Check{}, snap.Checks...)},
	}
	for name, m := range snap.Metrics {
		doc.Metrics[name] = &Metric{Metric: *m}
	}
	if len(snap.Endpoints) > 0 {
		doc.Endpoints = make(map[string]*Metric, len(snap.Endpoints))
		for name, m := range snap.Endpoints {
			doc.Endpoints[name] = &Metric{Metric: *m}
		}
	}
	for name, m := range doc.Metrics {
		for _, r := range results.ForMetric(name) {
			if m.Thresholds == nil {
				m.Thresholds = map[string]Verdict{}
			}
			m.Thresholds[r.Expression] = Verdict{OK: r.OK}
		}
	}
	sort.Slice(doc.RootGroup.Checks, func(i, j int) bool {
		return doc.RootGroup.Checks[i].Name < doc.RootGroup.Checks[j].Name
	})
	return doc
}

// Value looks up one aggregated value of a metric in the document.
func (d *Document) Value(metric, aggregation string) (float64, bool) {
	m, ok := d.Metrics[metric]
	if !ok {
		return 0, false
	}
	v, ok := m.Values[aggregation]
	return v, ok
}

// WriteJSON writes the document indented by two spaces.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	return errors.Wrap(enc.Encode(d), "could not encode result document")
}

// WriteFile writes the document to path, replacing any existing file.
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", path)
	}
	if err := d.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "could not close %s", path)
}
