package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/cicdpoc/loadharness/pkg/metrics"
	"github.com/cicdpoc/loadharness/pkg/threshold"
)

const notAvailable = "N/A"

// Summary renders the text summary of a document.
type Summary struct {
	// Indent prefixes every line.
	Indent string

	ok    *color.Color
	fail  *color.Color
	label *color.Color
}

// NewSummary returns a Summary using the default one space indent. noColor
// disables ANSI colors regardless of the terminal.
func NewSummary(noColor bool) *Summary {
	s := &Summary{
		Indent: " ",
		ok:     color.New(color.FgGreen),
		fail:   color.New(color.FgRed),
		label:  color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{s.ok, s.fail, s.label} {
			c.DisableColor()
		}
	}
	return s
}

// Write prints the summary of doc followed by one line per threshold
// expression in results.
func (s *Summary) Write(w io.Writer, doc *Document, results threshold.Results) error {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		b.WriteString(s.Indent)
		b.WriteString(fmt.Sprintf(format, args...))
		b.WriteString("\n")
	}

	line("%s %s", s.ok.Sprint("✓"), s.label.Sprint("Load Test Summary"))
	line("  Scenarios: %d", len(doc.Metrics))
	line("  VUs: %s", peakVUs(doc.Options.Stages))
	line("  Duration: %dms", int64(math.Round(doc.State.TestRunDurationMs)))
	line("  Requests: %d", int64(s.value(doc, metrics.HTTPReqs, "count")))
	line("  Avg Response Time: %dms", round(s.value(doc, metrics.HTTPReqDuration, "avg")))
	line("  95th Percentile: %dms", round(s.value(doc, metrics.HTTPReqDuration, metrics.PercentileKey(95))))
	line("  Error Rate: %d%%", round(s.value(doc, metrics.HTTPReqFailed, "rate")*100))

	if len(results) > 0 {
		b.WriteString("\n")
		line("%s", s.label.Sprint("Thresholds"))
		for _, r := range results {
			mark, actual := s.ok.Sprint("✓"), notAvailable
			if !r.OK {
				mark = s.fail.Sprint("✗")
			}
			if r.Found {
				actual = fmt.Sprintf("%.4g", r.Actual)
			}
			line("  %s %s %s (actual: %s)", mark, r.Metric, r.Expression, actual)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (s *Summary) value(doc *Document, metric, aggregation string) float64 {
	v, ok := doc.Value(metric, aggregation)
	if !ok || math.IsNaN(v) {
		return 0
	}
	return v
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

// peakVUs returns the largest stage target, N/A when no stage has a
// positive target.
func peakVUs(stages []Stage) string {
	max := 0
	for _, st := range stages {
		if st.Target > max {
			max = st.Target
		}
	}
	if max == 0 {
		return notAvailable
	}
	return fmt.Sprintf("%d", max)
}
