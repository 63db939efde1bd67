// Package smoke runs one-shot integration probes against the target before
// or instead of a load run.
package smoke

import (
	"context"
	"fmt"
	"io"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/cicdpoc/loadharness/pkg/client"
	"github.com/cicdpoc/loadharness/pkg/profile"
)

// NotFoundPath is a path no target serves.
const NotFoundPath = "/nonexistent-endpoint-12345"

// Requester issues GET requests against the target.
type Requester interface {
	Get(ctx context.Context, path string) *client.Response
}

// Status is the outcome of a probe.
type Status int

const (
	Passed Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "PASS"
	case Failed:
		return "FAIL"
	case Skipped:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// Probe is one request and the assertions made on its response.
type Probe struct {
	Name   string
	Path   string
	Verify func(*client.Response) error
	// AnyRefusedSkips skips the probe on connection refused even against a
	// remote target.
	AnyRefusedSkips bool
}

// Probes returns the probes for p, in run order.
func Probes(p profile.Profile) []Probe {
	eps := p.Endpoints()
	var probes []Probe
	switch p.Kind {
	case profile.KindHTTPBin:
		probes = []Probe{
			{Name: "status endpoint responds", Path: eps[0].Path, Verify: expectStatus(200)},
			{Name: "json endpoint responds with JSON", Path: eps[1].Path, Verify: all(
				expectStatus(200),
				expectContentType("application/json"),
				expectJSONObject,
			)},
		}
	case profile.KindBackend:
		probes = []Probe{
			{Name: "health endpoint responds", Path: eps[0].Path, Verify: expectStatus(200)},
			{Name: "hello endpoint responds with text", Path: eps[1].Path, Verify: all(
				expectStatus(200),
				expectBody,
			)},
		}
	default:
		panic("unknown profile kind: " + p.Kind.String())
	}
	return append(probes, Probe{
		Name:            "unknown endpoint returns 404",
		Path:            NotFoundPath,
		Verify:          expectStatus(404),
		AnyRefusedSkips: true,
	})
}

// Result is the outcome of one probe.
type Result struct {
	Probe    string
	Path     string
	Status   Status
	Duration time.Duration
	Err      error
}

// Results are the outcomes of a smoke run.
type Results []Result

// Failed reports whether any probe failed.
func (r Results) Failed() bool {
	for _, res := range r {
		if res.Status == Failed {
			return true
		}
	}
	return false
}

// Run executes every probe of p sequentially.
func Run(ctx context.Context, p profile.Profile, req Requester, logger *zap.Logger) Results {
	if logger == nil {
		logger = zap.NewNop()
	}
	var results Results
	for _, probe := range Probes(p) {
		resp := req.Get(ctx, probe.Path)
		res := Result{Probe: probe.Name, Path: probe.Path, Duration: resp.Duration}
		switch {
		case resp.Err != nil && isRefused(resp.Err) && (probe.AnyRefusedSkips || p.IsLocal()):
			res.Status = Skipped
			res.Err = resp.Err
			logger.Warn("target not running, skipping probe", zap.String("probe", probe.Name))
		case resp.Err != nil:
			res.Status = Failed
			res.Err = resp.Err
		default:
			if err := probe.Verify(resp); err != nil {
				res.Status = Failed
				res.Err = err
			}
		}
		results = append(results, res)
	}
	return results
}

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(err.Error(), "connection refused")
}

// Write prints one line per result.
func (r Results) Write(w io.Writer, noColor bool) error {
	pass, fail, skip := color.New(color.FgGreen), color.New(color.FgRed), color.New(color.FgYellow)
	if noColor {
		for _, c := range []*color.Color{pass, fail, skip} {
			c.DisableColor()
		}
	}
	for _, res := range r {
		var label string
		switch res.Status {
		case Passed:
			label = pass.Sprint(res.Status)
		case Failed:
			label = fail.Sprint(res.Status)
		default:
			label = skip.Sprint(res.Status)
		}
		line := fmt.Sprintf("%s %s (%s) %dms", label, res.Probe, res.Path, res.Duration.Milliseconds())
		if res.Err != nil {
			line += ": " + res.Err.Error()
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func all(fns ...func(*client.Response) error) func(*client.Response) error {
	return func(r *client.Response) error {
		for _, fn := range fns {
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	}
}

func expectStatus(code int) func(*client.Response) error {
	return func(r *client.Response) error {
		if r.Status != code {
			return errors.Errorf("got status %d want %d", r.Status, code)
		}
		return nil
	}
}

func expectContentType(substr string) func(*client.Response) error {
	return func(r *client.Response) error {
		if !strings.Contains(r.ContentType, substr) {
			return errors.Errorf("content type %q does not contain %q", r.ContentType, substr)
		}
		return nil
	}
}

func expectJSONObject(r *client.Response) error {
	var p fastjson.Parser
	v, err := p.ParseBytes(r.Body)
	if err != nil {
		return errors.Wrap(err, "body is not JSON")
	}
	if v.Type() != fastjson.TypeObject {
		return errors.Errorf("body is a JSON %s, want object", v.Type())
	}
	return nil
}

func expectBody(r *client.Response) error {
	if len(r.Body) == 0 {
		return errors.New("empty body")
	}
	return nil
}
