// Package scenario implements the iteration body every virtual user runs in a
// loop: two profile-specific requests, their checks, and the think-time
// pauses between them.
package scenario

import (
	"context"
	"time"

	"github.com/cicdpoc/loadharness/load"
	"github.com/cicdpoc/loadharness/load/pacing"
	"github.com/cicdpoc/loadharness/pkg/client"
	"github.com/cicdpoc/loadharness/pkg/metrics"
	"github.com/cicdpoc/loadharness/pkg/profile"
)

const (
	defaultPause  = time.Second
	defaultJitter = 2 * time.Second
)

// Requester issues GET requests against the run's base URL.
type Requester interface {
	Get(ctx context.Context, path string) *client.Response
}

// Recorder receives request and check samples.
type Recorder interface {
	SendRequest(r metrics.Request)
	SendCheck(name string, ok bool)
}

// Iteration is one virtual user's loop body.
type Iteration = load.Iteration

// Config selects what an iteration does.
type Config struct {
	Profile profile.Profile
	Mode    profile.Mode
	// Pause is slept between the two requests and again after the second.
	Pause time.Duration
	// Jitter is the exclusive upper bound of the random pause ending each
	// iteration.
	Jitter time.Duration
	// Seed drives the random pauses; 0 uses the current time.
	Seed int64
}

// DefaultConfig returns the standard pacing for p under m.
func DefaultConfig(p profile.Profile, m profile.Mode) Config {
	return Config{Profile: p, Mode: m, Pause: defaultPause, Jitter: defaultJitter}
}

type step struct {
	endpoint profile.Endpoint
	checks   []Check
}

// Builder creates iterations for the resolved profile.
type Builder struct {
	cfg       Config
	steps     [2]step
	requester Requester
	recorder  Recorder
}

// NewBuilder prepares the step table for cfg.Profile once, so iterations do no
// per-loop profile inspection.
func NewBuilder(cfg Config, requester Requester, recorder Recorder) *Builder {
	return &Builder{
		cfg:       cfg,
		steps:     stepsFor(cfg.Profile, cfg.Mode),
		requester: requester,
		recorder:  recorder,
	}
}

func stepsFor(p profile.Profile, m profile.Mode) [2]step {
	eps := p.Endpoints()
	budgets := p.Budgets(m)
	switch p.Kind {
	case profile.KindHTTPBin:
		return [2]step{
			{
				endpoint: eps[0],
				checks: []Check{
					StatusIs("status endpoint returns 200", 200),
					FasterThan("status", budgets.A),
				},
			},
			{
				endpoint: eps[1],
				checks: []Check{
					StatusIs("json endpoint returns 200", 200),
					FasterThan("json", budgets.B),
					ValidJSON("json returns valid JSON"),
				},
			},
		}
	case profile.KindBackend:
		return [2]step{
			{
				endpoint: eps[0],
				checks: []Check{
					StatusIs("health check status is 200", 200),
					FasterThan("health check", budgets.A),
				},
			},
			{
				endpoint: eps[1],
				checks: []Check{
					StatusIs("hello API status is 200", 200),
					FasterThan("hello API", budgets.B),
					BodyContains("hello API returns expected message", ExpectedGreeting),
				},
			},
		}
	default:
		panic("unknown profile kind: " + p.Kind.String())
	}
}

// CheckNames lists the checks an iteration runs, in order.
func (b *Builder) CheckNames() []string {
	var names []string
	for _, st := range b.steps {
		for _, c := range st.checks {
			names = append(names, c.Name)
		}
	}
	return names
}

// NewIteration returns the loop body of virtual user vu.
func (b *Builder) NewIteration(vu int) Iteration {
	return &iteration{
		steps:     b.steps,
		requester: b.requester,
		recorder:  b.recorder,
		pause:     pacing.Constant(b.cfg.Pause),
		jitter:    pacing.Uniform(b.cfg.Jitter, pacing.NewRand(b.cfg.Seed, vu)),
	}
}

type iteration struct {
	steps     [2]step
	requester Requester
	recorder  Recorder
	pause     pacing.SleepTimeFn
	jitter    pacing.SleepTimeFn
}

// Run executes both steps. Every check of a step runs even when an earlier
// one failed; a cancelled ctx ends the iteration at the next request or pause.
func (it *iteration) Run(ctx context.Context) {
	for i, st := range it.steps {
		if i > 0 && !pacing.Sleep(ctx, it.pause()) {
			return
		}
		if !it.do(ctx, st) {
			return
		}
	}
	if !pacing.Sleep(ctx, it.pause()) {
		return
	}
	pacing.Sleep(ctx, it.jitter())
}

func (it *iteration) do(ctx context.Context, st step) bool {
	resp := it.requester.Get(ctx, st.endpoint.Path)
	if ctx.Err() != nil {
		return false
	}
	it.recorder.SendRequest(metrics.Request{
		Endpoint: st.endpoint.Name,
		Status:   resp.Status,
		Duration: resp.Duration,
		Failed:   resp.Failed(),
		BytesIn:  int64(len(resp.Body)),
	})
	for _, c := range st.checks {
		it.recorder.SendCheck(c.Name, c.Fn(resp))
	}
	return true
}

var _ load.IterationFactory = (*Builder)(nil)
