package load

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Scheduler defaults.
const (
	DefaultTick         = 100 * time.Millisecond
	DefaultGracefulStop = 30 * time.Second
)

// Iteration is the loop body a virtual user repeats.
type Iteration interface {
	Run(ctx context.Context)
}

// IterationFactory creates the loop body of virtual user vu.
type IterationFactory interface {
	NewIteration(vu int) Iteration
}

// Recorder receives the samples the runner produces itself.
type Recorder interface {
	SendIteration(d time.Duration)
	SendGauge(name string, v int)
}

// RunnerConfig configures the ramp scheduler.
type RunnerConfig struct {
	Tick         time.Duration `yaml:"tick" mapstructure:"tick"`
	GracefulStop time.Duration `yaml:"graceful-stop" mapstructure:"graceful-stop"`
}

// AddToFlagSet adds command line flags needed by the RunnerConfig to the flag set.
func (c RunnerConfig) AddToFlagSet(fs *pflag.FlagSet) {
	fs.Duration("tick", DefaultTick, "How often the number of active virtual users is adjusted to the ramp")
	fs.Duration("graceful-stop", DefaultGracefulStop, "How long in-flight iterations may run after the schedule ends before they are aborted")
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.GracefulStop < 0 {
		c.GracefulStop = 0
	}
	return c
}

// Runner drives virtual users through a ramp schedule.
type Runner struct {
	cfg      RunnerConfig
	stages   Stages
	factory  IterationFactory
	recorder Recorder
	logger   *zap.Logger

	sched *scheduler
}

// NewRunner validates stages and returns a Runner ready to Run once.
func NewRunner(cfg RunnerConfig, stages Stages, factory IterationFactory, recorder Recorder, logger *zap.Logger) (*Runner, error) {
	if err := stages.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid stages")
	}
	if factory == nil || recorder == nil {
		return nil, errors.New("runner needs an iteration factory and a recorder")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg.withDefaults(),
		stages:   stages,
		factory:  factory,
		recorder: recorder,
		logger:   logger,
	}, nil
}

// Running returns the number of virtual user goroutines still alive.
func (r *Runner) Running() int {
	if r.sched == nil {
		return 0
	}
	return int(r.sched.running.Load())
}

// Run executes the schedule and returns its wall clock duration. Once the
// schedule ends, or ctx is cancelled, no new iteration starts; in-flight
// iterations get the graceful stop window before their requests are aborted.
// Run returns ctx.Err() when the run was interrupted.
func (r *Runner) Run(ctx context.Context) (time.Duration, error) {
	hardCtx, abort := context.WithCancel(ctx)
	defer abort()

	r.sched = newScheduler(hardCtx, r.factory, r.recorder)
	total := r.stages.TotalDuration()
	r.logger.Info("starting run",
		zap.Stringer("stages", r.stages),
		zap.Duration("duration", total),
		zap.Duration("graceful-stop", r.cfg.GracefulStop))

	start := time.Now()
	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()
	end := time.NewTimer(total)
	defer end.Stop()

	r.sched.adjust(r.stages.TargetAt(0))
loop:
	for {
		select {
		case <-ctx.Done():
			r.logger.Warn("run interrupted", zap.Error(ctx.Err()))
			break loop
		case <-end.C:
			break loop
		case now := <-ticker.C:
			r.sched.adjust(r.stages.TargetAt(now.Sub(start)))
		}
	}
	r.sched.adjust(0)

	done := make(chan struct{})
	go func() {
		r.sched.wait()
		close(done)
	}()
	grace := time.NewTimer(r.cfg.GracefulStop)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		r.logger.Warn("graceful stop expired, aborting in-flight iterations",
			zap.Int("vus", int(r.sched.running.Load())))
		abort()
		<-done
	}

	took := time.Since(start)
	r.logger.Info("run finished", zap.Duration("took", took))
	return took, ctx.Err()
}
