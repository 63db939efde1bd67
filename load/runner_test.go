package load

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cicdpoc/loadharness/pkg/metrics"
)

type testRecorder struct {
	mu         sync.Mutex
	iterations int
	gauges     []int
}

func (r *testRecorder) SendIteration(_ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iterations++
}

func (r *testRecorder) SendGauge(name string, v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == metrics.VUs {
		r.gauges = append(r.gauges, v)
	}
}

func (r *testRecorder) snapshot() (int, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iterations, append([]int(nil), r.gauges...)
}

type funcIteration func(ctx context.Context)

func (f funcIteration) Run(ctx context.Context) { f(ctx) }

type testFactory struct {
	mu  sync.Mutex
	ids map[int]int
	run func(ctx context.Context)
}

func (f *testFactory) NewIteration(vu int) Iteration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids == nil {
		f.ids = map[int]int{}
	}
	f.ids[vu]++
	return funcIteration(f.run)
}

func sleepIteration(d time.Duration) func(ctx context.Context) {
	return func(ctx context.Context) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
}

func TestNewRunnerValidates(t *testing.T) {
	_, err := NewRunner(RunnerConfig{}, Stages{}, &testFactory{}, &testRecorder{}, nil)
	require.Error(t, err)
	_, err = NewRunner(RunnerConfig{}, Stages{{Duration: -time.Second, Target: 1}}, &testFactory{}, &testRecorder{}, nil)
	require.Error(t, err)
	_, err = NewRunner(RunnerConfig{}, DefaultStages(), nil, &testRecorder{}, nil)
	require.Error(t, err)
}

func TestRunnerRampsAndDrains(t *testing.T) {
	stages := Stages{
		{Duration: 150 * time.Millisecond, Target: 3},
		{Duration: 100 * time.Millisecond, Target: 3},
		{Duration: 150 * time.Millisecond, Target: 0},
	}
	rec := &testRecorder{}
	factory := &testFactory{run: sleepIteration(5 * time.Millisecond)}
	r, err := NewRunner(RunnerConfig{Tick: 5 * time.Millisecond, GracefulStop: time.Second}, stages, factory, rec, nil)
	require.NoError(t, err)

	took, err := r.Run(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, took, stages.TotalDuration())
	require.Equal(t, 0, r.Running())

	iterations, gauges := rec.snapshot()
	require.Greater(t, iterations, 0)
	require.NotEmpty(t, gauges)
	peak := 0
	for _, g := range gauges {
		if g > peak {
			peak = g
		}
	}
	require.Equal(t, 3, peak)
	require.Equal(t, 0, gauges[len(gauges)-1])
	for id := range factory.ids {
		require.Less(t, id, 3)
	}
}

func TestRunnerWaitsForInFlightIterations(t *testing.T) {
	stages := Stages{{Duration: 0, Target: 1}, {Duration: 30 * time.Millisecond, Target: 1}}
	rec := &testRecorder{}
	factory := &testFactory{run: func(context.Context) { time.Sleep(150 * time.Millisecond) }}
	r, err := NewRunner(RunnerConfig{Tick: 5 * time.Millisecond, GracefulStop: 2 * time.Second}, stages, factory, rec, nil)
	require.NoError(t, err)

	took, err := r.Run(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, took, 150*time.Millisecond)
	iterations, _ := rec.snapshot()
	require.Equal(t, 1, iterations)
}

func TestRunnerGracefulStopAbortsIterations(t *testing.T) {
	stages := Stages{{Duration: 0, Target: 2}, {Duration: 20 * time.Millisecond, Target: 2}}
	rec := &testRecorder{}
	factory := &testFactory{run: sleepIteration(time.Minute)}
	r, err := NewRunner(RunnerConfig{Tick: 5 * time.Millisecond, GracefulStop: 50 * time.Millisecond}, stages, factory, rec, nil)
	require.NoError(t, err)

	took, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Less(t, took, 5*time.Second)
	require.Equal(t, 0, r.Running())
	iterations, _ := rec.snapshot()
	require.Equal(t, 0, iterations, "aborted iterations must not be counted")
}

func TestRunnerInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &testRecorder{}
	factory := &testFactory{run: sleepIteration(time.Minute)}
	r, err := NewRunner(RunnerConfig{Tick: 5 * time.Millisecond}, Stages{{Duration: 0, Target: 1}, {Duration: time.Hour, Target: 1}}, factory, rec, nil)
	require.NoError(t, err)

	time.AfterFunc(30*time.Millisecond, cancel)
	took, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, took, 5*time.Second)
	require.Equal(t, 0, r.Running())
}

func TestSchedulerAdjust(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &testRecorder{}
	factory := &testFactory{run: sleepIteration(time.Millisecond)}
	s := newScheduler(ctx, factory, rec)

	s.adjust(3)
	s.adjust(3)
	s.adjust(1)
	require.Len(t, s.vus, 1)
	require.Equal(t, 0, s.vus[0].id)
	require.Eventually(t, func() bool { return s.running.Load() == 1 }, time.Second, time.Millisecond)

	s.adjust(2)
	require.Equal(t, 1, s.vus[1].id)
	s.adjust(-1)
	s.wait()

	_, gauges := rec.snapshot()
	require.Equal(t, []int{3, 1, 2, 0}, gauges)
	require.Equal(t, int64(0), s.running.Load())
}
