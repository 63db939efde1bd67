// Package pacing holds the think-time generators virtual users sleep on
// between requests.
package pacing

import (
	"context"
	"math/rand"
	"time"
)

// SleepTimeFn returns how long a virtual user should pause next.
type SleepTimeFn func() time.Duration

// Constant returns a generator that always yields d.
func Constant(d time.Duration) SleepTimeFn {
	return func() time.Duration {
		return d
	}
}

// Uniform returns a generator yielding durations in [0, max) drawn from r.
// A non-positive max always yields zero.
func Uniform(max time.Duration, r *rand.Rand) SleepTimeFn {
	if r == nil {
		panic("random number generator passed to uniform sleep generator was nil")
	}
	if max <= 0 {
		return Constant(0)
	}
	return func() time.Duration {
		return time.Duration(r.Int63n(int64(max)))
	}
}

// NewRand returns the generator for one virtual user. The per-user seed is
// derived from seed so runs with the same seed pause the same way; a zero seed
// uses the current time.
func NewRand(seed int64, vu int) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	initial := rand.New(rand.NewSource(seed))
	var s int64
	for i := 0; i <= vu; i++ {
		s = initial.Int63()
	}
	return rand.New(rand.NewSource(s))
}

// Sleep pauses for d or until ctx is done. It reports whether the full pause
// elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
