package load

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/cicdpoc/loadharness/pkg/metrics"
)

type vuHandle struct {
	id   int
	stop chan struct{}
}

// scheduler owns the set of active virtual users. adjust is only called
// from the runner goroutine.
type scheduler struct {
	hardCtx  context.Context
	factory  IterationFactory
	recorder Recorder

	vus     []*vuHandle
	wg      sync.WaitGroup
	running *atomic.Int64
}

func newScheduler(hardCtx context.Context, factory IterationFactory, recorder Recorder) *scheduler {
	return &scheduler{
		hardCtx:  hardCtx,
		factory:  factory,
		recorder: recorder,
		running:  atomic.NewInt64(0),
	}
}

// adjust grows or shrinks the active set to target. New users take the next
// free index; shrinking signals the highest indexes, which finish their
// current iteration before exiting.
func (s *scheduler) adjust(target int) {
	if target < 0 {
		target = 0
	}
	before := len(s.vus)
	for len(s.vus) < target {
		h := &vuHandle{id: len(s.vus), stop: make(chan struct{})}
		s.vus = append(s.vus, h)
		s.wg.Add(1)
		s.running.Inc()
		go s.runVU(h)
	}
	for len(s.vus) > target {
		last := s.vus[len(s.vus)-1]
		close(last.stop)
		s.vus = s.vus[:len(s.vus)-1]
	}
	if len(s.vus) != before {
		s.recorder.SendGauge(metrics.VUs, len(s.vus))
	}
}

func (s *scheduler) runVU(h *vuHandle) {
	defer s.wg.Done()
	defer s.running.Dec()

	it := s.factory.NewIteration(h.id)
	for {
		select {
		case <-h.stop:
			return
		case <-s.hardCtx.Done():
			return
		default:
		}
		start := time.Now()
		it.Run(s.hardCtx)
		if s.hardCtx.Err() != nil {
			return
		}
		s.recorder.SendIteration(time.Since(start))
	}
}

func (s *scheduler) wait() {
	s.wg.Wait()
}
