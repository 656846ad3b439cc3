package sync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

// DefaultInterval is the background pass period.
const DefaultInterval = 30 * time.Second

// Scheduler runs Engine.RunOnce on a fixed interval. A tick that arrives
// while a pass is still running is skipped unless overlap is allowed.
type Scheduler struct {
	engine       *Engine
	log          *slog.Logger
	allowOverlap bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	inFlight atomic.Int32
	passes   sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

// WithOverlap lets ticks start a pass while an earlier one is still running.
func WithOverlap(allow bool) SchedulerOption {
	return func(s *Scheduler) {
		s.allowOverlap = allow
	}
}

func NewScheduler(engine *Engine, log *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		engine: engine,
		log:    log.With("component", "sync_scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins firing passes every interval, replacing any running loop.
// Passes run with ctx; Stop does not cancel a pass already started.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.log.Info("background sync started", "interval", interval, "allow_overlap", s.allowOverlap)
	go s.loop(loopCtx, ctx, interval, done)
}

// Stop halts future ticks. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		s.log.Info("background sync stopped")
	}
}

func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	return true
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Wait blocks until every pass started by the scheduler has returned.
func (s *Scheduler) Wait() {
	s.passes.Wait()
}

func (s *Scheduler) loop(loopCtx, passCtx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			s.fire(passCtx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	if s.allowOverlap {
		s.inFlight.Add(1)
	} else if !s.inFlight.CompareAndSwap(0, 1) {
		s.engine.skipTick()
		s.log.Warn("previous sync pass still running, tick skipped")
		return
	}

	s.passes.Add(1)
	go func() {
		defer s.passes.Done()
		defer s.inFlight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("sync pass panicked", "panic", r)
			}
		}()

		if err := s.engine.RunOnce(ctx); err != nil {
			s.log.Error("sync pass failed", "error", err)
		}
	}()
}
