package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"iotsync/internal/domain/mapping"
	"iotsync/internal/domain/record"
)

// blockingRemote counts pulls and holds each one until release is closed.
type blockingRemote struct {
	pulls   atomic.Int32
	release chan struct{}
}

func (r *blockingRemote) Push(context.Context, string, record.Record) error {
	return nil
}

func (r *blockingRemote) Pull(ctx context.Context, _ string) ([]record.Record, error) {
	r.pulls.Add(1)
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []record.Record{}, nil
}

func newSchedulerEngine(rem Remote) *Engine {
	tables := mapping.MustNew(mapping.Mapping{Table: "familiars", Backend: mapping.Flat("familiars")})
	return NewEngine(tables, new(MockLocalStore), rem, slog.Default())
}

func TestScheduler_RunsPasses(t *testing.T) {
	rem := &blockingRemote{}
	s := NewScheduler(newSchedulerEngine(rem), slog.Default())

	s.Start(context.Background(), 5*time.Millisecond)
	assert.True(t, s.Running())

	assert.Eventually(t, func() bool { return rem.pulls.Load() >= 2 }, time.Second, time.Millisecond)

	s.Stop()
	s.Wait()
	assert.False(t, s.Running())

	after := rem.pulls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, rem.pulls.Load())
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(newSchedulerEngine(&blockingRemote{}), slog.Default())

	s.Stop()
	s.Start(context.Background(), time.Hour)
	s.Stop()
	s.Stop()

	assert.False(t, s.Running())
}

func TestScheduler_RestartReplacesLoop(t *testing.T) {
	rem := &blockingRemote{}
	s := NewScheduler(newSchedulerEngine(rem), slog.Default())

	s.Start(context.Background(), time.Hour)
	s.Start(context.Background(), 5*time.Millisecond)
	defer s.Stop()

	assert.True(t, s.Running())
	assert.Eventually(t, func() bool { return rem.pulls.Load() >= 1 }, time.Second, time.Millisecond)
}

func TestScheduler_SkipsOverlappingTicks(t *testing.T) {
	rem := &blockingRemote{release: make(chan struct{})}
	engine := newSchedulerEngine(rem)
	s := NewScheduler(engine, slog.Default())

	s.Start(context.Background(), 2*time.Millisecond)
	assert.Eventually(t, func() bool { return engine.Stats().SkippedTicks >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	close(rem.release)
	s.Wait()

	assert.Equal(t, int32(1), rem.pulls.Load())
	assert.Equal(t, 1, engine.Stats().Passes)
}

func TestScheduler_AllowOverlap(t *testing.T) {
	rem := &blockingRemote{release: make(chan struct{})}
	engine := newSchedulerEngine(rem)
	s := NewScheduler(engine, slog.Default(), WithOverlap(true))

	s.Start(context.Background(), 2*time.Millisecond)
	assert.Eventually(t, func() bool { return rem.pulls.Load() >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	close(rem.release)
	s.Wait()

	assert.Zero(t, engine.Stats().SkippedTicks)
}

func TestScheduler_StopLeavesPassRunning(t *testing.T) {
	rem := &blockingRemote{release: make(chan struct{})}
	engine := newSchedulerEngine(rem)
	s := NewScheduler(engine, slog.Default())

	s.Start(context.Background(), 2*time.Millisecond)
	require.Eventually(t, func() bool { return rem.pulls.Load() == 1 }, time.Second, time.Millisecond)

	s.Stop()
	assert.Zero(t, engine.Stats().Passes)

	close(rem.release)
	s.Wait()
	assert.Equal(t, 1, engine.Stats().Passes)
}
