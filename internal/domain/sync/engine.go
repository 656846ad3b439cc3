package sync

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/exp/slog"

	"iotsync/internal/domain/mapping"
	"iotsync/internal/domain/record"
	"iotsync/internal/utils/clock"
)

// DefaultBatchSize bounds the entries taken per table by one drain.
const DefaultBatchSize = 25

// Engine owns the outbound queue and reconciles the local store with the
// remote backends. Multiple engines may coexist.
type Engine struct {
	tables    *mapping.Table
	local     LocalStore
	remote    Remote
	queue     *Queue
	clock     clock.Clock
	log       *slog.Logger
	batchSize int
	observers []Observer

	mu    sync.Mutex
	stats Stats
}

type Option func(*Engine)

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

func NewEngine(tables *mapping.Table, local LocalStore, remote Remote, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		tables:    tables,
		local:     local,
		remote:    remote,
		clock:     clock.Real{},
		log:       log.With("component", "sync_engine"),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.queue = NewQueue(e.clock)
	return e
}

func (e *Engine) Queue() *Queue {
	return e.queue
}

func (e *Engine) Tables() *mapping.Table {
	return e.tables
}

// Stats returns a copy of the counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Enqueue adds rec to the table's outbound sequence.
func (e *Engine) Enqueue(table string, rec record.Record) error {
	if _, err := e.tables.Lookup(table); err != nil {
		return err
	}
	e.queue.Enqueue(table, rec)
	return nil
}

// EnqueueAndDrain queues rec and attempts an immediate drain. Failures are
// logged; the record stays queued for the next drain.
func (e *Engine) EnqueueAndDrain(ctx context.Context, table string, rec record.Record) {
	if err := e.Enqueue(table, rec); err != nil {
		e.log.Error("enqueue rejected", "table", table, "error", err)
		return
	}
	if err := e.Drain(ctx, 0); err != nil {
		e.log.Warn("drain failed, record stays queued", "table", table, "error", err)
	}
}

// Drain takes one batch from every table that has pending entries and pushes
// each entry. Successful pushes are marked synced locally. Failed entries go
// to the end of their sequence and are not retried by this call. Only a
// context cancelled before the drain starts is reported.
func (e *Engine) Drain(ctx context.Context, batchSize int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = e.batchSize
	}

	for _, table := range e.queue.Tables() {
		for _, entry := range e.queue.Take(table, batchSize) {
			e.deliver(ctx, table, entry)
		}
	}
	return nil
}

func (e *Engine) deliver(ctx context.Context, table string, entry Entry) {
	rec := entry.Record
	err := e.pushAndMark(ctx, table, rec)
	key := e.key(table, rec)

	switch {
	case err == nil:
		e.log.Debug("record pushed", "table", table, "key", key)
		e.emit(Event{Kind: EventPushed, Table: table, Key: key})
	case permanent(err):
		e.log.Error("record dropped", "table", table, "key", key, "error", err)
		e.emit(Event{Kind: EventPushDropped, Table: table, Key: key, Err: err})
	default:
		e.queue.Requeue(table, entry)
		e.log.Warn("push failed, requeued", "table", table, "key", key, "attempts", entry.Attempts+1, "error", err)
		e.emit(Event{Kind: EventPushFailed, Table: table, Key: key, Err: err})
	}
}

// pushAndMark pushes rec and flags the local copy synced. A record without an
// identifier before the push is addressed by its scalar fields. A record that
// had no id before the push receives the id a document backend assigned to it.
func (e *Engine) pushAndMark(ctx context.Context, table string, rec record.Record) error {
	m, err := e.tables.Lookup(table)
	if err != nil {
		return err
	}

	match, keyed := m.Match(rec)
	if !keyed {
		match = scalarMatch(rec)
	}
	hadID := rec.Key(record.FieldID) != ""

	if err := e.remote.Push(ctx, table, rec); err != nil {
		return err
	}

	patch := record.Record{record.FieldSynced: 1}
	if id := rec.Key(record.FieldID); !hadID && id != "" {
		patch[record.FieldID] = id
	}
	if !keyed && (len(match) == 0 || patch[record.FieldID] == nil) {
		return nil
	}

	if err := e.local.Update(ctx, table, patch, match); err != nil {
		return localErr("update", table, err)
	}
	return nil
}

// Recover enqueues every local record still flagged unsynced. It closes the
// gap left by entries taken from the queue before a crash.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	var errs []error
	total := 0
	for _, table := range e.tables.Names() {
		pending, err := e.local.Fetch(ctx, table, record.Match{record.FieldSynced: 0})
		if err != nil {
			err = localErr("fetch", table, err)
			e.log.Error("recover failed", "table", table, "error", err)
			errs = append(errs, err)
			continue
		}
		for _, rec := range pending {
			e.queue.Enqueue(table, rec)
		}
		total += len(pending)
	}

	if total > 0 {
		e.log.Info("recovered unsynced records", "count", total)
	}
	return total, errors.Join(errs...)
}

// RunOnce drains the queue and then pulls and resolves every table.
func (e *Engine) RunOnce(ctx context.Context) error {
	start := e.clock.Now()
	err := errors.Join(e.Drain(ctx, 0), e.SyncAllTables(ctx))

	e.mu.Lock()
	e.stats.Passes++
	e.stats.LastPass = start
	e.mu.Unlock()

	if err != nil {
		e.log.Warn("sync pass finished with errors", "error", err)
	} else {
		e.log.Debug("sync pass finished", "pending", e.queue.Len())
	}
	return err
}

func (e *Engine) skipTick() {
	e.mu.Lock()
	e.stats.SkippedTicks++
	e.mu.Unlock()
}

func (e *Engine) emit(ev Event) {
	ev.At = e.clock.Now()

	e.mu.Lock()
	e.stats.count(ev)
	e.mu.Unlock()

	for _, o := range e.observers {
		o(ev)
	}
}

func (e *Engine) key(table string, rec record.Record) string {
	m, err := e.tables.Lookup(table)
	if err != nil {
		return rec.Key(record.FieldID)
	}
	_, key, _ := m.Identity(rec)
	return key
}

// permanent reports errors that retrying cannot fix.
func permanent(err error) bool {
	return errors.Is(err, ErrUnmappedTable) || errors.Is(err, record.ErrMissingKey)
}

// scalarMatch builds a filter from the plain fields of rec.
func scalarMatch(rec record.Record) record.Match {
	m := record.Match{}
	for k, v := range rec {
		if k == record.FieldSynced {
			continue
		}
		switch v.(type) {
		case string, bool, float64, int, int64:
			m[k] = v
		}
	}
	return m
}
