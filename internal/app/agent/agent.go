// Package agent assembles the on-device sync agent: the SQLite local store,
// the remote backends and the sync engine with its timer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/slog"

	"iotsync/internal/app/agent/config"
	"iotsync/internal/domain/mapping"
	"iotsync/internal/domain/record"
	"iotsync/internal/domain/sync"
	"iotsync/internal/infrastructure/remote"
	"iotsync/internal/infrastructure/storage/mongodb"
	"iotsync/internal/infrastructure/storage/postgres"
	"iotsync/internal/infrastructure/storage/sqlite"
	"iotsync/internal/utils/clock"
)

type App struct {
	config    *config.Config
	log       *slog.Logger
	clock     clock.Clock
	tables    *mapping.Table
	local     *sqlite.LocalStore
	engine    *sync.Engine
	scheduler *sync.Scheduler
	closers   []func(context.Context) error
}

type options struct {
	clock     clock.Clock
	observers []sync.Observer
	flat      remote.FlatStore
	docs      remote.DocumentStore
}

type Option func(*options)

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithObserver(obs sync.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithBackends replaces the configured remote drivers.
func WithBackends(flat remote.FlatStore, docs remote.DocumentStore) Option {
	return func(o *options) {
		o.flat = flat
		o.docs = docs
	}
}

// New opens the local store, connects the backends and re-queues every
// record left unsynced by a previous run.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}

	tables := mapping.Default()
	if cfg.TablesFile != "" {
		t, err := mapping.LoadFile(cfg.TablesFile)
		if err != nil {
			return nil, err
		}
		tables = t
	}

	app := &App{
		config: cfg,
		log:    log.With("component", "agent"),
		clock:  o.clock,
		tables: tables,
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	local, err := sqlite.New(ctx, cfg.DataPath, log)
	if err != nil {
		return nil, err
	}
	app.local = local
	app.closers = append(app.closers, func(context.Context) error { return local.Close() })

	flat, docs := o.flat, o.docs
	if flat == nil && docs == nil {
		if flat, docs, err = app.backends(ctx); err != nil {
			app.Close(ctx)
			return nil, err
		}
	}

	engineOpts := []sync.Option{
		sync.WithBatchSize(cfg.Sync.BatchSize),
		sync.WithClock(o.clock),
	}
	for _, obs := range o.observers {
		engineOpts = append(engineOpts, sync.WithObserver(obs))
	}

	adapter := remote.NewAdapter(tables, flat, docs, log)
	app.engine = sync.NewEngine(tables, local, adapter, log, engineOpts...)
	app.scheduler = sync.NewScheduler(app.engine, log, sync.WithOverlap(cfg.Sync.AllowOverlap))

	if _, err := app.engine.Recover(ctx); err != nil {
		app.log.Warn("recovery incomplete", "error", err)
	}

	return app, nil
}

func (a *App) backends(ctx context.Context) (remote.FlatStore, remote.DocumentStore, error) {
	var (
		flat remote.FlatStore
		docs remote.DocumentStore
	)

	switch a.config.Flat.Driver {
	case config.FlatHTTP:
		flat = remote.NewHTTPFlatStore(a.config.Flat.ServerAddress, a.config.Flat.APIKey, a.log)
	case config.FlatPostgres:
		storage, err := postgres.New(ctx, a.config.Flat.DatabaseURI, a.log)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return storage.Close() })
		flat = postgres.NewFlatRepository(storage.Pool(), a.log)
	case config.FlatMemory:
		flat = remote.NewMemoryFlatStore()
	default:
		return nil, nil, fmt.Errorf("unknown flat driver %q", a.config.Flat.Driver)
	}

	switch a.config.Doc.Driver {
	case config.DocMongo:
		client, err := mongodb.Connect(ctx, a.config.Doc.URI, a.log)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		docs = mongodb.NewDocumentRepository(mongodb.NewMongoProvider(client, a.config.Doc.Database), a.log)
	case config.DocMemory:
		docs = remote.NewMemoryDocumentStore()
	default:
		return nil, nil, fmt.Errorf("unknown doc driver %q", a.config.Doc.Driver)
	}

	a.log.Info("backends ready", "flat", a.config.Flat.Driver, "documents", a.config.Doc.Driver)
	return flat, docs, nil
}

func (a *App) Engine() *sync.Engine {
	return a.engine
}

func (a *App) Tables() *mapping.Table {
	return a.tables
}

// Save is the application write path. rec is stamped with the current time,
// flagged unsynced, upserted locally by identity and queued for delivery.
// An update queues the merged local row so fields the remote assigned, such
// as a document id, travel with it.
func (a *App) Save(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	m, err := a.tables.Lookup(table)
	if err != nil {
		return nil, err
	}

	rec = rec.Clone()
	rec.Touch(a.clock.Now())
	rec.SetSynced(false)

	match, ok := m.Match(rec)
	switch {
	case ok:
		existing, err := a.local.Fetch(ctx, table, match)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			merged := existing[0].Clone()
			merged.Merge(rec)
			rec = merged
			err = a.local.Update(ctx, table, rec, match)
		} else {
			err = a.local.Insert(ctx, table, rec)
		}
		if err != nil {
			return nil, err
		}
	case m.Backend.Kind == mapping.DocumentCollection:
		if err := a.local.Insert(ctx, table, rec); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s: %w", table, record.ErrMissingKey)
	}

	a.engine.EnqueueAndDrain(ctx, table, rec.Clone())
	return rec, nil
}

// Fetch reads local records of table.
func (a *App) Fetch(ctx context.Context, table string, match record.Match) ([]record.Record, error) {
	if _, err := a.tables.Lookup(table); err != nil {
		return nil, err
	}
	return a.local.Fetch(ctx, table, match)
}

// SyncOnce runs a single drain and pull pass, then drains again so local
// records that won a conflict during the pull are pushed before returning.
func (a *App) SyncOnce(ctx context.Context) error {
	err := a.engine.RunOnce(ctx)
	if a.engine.Queue().Len() > 0 {
		err = errors.Join(err, a.engine.Drain(ctx, 0))
	}
	return err
}

// StartSync starts the periodic timer at the configured interval.
func (a *App) StartSync(ctx context.Context) {
	a.scheduler.Start(ctx, a.config.Sync.Interval)
	a.log.Info("periodic sync started", "interval", a.config.Sync.Interval)
}

// Status is a point-in-time view of the agent.
type Status struct {
	Queue  map[string]int
	Local  map[string]int
	Stats  sync.Stats
	Tables []mapping.Mapping
}

func (a *App) Status(ctx context.Context) (Status, error) {
	local, err := a.local.Count(ctx)
	if err != nil {
		return Status{}, err
	}

	tables := make([]mapping.Mapping, 0, a.tables.Len())
	for _, name := range a.tables.Names() {
		m, _ := a.tables.Lookup(name)
		tables = append(tables, m)
	}

	return Status{
		Queue:  a.engine.Queue().Snapshot(),
		Local:  local,
		Stats:  a.engine.Stats(),
		Tables: tables,
	}, nil
}

// Close stops the timer, waits for a running pass and releases the stores.
func (a *App) Close(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
		a.scheduler.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
