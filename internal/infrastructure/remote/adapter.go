package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slog"

	"iotsync/internal/domain/mapping"
	"iotsync/internal/domain/record"
)

// Adapter translates (table, record) pairs into calls on the backend the
// table is mapped to.
type Adapter struct {
	tables *mapping.Table
	flat   FlatStore
	docs   DocumentStore
	log    *slog.Logger
}

// NewAdapter builds an adapter. Either store may be nil when no mapped table
// uses that backend kind.
func NewAdapter(tables *mapping.Table, flat FlatStore, docs DocumentStore, log *slog.Logger) *Adapter {
	return &Adapter{
		tables: tables,
		flat:   flat,
		docs:   docs,
		log:    log.With("component", "remote_adapter"),
	}
}

// Push writes rec to the table's backend. For document tables without an id
// the created document id is written back into rec.
func (a *Adapter) Push(ctx context.Context, table string, rec record.Record) error {
	m, err := a.tables.Lookup(table)
	if err != nil {
		return err
	}

	switch m.Backend.Kind {
	case mapping.FlatKeyed:
		err = a.pushFlat(ctx, m, rec)
	case mapping.DocumentCollection:
		err = a.pushDocument(ctx, m, rec)
	default:
		err = fmt.Errorf("%w: %s", mapping.ErrInvalidMapping, m.Backend.Kind)
	}
	if err != nil {
		a.log.Error("push failed", "table", table, "error", err)
		return err
	}

	a.log.Debug("pushed record", "table", table, "key", rec.Key(record.FieldID, m.IDField))
	return nil
}

func (a *Adapter) pushFlat(ctx context.Context, m mapping.Mapping, rec record.Record) error {
	if a.flat == nil {
		return &BackendError{Op: "push", Table: m.Table, Err: ErrBackendUnavailable}
	}
	key := rec.Key(record.FieldID, m.IDField)
	if key == "" {
		return fmt.Errorf("push %s: %w", m.Table, record.ErrMissingKey)
	}
	if err := a.flat.Set(ctx, JoinPath(m.Backend.Locator, key), outbound(rec)); err != nil {
		return &BackendError{Op: "push", Table: m.Table, Err: err}
	}
	return nil
}

func (a *Adapter) pushDocument(ctx context.Context, m mapping.Mapping, rec record.Record) error {
	if a.docs == nil {
		return &BackendError{Op: "push", Table: m.Table, Err: ErrBackendUnavailable}
	}
	coll := m.Backend.Locator
	if id := rec.Key(record.FieldID); id != "" {
		if err := a.docs.Update(ctx, coll, id, documentFields(rec)); err != nil {
			return &BackendError{Op: "push", Table: m.Table, Err: err}
		}
		return nil
	}

	id, err := a.docs.Create(ctx, coll, documentFields(rec))
	if err != nil {
		return &BackendError{Op: "push", Table: m.Table, Err: err}
	}
	rec[record.FieldID] = id
	return nil
}

// Pull fetches every remote record of the table. The result is never nil.
func (a *Adapter) Pull(ctx context.Context, table string) ([]record.Record, error) {
	m, err := a.tables.Lookup(table)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	switch m.Backend.Kind {
	case mapping.FlatKeyed:
		records, err = a.pullFlat(ctx, m)
	case mapping.DocumentCollection:
		records, err = a.pullDocuments(ctx, m)
	default:
		err = fmt.Errorf("%w: %s", mapping.ErrInvalidMapping, m.Backend.Kind)
	}
	if err != nil {
		a.log.Error("pull failed", "table", table, "error", err)
		return nil, err
	}
	if records == nil {
		records = []record.Record{}
	}

	a.log.Debug("pulled records", "table", table, "count", len(records))
	return records, nil
}

func (a *Adapter) pullFlat(ctx context.Context, m mapping.Mapping) ([]record.Record, error) {
	if a.flat == nil {
		return nil, &BackendError{Op: "pull", Table: m.Table, Err: ErrBackendUnavailable}
	}
	data, err := a.flat.GetAll(ctx, m.Backend.Locator)
	if err != nil {
		return nil, &BackendError{Op: "pull", Table: m.Table, Err: err}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]record.Record, 0, len(keys))
	for _, key := range keys {
		rec := record.Record{}
		switch v := data[key].(type) {
		case map[string]any:
			rec.Merge(v)
		case record.Record:
			rec.Merge(v)
		default:
			rec["value"] = v
		}
		rec[record.FieldID] = key
		if m.IDField != "" && rec.Key(m.IDField) == "" {
			rec[m.IDField] = key
		}
		records = append(records, rec)
	}
	return records, nil
}

func (a *Adapter) pullDocuments(ctx context.Context, m mapping.Mapping) ([]record.Record, error) {
	if a.docs == nil {
		return nil, &BackendError{Op: "pull", Table: m.Table, Err: ErrBackendUnavailable}
	}
	docs, err := a.docs.List(ctx, m.Backend.Locator)
	if err != nil {
		return nil, &BackendError{Op: "pull", Table: m.Table, Err: err}
	}
	return docs, nil
}

// JoinPath joins flat-store path segments with "/".
func JoinPath(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "/")
}
