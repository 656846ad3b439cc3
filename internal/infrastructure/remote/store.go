package remote

import (
	"context"
	"errors"
	"fmt"

	"iotsync/internal/domain/record"
)

var (
	ErrBackendUnavailable = errors.New("remote backend not configured")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrEmptyPath          = errors.New("empty path")
)

// FlatStore is a hierarchical key store read and written wholesale per path.
type FlatStore interface {
	// GetAll returns the children of path keyed by their last path segment.
	// A path with no data yields a nil map and no error.
	GetAll(ctx context.Context, path string) (map[string]any, error)
	// Set overwrites the value stored at path.
	Set(ctx context.Context, path string, value map[string]any) error
}

// DocumentStore holds individually addressable documents in named collections.
// Returned documents carry their identifier in the "id" field.
type DocumentStore interface {
	List(ctx context.Context, collection string) ([]record.Record, error)
	Get(ctx context.Context, collection, id string) (record.Record, error)
	Create(ctx context.Context, collection string, fields record.Record) (string, error)
	Update(ctx context.Context, collection, id string, fields record.Record) error
}

// BackendError wraps a failure reported by a remote backend. It is transient
// from the engine's point of view: pushes are requeued, pulls retried next pass.
type BackendError struct {
	Op    string
	Table string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// outbound returns the payload written to a backend. The synced flag is
// local bookkeeping and never leaves the device.
func outbound(rec record.Record) record.Record {
	out := rec.Clone()
	delete(out, record.FieldSynced)
	return out
}

// documentFields strips the identifier before a document body is written.
func documentFields(rec record.Record) record.Record {
	fields := outbound(rec)
	delete(fields, record.FieldID)
	return fields
}
