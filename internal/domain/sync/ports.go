package sync

import (
	"context"

	"iotsync/internal/domain/record"
)

// LocalStore is the device-local durable table store.
type LocalStore interface {
	// Fetch returns every record of table matching all pairs of match.
	Fetch(ctx context.Context, table string, match record.Match) ([]record.Record, error)
	Insert(ctx context.Context, table string, rec record.Record) error
	// Update merges patch into every record of table matching match.
	Update(ctx context.Context, table string, patch record.Record, match record.Match) error
}

// Remote pushes and pulls table records against the cloud backends.
type Remote interface {
	Push(ctx context.Context, table string, rec record.Record) error
	Pull(ctx context.Context, table string) ([]record.Record, error)
}
