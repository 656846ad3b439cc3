package sync

import (
	"fmt"

	"iotsync/internal/domain/mapping"
)

// ErrUnmappedTable is returned for tables missing from the mapping. It is a
// configuration error and is never retried.
var ErrUnmappedTable = mapping.ErrUnmappedTable

// LocalStoreError wraps a failure of the device-local store.
type LocalStoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *LocalStoreError) Error() string {
	return fmt.Sprintf("local store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *LocalStoreError) Unwrap() error {
	return e.Err
}

func localErr(op, table string, err error) error {
	return &LocalStoreError{Op: op, Table: table, Err: err}
}
