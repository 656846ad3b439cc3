package sync

import (
	"context"
	"errors"
	"fmt"

	"iotsync/internal/domain/record"
)

// ResolveConflict reconciles one remote record with its local counterpart
// using last-writer-wins on last_modified. It returns the record that won.
//
// Without a local match the remote record is inserted as is. A strictly newer
// remote overwrites the local copy. A strictly newer local copy is queued for
// push and the local store is left untouched. Equal instants change nothing,
// and neither does a last_modified on either side that cannot be parsed.
func (e *Engine) ResolveConflict(ctx context.Context, table string, remote record.Record) (record.Record, Decision, error) {
	m, err := e.tables.Lookup(table)
	if err != nil {
		return nil, "", err
	}
	match, ok := m.Match(remote)
	if !ok {
		return nil, "", fmt.Errorf("resolve %s: %w", table, record.ErrMissingKey)
	}

	found, err := e.local.Fetch(ctx, table, match)
	if err != nil {
		return nil, "", localErr("fetch", table, err)
	}

	if len(found) == 0 {
		if err := e.local.Insert(ctx, table, remote); err != nil {
			return nil, "", localErr("insert", table, err)
		}
		return e.resolved(table, remote, DecisionInserted), DecisionInserted, nil
	}

	local := found[0]
	remoteAt, remoteOK := remote.Timestamp()
	localAt, localOK := local.Timestamp()

	switch {
	case !remoteOK || !localOK:
		e.log.Warn("unparsable last_modified, record left as is", "table", table, "key", e.key(table, local))
		return e.resolved(table, local, DecisionNoop), DecisionNoop, nil
	case remoteAt.After(localAt):
		patch := remote.Clone()
		patch.SetSynced(true)
		if err := e.local.Update(ctx, table, patch, match); err != nil {
			return nil, "", localErr("update", table, err)
		}
		return e.resolved(table, remote, DecisionRemoteWins), DecisionRemoteWins, nil
	case localAt.After(remoteAt):
		e.queue.Enqueue(table, local)
		return e.resolved(table, local, DecisionLocalWins), DecisionLocalWins, nil
	default:
		return e.resolved(table, local, DecisionNoop), DecisionNoop, nil
	}
}

func (e *Engine) resolved(table string, winner record.Record, d Decision) record.Record {
	key := e.key(table, winner)
	e.log.Debug("record resolved", "table", table, "key", key, "decision", d)
	e.emit(Event{Kind: EventResolved, Table: table, Key: key, Decision: d})
	return winner
}

// SyncTable pulls the table and resolves every remote record in order. A
// failing record does not stop the rest; the failures are returned joined.
func (e *Engine) SyncTable(ctx context.Context, table string) error {
	remote, err := e.remote.Pull(ctx, table)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.stats.Pulled += len(remote)
	e.mu.Unlock()

	var errs []error
	for _, rec := range remote {
		if _, _, err := e.ResolveConflict(ctx, table, rec); err != nil {
			e.log.Error("resolve failed", "table", table, "key", e.key(table, rec), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncAllTables runs SyncTable for every mapped table. One table failing
// never stops the others.
func (e *Engine) SyncAllTables(ctx context.Context) error {
	var errs []error
	for _, table := range e.tables.Names() {
		if err := e.SyncTable(ctx, table); err != nil {
			e.log.Error("table sync failed", "table", table, "error", err)
			e.emit(Event{Kind: EventTableFailed, Table: table, Err: err})
			errs = append(errs, fmt.Errorf("sync %s: %w", table, err))
		}
	}
	return errors.Join(errs...)
}
