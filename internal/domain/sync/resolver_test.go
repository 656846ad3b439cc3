package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"iotsync/internal/domain/record"
)

func TestResolveConflict(t *testing.T) {
	byID := record.Match{"id": "d1"}

	tests := []struct {
		name         string
		local        []record.Record
		remote       record.Record
		setup        func(local *MockLocalStore)
		wantDecision Decision
		wantWinner   string
		wantQueued   int
	}{
		{
			name:   "remote newer overwrites local",
			local:  []record.Record{{"id": "d1", "last_modified": "2024-01-01T00:00:00Z", "v": "local"}},
			remote: record.Record{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "remote"},
			setup: func(local *MockLocalStore) {
				local.On("Update", mock.Anything, "familiars",
					record.Record{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "remote", "synced": 1},
					byID,
				).Return(nil)
			},
			wantDecision: DecisionRemoteWins,
			wantWinner:   "remote",
		},
		{
			name:         "local newer is queued for push",
			local:        []record.Record{{"id": "d1", "last_modified": "2024-02-01T00:00:00Z", "v": "local"}},
			remote:       record.Record{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "remote"},
			wantDecision: DecisionLocalWins,
			wantWinner:   "local",
			wantQueued:   1,
		},
		{
			name:         "equal timestamps change nothing",
			local:        []record.Record{{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "local"}},
			remote:       record.Record{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "remote"},
			wantDecision: DecisionNoop,
			wantWinner:   "local",
		},
		{
			name:         "both timestamps absent tie",
			local:        []record.Record{{"id": "d1", "v": "local"}},
			remote:       record.Record{"id": "d1", "v": "remote"},
			wantDecision: DecisionNoop,
			wantWinner:   "local",
		},
		{
			name:         "unparsable local timestamp changes nothing",
			local:        []record.Record{{"id": "d1", "last_modified": "not a date", "v": "local"}},
			remote:       record.Record{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "remote"},
			wantDecision: DecisionNoop,
			wantWinner:   "local",
		},
		{
			name:         "unparsable remote timestamp changes nothing",
			local:        []record.Record{{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "local"}},
			remote:       record.Record{"id": "d1", "last_modified": "garbage", "v": "remote"},
			wantDecision: DecisionNoop,
			wantWinner:   "local",
		},
		{
			name:   "no local match inserts remote verbatim",
			local:  []record.Record{},
			remote: record.Record{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "remote"},
			setup: func(local *MockLocalStore) {
				local.On("Insert", mock.Anything, "familiars",
					record.Record{"id": "d1", "last_modified": "2024-01-02T00:00:00Z", "v": "remote"},
				).Return(nil)
			},
			wantDecision: DecisionInserted,
			wantWinner:   "remote",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := new(MockLocalStore)
			rem := new(MockRemote)
			e := newTestEngine(local, rem)

			local.On("Fetch", mock.Anything, "familiars", byID).Return(tt.local, nil)
			if tt.setup != nil {
				tt.setup(local)
			}

			got, decision, err := e.ResolveConflict(context.Background(), "familiars", tt.remote)

			require.NoError(t, err)
			assert.Equal(t, tt.wantDecision, decision)
			assert.Equal(t, tt.wantWinner, got["v"])
			assert.Equal(t, tt.wantQueued, e.Queue().Len())
			local.AssertExpectations(t)

			if tt.setup == nil {
				local.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
				local.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			assert.Empty(t, rem.Calls)
		})
	}
}

func TestResolveConflict_UsesTableIdentifier(t *testing.T) {
	local := new(MockLocalStore)
	e := newTestEngine(local, new(MockRemote))

	remoteRec := record.Record{"id": "dev-1", "device_id": "dev-1", "online": true}
	local.On("Fetch", mock.Anything, "device_status", record.Match{"device_id": "dev-1"}).Return([]record.Record{}, nil)
	local.On("Insert", mock.Anything, "device_status", remoteRec).Return(nil)

	_, decision, err := e.ResolveConflict(context.Background(), "device_status", remoteRec)
	require.NoError(t, err)
	assert.Equal(t, DecisionInserted, decision)
	local.AssertExpectations(t)
}

func TestResolveConflict_Errors(t *testing.T) {
	t.Run("local fetch failure", func(t *testing.T) {
		local := new(MockLocalStore)
		e := newTestEngine(local, new(MockRemote))
		local.On("Fetch", mock.Anything, "familiars", mock.Anything).Return(nil, errors.New("io"))

		_, _, err := e.ResolveConflict(context.Background(), "familiars", record.Record{"id": "a"})

		var lse *LocalStoreError
		require.ErrorAs(t, err, &lse)
		assert.Equal(t, "fetch", lse.Op)
	})

	t.Run("local insert failure", func(t *testing.T) {
		local := new(MockLocalStore)
		e := newTestEngine(local, new(MockRemote))
		local.On("Fetch", mock.Anything, "familiars", mock.Anything).Return([]record.Record{}, nil)
		local.On("Insert", mock.Anything, "familiars", mock.Anything).Return(errors.New("constraint"))

		_, _, err := e.ResolveConflict(context.Background(), "familiars", record.Record{"id": "a"})

		var lse *LocalStoreError
		require.ErrorAs(t, err, &lse)
		assert.Equal(t, "insert", lse.Op)
	})

	t.Run("unmapped table", func(t *testing.T) {
		local := new(MockLocalStore)
		e := newTestEngine(local, new(MockRemote))

		_, _, err := e.ResolveConflict(context.Background(), "weather", record.Record{"id": "a"})

		assert.ErrorIs(t, err, ErrUnmappedTable)
		assert.Empty(t, local.Calls)
	})

	t.Run("remote without identifier", func(t *testing.T) {
		e := newTestEngine(new(MockLocalStore), new(MockRemote))

		_, _, err := e.ResolveConflict(context.Background(), "familiars", record.Record{"name": "?"})

		assert.ErrorIs(t, err, record.ErrMissingKey)
	})
}

func TestSyncTable_ContinuesPastFailures(t *testing.T) {
	local := new(MockLocalStore)
	rem := new(MockRemote)
	e := newTestEngine(local, rem)

	rem.On("Pull", mock.Anything, "familiars").Return([]record.Record{{"id": "a"}, {"id": "b"}, {"id": "c"}}, nil)
	local.On("Fetch", mock.Anything, "familiars", record.Match{"id": "b"}).Return(nil, errors.New("corrupt"))
	local.On("Fetch", mock.Anything, "familiars", mock.Anything).Return([]record.Record{}, nil)
	local.On("Insert", mock.Anything, "familiars", mock.Anything).Return(nil)

	err := e.SyncTable(context.Background(), "familiars")

	require.Error(t, err)
	var lse *LocalStoreError
	assert.ErrorAs(t, err, &lse)
	local.AssertNumberOfCalls(t, "Insert", 2)
	assert.Equal(t, 3, e.Stats().Pulled)
	assert.Equal(t, 2, e.Stats().Inserted)
}

func TestSyncTable_PullFailure(t *testing.T) {
	local := new(MockLocalStore)
	rem := new(MockRemote)
	e := newTestEngine(local, rem)
	boom := errors.New("unreachable")

	rem.On("Pull", mock.Anything, "logs").Return(nil, boom)

	assert.ErrorIs(t, e.SyncTable(context.Background(), "logs"), boom)
	assert.Empty(t, local.Calls)
}

func TestSyncAllTables_IsolatesTables(t *testing.T) {
	local := new(MockLocalStore)
	rem := new(MockRemote)

	var failed []string
	e := newTestEngine(local, rem, WithObserver(func(ev Event) {
		if ev.Kind == EventTableFailed {
			failed = append(failed, ev.Table)
		}
	}))

	rem.On("Pull", mock.Anything, "device_status").Return(nil, errors.New("down"))
	rem.On("Pull", mock.Anything, "familiars").Return([]record.Record{{"id": "f"}}, nil)
	rem.On("Pull", mock.Anything, "logs").Return([]record.Record{{"id": "l"}}, nil)
	local.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return([]record.Record{}, nil)
	local.On("Insert", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := e.SyncAllTables(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "device_status")
	assert.Equal(t, []string{"device_status"}, failed)
	local.AssertNumberOfCalls(t, "Insert", 2)
	assert.Equal(t, 1, e.Stats().TableFailures)
}

func TestResolveConflict_LocalWinsPushedNextDrain(t *testing.T) {
	local := new(MockLocalStore)
	rem := new(MockRemote)
	e := newTestEngine(local, rem)

	newer := record.Record{"id": "d1", "last_modified": "2024-02-01T00:00:00Z"}
	local.On("Fetch", mock.Anything, "familiars", record.Match{"id": "d1"}).Return([]record.Record{newer}, nil)
	local.On("Update", mock.Anything, "familiars", record.Record{"synced": 1}, record.Match{"id": "d1"}).Return(nil)
	rem.On("Push", mock.Anything, "familiars", newer).Return(nil)

	_, _, err := e.ResolveConflict(context.Background(), "familiars",
		record.Record{"id": "d1", "last_modified": "2024-01-02T00:00:00Z"})
	require.NoError(t, err)

	require.NoError(t, e.Drain(context.Background(), 0))
	rem.AssertExpectations(t)
	local.AssertExpectations(t)
}
