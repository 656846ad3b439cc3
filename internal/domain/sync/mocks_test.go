package sync

import (
	"context"

	"github.com/stretchr/testify/mock"

	"iotsync/internal/domain/mapping"
	"iotsync/internal/domain/record"
)

// MockLocalStore is a mock implementation of LocalStore for testing
type MockLocalStore struct {
	mock.Mock
}

func (m *MockLocalStore) Fetch(ctx context.Context, table string, match record.Match) ([]record.Record, error) {
	args := m.Called(ctx, table, match)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Record), args.Error(1)
}

func (m *MockLocalStore) Insert(ctx context.Context, table string, rec record.Record) error {
	args := m.Called(ctx, table, rec)
	return args.Error(0)
}

func (m *MockLocalStore) Update(ctx context.Context, table string, patch record.Record, match record.Match) error {
	args := m.Called(ctx, table, patch, match)
	return args.Error(0)
}

// MockRemote is a mock implementation of Remote for testing
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Push(ctx context.Context, table string, rec record.Record) error {
	args := m.Called(ctx, table, rec)
	return args.Error(0)
}

func (m *MockRemote) Pull(ctx context.Context, table string) ([]record.Record, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Record), args.Error(1)
}

func testTables() *mapping.Table {
	return mapping.MustNew(
		mapping.Mapping{Table: "familiars", Backend: mapping.Flat("familiars")},
		mapping.Mapping{Table: "device_status", Backend: mapping.Flat("device_status"), IDField: "device_id"},
		mapping.Mapping{Table: "logs", Backend: mapping.Collection("logs")},
	)
}
