package mongodb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slog"

	"iotsync/internal/domain/record"
	"iotsync/internal/infrastructure/remote"
	"iotsync/internal/infrastructure/storage/mongodb"
)

// Mock for DataStore interface.
type mockDataStore struct {
	findAllFunc   func(ctx context.Context) ([]bson.M, error)
	findOneFunc   func(ctx context.Context, filter bson.M) (bson.M, error)
	insertOneFunc func(ctx context.Context, document any) (*mongo.InsertOneResult, error)
	updateOneFunc func(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

func (m *mockDataStore) FindAll(ctx context.Context) ([]bson.M, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockDataStore) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	if m.findOneFunc != nil {
		return m.findOneFunc(ctx, filter)
	}
	return nil, mongodb.ErrNoDocument
}

func (m *mockDataStore) InsertOne(ctx context.Context, document any, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if m.insertOneFunc != nil {
		return m.insertOneFunc(ctx, document)
	}
	return &mongo.InsertOneResult{InsertedID: primitive.NewObjectID()}, nil
}

func (m *mockDataStore) UpdateOne(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if m.updateOneFunc != nil {
		return m.updateOneFunc(ctx, filter, update, opts...)
	}
	return &mongo.UpdateResult{}, nil
}

// Mock for CollectionProvider interface.
type mockCollectionProvider struct {
	stores map[string]*mockDataStore
	asked  []string
}

func (m *mockCollectionProvider) Collection(name string) mongodb.DataStore {
	m.asked = append(m.asked, name)
	if ds, ok := m.stores[name]; ok {
		return ds
	}
	return &mockDataStore{}
}

func newRepo(stores map[string]*mockDataStore) (*mongodb.DocumentRepository, *mockCollectionProvider) {
	p := &mockCollectionProvider{stores: stores}
	return mongodb.NewDocumentRepository(p, slog.Default()), p
}

func TestDocumentRepository_List(t *testing.T) {
	oid := primitive.NewObjectID()
	ds := &mockDataStore{
		findAllFunc: func(context.Context) ([]bson.M, error) {
			return []bson.M{
				{"_id": oid, "message": "boot", "count": int32(3), "tags": bson.A{"a", int64(2)}},
				{"_id": "manual-id", "nested": bson.M{"n": int64(1)}},
			}, nil
		},
	}
	repo, p := newRepo(map[string]*mockDataStore{"logs": ds})

	got, err := repo.List(context.Background(), "logs")

	require.NoError(t, err)
	assert.Equal(t, []string{"logs"}, p.asked)
	require.Len(t, got, 2)
	assert.Equal(t, record.Record{"id": oid.Hex(), "message": "boot", "count": 3.0, "tags": []any{"a", 2.0}}, got[0])
	assert.Equal(t, record.Record{"id": "manual-id", "nested": map[string]any{"n": 1.0}}, got[1])
}

func TestDocumentRepository_ListEmptyNotNil(t *testing.T) {
	repo, _ := newRepo(nil)

	got, err := repo.List(context.Background(), "configs")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDocumentRepository_Create(t *testing.T) {
	oid := primitive.NewObjectID()
	var inserted any
	ds := &mockDataStore{
		insertOneFunc: func(_ context.Context, document any) (*mongo.InsertOneResult, error) {
			inserted = document
			return &mongo.InsertOneResult{InsertedID: oid}, nil
		},
	}
	repo, _ := newRepo(map[string]*mockDataStore{"logs": ds})

	id, err := repo.Create(context.Background(), "logs", record.Record{"id": "", "message": "hi"})

	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), id)
	assert.Equal(t, bson.M{"message": "hi"}, inserted)
}

func TestDocumentRepository_UpdateUpserts(t *testing.T) {
	oid := primitive.NewObjectID()
	var (
		gotFilter any
		gotUpdate any
		upsert    bool
	)
	ds := &mockDataStore{
		updateOneFunc: func(_ context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
			gotFilter, gotUpdate = filter, update
			for _, o := range opts {
				if o.Upsert != nil {
					upsert = *o.Upsert
				}
			}
			return &mongo.UpdateResult{MatchedCount: 1}, nil
		},
	}
	repo, _ := newRepo(map[string]*mockDataStore{"configs": ds})

	require.NoError(t, repo.Update(context.Background(), "configs", oid.Hex(), record.Record{"id": oid.Hex(), "mode": "eco"}))
	assert.Equal(t, bson.M{"_id": oid}, gotFilter)
	assert.Equal(t, bson.M{"$set": bson.M{"mode": "eco"}}, gotUpdate)
	assert.True(t, upsert)

	require.NoError(t, repo.Update(context.Background(), "configs", "c-1", record.Record{"mode": "x"}))
	assert.Equal(t, bson.M{"_id": "c-1"}, gotFilter)

	assert.ErrorIs(t, repo.Update(context.Background(), "configs", "", record.Record{"mode": "x"}), record.ErrMissingKey)
}

func TestDocumentRepository_Get(t *testing.T) {
	ds := &mockDataStore{
		findOneFunc: func(_ context.Context, filter bson.M) (bson.M, error) {
			if filter["_id"] == "known" {
				return bson.M{"_id": "known", "name": "Ada"}, nil
			}
			return nil, mongodb.ErrNoDocument
		},
	}
	repo, _ := newRepo(map[string]*mockDataStore{"emergency_contacts": ds})

	got, err := repo.Get(context.Background(), "emergency_contacts", "known")
	require.NoError(t, err)
	assert.Equal(t, record.Record{"id": "known", "name": "Ada"}, got)

	_, err = repo.Get(context.Background(), "emergency_contacts", "missing")
	assert.ErrorIs(t, err, remote.ErrDocumentNotFound)
}

func TestDocumentRepository_BackendErrors(t *testing.T) {
	boom := errors.New("connection reset")
	ds := &mockDataStore{
		findAllFunc: func(context.Context) ([]bson.M, error) { return nil, boom },
		insertOneFunc: func(context.Context, any) (*mongo.InsertOneResult, error) {
			return nil, boom
		},
	}
	repo, _ := newRepo(map[string]*mockDataStore{"logs": ds})

	_, err := repo.List(context.Background(), "logs")
	assert.ErrorIs(t, err, boom)

	_, err = repo.Create(context.Background(), "logs", record.Record{"m": 1})
	assert.ErrorIs(t, err, boom)
}

func TestDocumentRepository_ThroughAdapter(t *testing.T) {
	oid := primitive.NewObjectID()
	ds := &mockDataStore{
		insertOneFunc: func(context.Context, any) (*mongo.InsertOneResult, error) {
			return &mongo.InsertOneResult{InsertedID: oid}, nil
		},
	}
	repo, _ := newRepo(map[string]*mockDataStore{"logs": ds})

	var docs remote.DocumentStore = repo
	id, err := docs.Create(context.Background(), "logs", record.Record{"m": "x"})
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), id)
}
