package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slog"

	"iotsync/internal/domain/record"
	"iotsync/internal/infrastructure/remote"
)

// DocumentRepository is a remote.DocumentStore over MongoDB collections.
// Document ids are ObjectID hex strings or, for documents created through
// Update, the caller's string id.
type DocumentRepository struct {
	provider CollectionProvider
	log      *slog.Logger
}

func NewDocumentRepository(provider CollectionProvider, log *slog.Logger) *DocumentRepository {
	return &DocumentRepository{
		provider: provider,
		log:      log.With("component", "document_repository"),
	}
}

func (r *DocumentRepository) List(ctx context.Context, collection string) ([]record.Record, error) {
	docs, err := r.provider.Collection(collection).FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	out := make([]record.Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toRecord(doc))
	}
	return out, nil
}

func (r *DocumentRepository) Get(ctx context.Context, collection, id string) (record.Record, error) {
	doc, err := r.provider.Collection(collection).FindOne(ctx, idFilter(id))
	if errors.Is(err, ErrNoDocument) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, remote.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return toRecord(doc), nil
}

func (r *DocumentRepository) Create(ctx context.Context, collection string, fields record.Record) (string, error) {
	doc := bson.M(fields.Clone())
	delete(doc, record.FieldID)
	delete(doc, "_id")

	res, err := r.provider.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("create in %s: %w", collection, err)
	}

	id := idString(res.InsertedID)
	r.log.Debug("document created", "collection", collection, "id", id)
	return id, nil
}

// Update sets fields on the document, creating it when absent. Fields not
// named are left as they are.
func (r *DocumentRepository) Update(ctx context.Context, collection, id string, fields record.Record) error {
	if id == "" {
		return fmt.Errorf("update %s: %w", collection, record.ErrMissingKey)
	}

	set := bson.M(fields.Clone())
	delete(set, record.FieldID)
	delete(set, "_id")
	if len(set) == 0 {
		return nil
	}

	_, err := r.provider.Collection(collection).UpdateOne(ctx,
		idFilter(id),
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	return record.String(v)
}

func toRecord(doc bson.M) record.Record {
	rec := make(record.Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			rec[record.FieldID] = idString(v)
			continue
		}
		rec[k] = normalize(v)
	}
	return rec
}

// normalize turns BSON values into the shapes encoding/json produces.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	}
	return v
}
