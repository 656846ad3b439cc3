// Package mongodb is the document-collection backend on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slog"
)

// ErrNoDocument is returned by DataStore.FindOne when nothing matches.
var ErrNoDocument = errors.New("no document")

// DataStore is the collection surface the repository needs.
type DataStore interface {
	FindAll(ctx context.Context) ([]bson.M, error)
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) DataStore
}

// MongoCollection adapts *mongo.Collection to DataStore.
type MongoCollection struct {
	*mongo.Collection
}

func (c *MongoCollection) FindAll(ctx context.Context) ([]bson.M, error) {
	cur, err := c.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to perform Find: %w", err)
	}

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

func (c *MongoCollection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	var doc bson.M
	err := c.Collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to perform FindOne: %w", err)
	}
	return doc, nil
}

func (c *MongoCollection) InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	result, err := c.Collection.InsertOne(ctx, document, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform InsertOne: %w", err)
	}
	return result, nil
}

func (c *MongoCollection) UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	result, err := c.Collection.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform UpdateOne: %w", err)
	}
	return result, nil
}

// MongoProvider adapts a database of *mongo.Client to CollectionProvider.
type MongoProvider struct {
	db *mongo.Database
}

func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	return &MongoProvider{db: client.Database(database)}
}

func (p *MongoProvider) Collection(name string) DataStore {
	return &MongoCollection{p.db.Collection(name)}
}

// Connect dials uri and verifies the connection with a ping.
func Connect(ctx context.Context, uri string, log *slog.Logger) (*mongo.Client, error) {
	log.Debug("connecting to MongoDB", "component", "mongodb")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info("connected to MongoDB", "component", "mongodb")
	return client, nil
}
