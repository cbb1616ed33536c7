package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/export"
	"github.com/maplab/flatland/pkg/observability"
)

const bundleCollection = "bundles"

// MongoStore persists bundles in a MongoDB collection, one document per
// map name.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "store URI is required")
	}
	if database == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "store database is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "failed to connect to store")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "store is unreachable")
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(bundleCollection),
	}, nil
}

// Publish implements Store.
func (s *MongoStore) Publish(ctx context.Context, b *export.Bundle) error {
	if b == nil || b.ID == "" || b.MapName == "" {
		return errors.New(errors.ErrCodeInvalidInput, "bundle must have an ID and map name")
	}

	start := time.Now()
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"map_name": b.MapName},
		b,
		options.Replace().SetUpsert(true))
	observability.Store().OnPublish(ctx, b.MapName, time.Since(start), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "failed to publish bundle")
	}
	return nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, id string) (*export.Bundle, error) {
	start := time.Now()
	b, err := s.findOne(ctx, bson.M{"_id": id})
	observability.Store().OnFetch(ctx, id, time.Since(start), err)
	if errors.Is(err, errors.ErrCodeBundleNotFound) {
		return nil, errors.New(errors.ErrCodeBundleNotFound, "bundle not found: %s", id)
	}
	return b, err
}

// GetByMap implements Store.
func (s *MongoStore) GetByMap(ctx context.Context, mapName string) (*export.Bundle, error) {
	start := time.Now()
	b, err := s.findOne(ctx, bson.M{"map_name": mapName})
	observability.Store().OnFetch(ctx, mapName, time.Since(start), err)
	if errors.Is(err, errors.ErrCodeBundleNotFound) {
		return nil, errors.New(errors.ErrCodeBundleNotFound, "no bundle for map: %s", mapName)
	}
	return b, err
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*export.Bundle, error) {
	var b export.Bundle
	err := s.collection.FindOne(ctx, filter).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeBundleNotFound, "bundle not found")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "failed to fetch bundle")
	}
	return &b, nil
}

// List implements Store.
func (s *MongoStore) List(ctx context.Context) ([]BundleInfo, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "map_name": 1, "generated_at": 1, "domains.domain": 1}).
		SetSort(bson.D{{Key: "generated_at", Value: -1}})

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "failed to list bundles")
	}
	defer cursor.Close(ctx)

	var docs []export.Bundle
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "failed to decode bundle list")
	}

	infos := make([]BundleInfo, 0, len(docs))
	for _, b := range docs {
		infos = append(infos, BundleInfo{
			ID:          b.ID,
			MapName:     b.MapName,
			GeneratedAt: b.GeneratedAt,
			DomainCount: len(b.Domains),
		})
	}
	return infos, nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
