// Package store is the MongoDB persistence layer: the raw-document cache
// that tools read through, campaign post tracking, and the influencer index
// analytics aggregate over.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/pkg/errors"
)

const connectTimeout = 10 * time.Second

// Store wraps a Mongo database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.NewUpstreamError("connect to MongoDB", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.NewUpstreamError("ping MongoDB", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", dbName))
	return &Store{
		client: client,
		db:     client.Database(dbName),
		logger: logger.With(zap.String("component", "store")),
	}, nil
}

// Disconnect releases the client.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping reports database reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// Collection returns a handle on the named collection.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// EnsureIndexes creates the TTL index on every cache collection plus the
// query indexes analytics and the scheduler depend on. Index creation is
// idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, kind := range AllKinds {
		ttl := int32(TTLFor(kind) / time.Second)
		// Snapshots and cached documents expire server-side as a backstop;
		// reads still apply the freshness predicate themselves.
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: "cachedAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(ttl),
		}
		if _, err := s.Collection(CollectionFor(kind)).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create TTL index on %s: %w", CollectionFor(kind), err)
		}
	}

	extra := map[string][]mongo.IndexModel{
		collCampaignPosts: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "lastCheckedAt", Value: 1}}},
		},
		collInfluencers: {
			{Keys: bson.D{{Key: "topics", Value: 1}, {Key: "score", Value: -1}}},
			{Keys: bson.D{{Key: "followers", Value: -1}}},
		},
		CollectionFor(KindHashtagPost): {
			{Keys: bson.D{{Key: "data.hashtag", Value: 1}}},
		},
		CollectionFor(KindPost): {
			{Keys: bson.D{{Key: "data.username", Value: 1}}},
		},
		CollectionFor(KindSnapshot): {
			{Keys: bson.D{{Key: "shortcode", Value: 1}, {Key: "cachedAt", Value: -1}}},
		},
	}
	for coll, models := range extra {
		if _, err := s.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}

	s.logger.Info("Ensured MongoDB indexes")
	return nil
}

// BulkUpsert writes documents keyed by keyField in a single bulk operation.
// Missing documents are inserted, existing ones replaced.
func (s *Store) BulkUpsert(ctx context.Context, coll, keyField string, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		key, ok := doc[keyField]
		if !ok {
			return errors.NewInvalidInputError(fmt.Sprintf("document missing key field %q", keyField))
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{keyField: key}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	opts := options.BulkWrite().SetOrdered(false)
	if _, err := s.Collection(coll).BulkWrite(ctx, models, opts); err != nil {
		return errors.NewUpstreamError(fmt.Sprintf("bulk upsert into %s", coll), err)
	}
	return nil
}

// Aggregate runs a pipeline and decodes all results into out, which must be
// a pointer to a slice.
func (s *Store) Aggregate(ctx context.Context, coll string, pipeline mongo.Pipeline, out any) error {
	cursor, err := s.Collection(coll).Aggregate(ctx, pipeline)
	if err != nil {
		return errors.NewUpstreamError(fmt.Sprintf("aggregate on %s", coll), err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return errors.NewUpstreamError(fmt.Sprintf("decode aggregate results from %s", coll), err)
	}
	return nil
}
