package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/pkg/clock"
)

// Kind identifies a class of cached upstream document. Each kind has its own
// collection and freshness window.
type Kind string

const (
	KindProfile      Kind = "profile"
	KindPost         Kind = "post"
	KindReel         Kind = "reel"
	KindHashtagPost  Kind = "hashtag_post"
	KindHashtagStats Kind = "hashtag_stats"
	KindSnapshot     Kind = "snapshot"
)

// AllKinds lists every cache kind for index management.
var AllKinds = []Kind{
	KindProfile, KindPost, KindReel, KindHashtagPost, KindHashtagStats, KindSnapshot,
}

const (
	collCampaignPosts = "campaign_posts"
	collInfluencers   = "influencers"
)

// TTLFor returns the freshness window for a kind. A cached document older
// than this is treated as a miss on read; the TTL index reaps it server-side.
func TTLFor(kind Kind) time.Duration {
	switch kind {
	case KindProfile:
		return 24 * time.Hour
	case KindPost, KindReel:
		return 6 * time.Hour
	case KindHashtagPost, KindHashtagStats:
		return 12 * time.Hour
	case KindSnapshot:
		return 180 * 24 * time.Hour
	default:
		return 6 * time.Hour
	}
}

// CollectionFor maps a kind to its collection name.
func CollectionFor(kind Kind) string {
	switch kind {
	case KindProfile:
		return "profiles"
	case KindPost:
		return "posts"
	case KindReel:
		return "reels"
	case KindHashtagPost:
		return "hashtag_posts"
	case KindHashtagStats:
		return "hashtag_stats"
	case KindSnapshot:
		return "snapshots"
	default:
		return string(kind)
	}
}

// CachedDoc is the envelope every cached upstream document lives in.
type CachedDoc struct {
	Key      string         `bson:"_id"`
	CachedAt time.Time      `bson:"cachedAt"`
	Data     map[string]any `bson:"data"`
}

// cacheCollection is the slice of collection behaviour the cache needs,
// carved out so tests can fake it.
type cacheCollection interface {
	FindOneDoc(ctx context.Context, key string) (*CachedDoc, error)
	UpsertDoc(ctx context.Context, doc CachedDoc) error
}

type mongoCacheCollection struct {
	coll *mongo.Collection
}

func (m *mongoCacheCollection) FindOneDoc(ctx context.Context, key string) (*CachedDoc, error) {
	var doc CachedDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (m *mongoCacheCollection) UpsertDoc(ctx context.Context, doc CachedDoc) error {
	filter := bson.M{"_id": doc.Key}
	update := bson.M{"$set": bson.M{"cachedAt": doc.CachedAt, "data": doc.Data}}
	_, err := m.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Cache is the read-through document cache. Reads apply the per-kind
// freshness predicate; writes are best-effort and never fail the caller.
// There is no single-flight: concurrent misses for the same key may all hit
// the upstream, and last write wins.
type Cache struct {
	colls  func(kind Kind) cacheCollection
	clock  clock.Clock
	logger *zap.Logger
}

// NewCache builds a cache over the store's collections.
func NewCache(s *Store, clk clock.Clock, logger *zap.Logger) *Cache {
	return &Cache{
		colls: func(kind Kind) cacheCollection {
			return &mongoCacheCollection{coll: s.Collection(CollectionFor(kind))}
		},
		clock:  clk,
		logger: logger.With(zap.String("component", "cache")),
	}
}

// Read returns the cached data and its cache time if a fresh document
// exists. Lookup errors are logged and reported as a miss. Returned data
// holds plain Go types only: nested arrays are []any and nested documents
// map[string]any, never driver types, so callers can type-assert on them.
func (c *Cache) Read(ctx context.Context, kind Kind, key string) (map[string]any, time.Time, bool) {
	doc, err := c.colls(kind).FindOneDoc(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed, treating as miss",
			zap.String("kind", string(kind)), zap.String("key", key), zap.Error(err))
		return nil, time.Time{}, false
	}
	if doc == nil {
		return nil, time.Time{}, false
	}
	if c.clock.Since(doc.CachedAt) >= TTLFor(kind) {
		return nil, time.Time{}, false
	}
	return toPlainMap(doc.Data), doc.CachedAt, true
}

// toPlainMap rewrites a driver-decoded document into plain Go types. The
// driver decodes embedded arrays as primitive.A and embedded documents as
// primitive.D or primitive.M, none of which match the []any and
// map[string]any assertions the payload consumers rely on.
func toPlainMap(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = toPlain(v)
	}
	return out
}

func toPlain(v any) any {
	switch val := v.(type) {
	case primitive.A:
		return toPlainSlice(val)
	case []any:
		return toPlainSlice(val)
	case primitive.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = toPlain(e.Value)
		}
		return out
	case primitive.M:
		return toPlainMap(map[string]any(val))
	case map[string]any:
		return toPlainMap(val)
	case primitive.DateTime:
		return val.Time().UTC()
	default:
		return v
	}
}

func toPlainSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = toPlain(item)
	}
	return out
}

// Write stores data under key, stamping the cache time. Failures are logged
// and swallowed so a broken cache never breaks a tool result.
func (c *Cache) Write(ctx context.Context, kind Kind, key string, data map[string]any) {
	doc := CachedDoc{Key: key, CachedAt: c.clock.Now(), Data: data}
	if err := c.colls(kind).UpsertDoc(ctx, doc); err != nil {
		c.logger.Warn("Cache write failed",
			zap.String("kind", string(kind)), zap.String("key", key), zap.Error(err))
	}
}
