package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/pkg/clock"
	"github.com/brandlens/brandlens/pkg/errors"
)

// CampaignPost is a tracked post whose metrics the scheduler samples over
// time. Shortcode is the post's stable public identifier.
type CampaignPost struct {
	Shortcode     string    `bson:"_id"`
	Username      string    `bson:"username"`
	Campaign      string    `bson:"campaign,omitempty"`
	Status        string    `bson:"status"`
	RegisteredAt  time.Time `bson:"registeredAt"`
	LastCheckedAt time.Time `bson:"lastCheckedAt"`
}

const (
	CampaignStatusActive  = "active"
	CampaignStatusDeleted = "deleted"
)

// Campaigns persists campaign post registrations and their metric snapshots.
type Campaigns struct {
	store  *Store
	clock  clock.Clock
	logger *zap.Logger
}

func NewCampaigns(s *Store, clk clock.Clock, logger *zap.Logger) *Campaigns {
	return &Campaigns{
		store:  s,
		clock:  clk,
		logger: logger.With(zap.String("component", "campaigns")),
	}
}

// Register upserts a campaign post in active state. Re-registering an
// existing shortcode refreshes username/campaign but keeps registeredAt.
func (c *Campaigns) Register(ctx context.Context, shortcode, username, campaign string) (*CampaignPost, error) {
	now := c.clock.Now()
	filter := bson.M{"_id": shortcode}
	update := bson.M{
		"$set": bson.M{
			"username": username,
			"campaign": campaign,
			"status":   CampaignStatusActive,
		},
		"$setOnInsert": bson.M{
			"registeredAt":  now,
			"lastCheckedAt": time.Time{},
		},
	}
	_, err := c.store.Collection(collCampaignPosts).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, errors.NewUpstreamError(fmt.Sprintf("register campaign post %s", shortcode), err)
	}

	var post CampaignPost
	if err := c.store.Collection(collCampaignPosts).FindOne(ctx, filter).Decode(&post); err != nil {
		return nil, errors.NewUpstreamError(fmt.Sprintf("load campaign post %s", shortcode), err)
	}
	return &post, nil
}

// Active returns every registered post not in deleted state, oldest check
// first so the scheduler services the most overdue posts first.
func (c *Campaigns) Active(ctx context.Context) ([]CampaignPost, error) {
	filter := bson.M{"status": bson.M{"$ne": CampaignStatusDeleted}}
	opts := options.Find().SetSort(bson.D{{Key: "lastCheckedAt", Value: 1}})
	cursor, err := c.store.Collection(collCampaignPosts).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.NewUpstreamError("load active campaign posts", err)
	}
	defer cursor.Close(ctx)

	var posts []CampaignPost
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, errors.NewUpstreamError("decode campaign posts", err)
	}
	return posts, nil
}

// TouchChecked stamps the post's last monitoring time.
func (c *Campaigns) TouchChecked(ctx context.Context, shortcode string) error {
	_, err := c.store.Collection(collCampaignPosts).UpdateOne(ctx,
		bson.M{"_id": shortcode},
		bson.M{"$set": bson.M{"lastCheckedAt": c.clock.Now()}})
	if err != nil {
		return errors.NewUpstreamError(fmt.Sprintf("touch campaign post %s", shortcode), err)
	}
	return nil
}

// MarkDeleted flags a post the upstream no longer serves so monitoring skips
// it from the next cycle on.
func (c *Campaigns) MarkDeleted(ctx context.Context, shortcode string) error {
	_, err := c.store.Collection(collCampaignPosts).UpdateOne(ctx,
		bson.M{"_id": shortcode},
		bson.M{"$set": bson.M{"status": CampaignStatusDeleted}})
	if err != nil {
		return errors.NewUpstreamError(fmt.Sprintf("mark campaign post %s deleted", shortcode), err)
	}
	return nil
}

// AppendSnapshot records one metric sample for a post. Snapshots live in the
// snapshot cache collection so the 180-day TTL index reaps them.
func (c *Campaigns) AppendSnapshot(ctx context.Context, shortcode string, metrics map[string]any) error {
	now := c.clock.Now()
	doc := bson.M{
		"_id":       fmt.Sprintf("%s:%d", shortcode, now.UnixMilli()),
		"shortcode": shortcode,
		"cachedAt":  now,
		"metrics":   metrics,
	}
	_, err := c.store.Collection(CollectionFor(KindSnapshot)).InsertOne(ctx, doc)
	if err != nil {
		return errors.NewUpstreamError(fmt.Sprintf("append snapshot for %s", shortcode), err)
	}
	return nil
}

// SnapshotHistory returns the most recent samples for a post, newest first.
func (c *Campaigns) SnapshotHistory(ctx context.Context, shortcode string, limit int) ([]map[string]any, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"shortcode": shortcode}}},
		{{Key: "$sort", Value: bson.D{{Key: "cachedAt", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"_id": 0, "cachedAt": 1, "metrics": 1}}},
	}
	var rows []bson.M
	if err := c.store.Aggregate(ctx, CollectionFor(KindSnapshot), pipeline, &rows); err != nil {
		return nil, err
	}
	return toMaps(rows), nil
}
