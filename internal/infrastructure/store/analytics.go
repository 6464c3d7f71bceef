package store

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/pkg/clock"
	"github.com/brandlens/brandlens/pkg/errors"
)

// Analytics runs aggregation pipelines over the cached document collections
// and maintains the influencer index.
type Analytics struct {
	store  *Store
	clock  clock.Clock
	logger *zap.Logger
}

func NewAnalytics(s *Store, clk clock.Clock, logger *zap.Logger) *Analytics {
	return &Analytics{
		store:  s,
		clock:  clk,
		logger: logger.With(zap.String("component", "analytics")),
	}
}

// HashtagStats aggregates cached hashtag posts into summary numbers.
func (a *Analytics) HashtagStats(ctx context.Context, tag string) (map[string]any, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"data.hashtag": tag}}},
		{{Key: "$unwind", Value: "$data.posts"}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"postCount":   bson.M{"$sum": 1},
			"avgLikes":    bson.M{"$avg": "$data.posts.likes"},
			"avgComments": bson.M{"$avg": "$data.posts.comments"},
			"maxLikes":    bson.M{"$max": "$data.posts.likes"},
			"creators":    bson.M{"$addToSet": "$data.posts.username"},
		}}},
	}

	var rows []bson.M
	if err := a.store.Aggregate(ctx, CollectionFor(KindHashtagPost), pipeline, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no cached posts for hashtag #%s", tag))
	}

	row := rows[0]
	creators, _ := row["creators"].(primitive.A)
	return map[string]any{
		"hashtag":        tag,
		"postCount":      asInt64(row["postCount"]),
		"avgLikes":       asFloat(row["avgLikes"]),
		"avgComments":    asFloat(row["avgComments"]),
		"maxLikes":       asInt64(row["maxLikes"]),
		"uniqueCreators": len(creators),
	}, nil
}

// EngagementStats aggregates a creator's cached posts into engagement
// numbers, relating average interactions to the profile's follower count
// when a cached profile exists.
func (a *Analytics) EngagementStats(ctx context.Context, username string) (map[string]any, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"data.username": username}}},
		{{Key: "$unwind", Value: "$data.posts"}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"postCount":   bson.M{"$sum": 1},
			"avgLikes":    bson.M{"$avg": "$data.posts.likes"},
			"avgComments": bson.M{"$avg": "$data.posts.comments"},
			"totalLikes":  bson.M{"$sum": "$data.posts.likes"},
		}}},
	}

	var rows []bson.M
	if err := a.store.Aggregate(ctx, CollectionFor(KindPost), pipeline, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no cached posts for @%s; fetch posts first", username))
	}

	row := rows[0]
	result := map[string]any{
		"username":    username,
		"postCount":   asInt64(row["postCount"]),
		"avgLikes":    asFloat(row["avgLikes"]),
		"avgComments": asFloat(row["avgComments"]),
		"totalLikes":  asInt64(row["totalLikes"]),
	}

	// Engagement rate needs the follower count from the cached profile.
	var profile CachedDoc
	err := a.store.Collection(CollectionFor(KindProfile)).
		FindOne(ctx, bson.M{"_id": strings.ToLower(username)}).Decode(&profile)
	if err == nil {
		if followers := asFloat(profile.Data["followers"]); followers > 0 {
			interactions := asFloat(row["avgLikes"]) + asFloat(row["avgComments"])
			result["followers"] = int64(followers)
			result["engagementRate"] = interactions / followers * 100
		}
	}
	return result, nil
}

// SearchInfluencers queries the influencer index by topic or name fragment
// with a follower floor, most-followed first.
func (a *Analytics) SearchInfluencers(ctx context.Context, query string, minFollowers, limit int) ([]map[string]any, error) {
	filter := bson.M{"followers": bson.M{"$gte": minFollowers}}
	if query != "" {
		filter["$or"] = bson.A{
			bson.M{"topics": query},
			bson.M{"username": bson.M{"$regex": query, "$options": "i"}},
			bson.M{"fullName": bson.M{"$regex": query, "$options": "i"}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "followers", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := a.store.Collection(collInfluencers).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.NewUpstreamError("search influencers", err)
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.NewUpstreamError("decode influencer results", err)
	}
	return toMaps(rows), nil
}

// RankInfluencers orders indexed influencers for a topic by their engagement
// score.
func (a *Analytics) RankInfluencers(ctx context.Context, topic string, limit int) ([]map[string]any, error) {
	match := bson.M{}
	if topic != "" {
		match["topics"] = topic
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "score", Value: -1}, {Key: "followers", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{
			"_id":       0,
			"username":  1,
			"fullName":  1,
			"followers": 1,
			"score":     1,
			"topics":    1,
		}}},
	}

	var rows []bson.M
	if err := a.store.Aggregate(ctx, collInfluencers, pipeline, &rows); err != nil {
		return nil, err
	}
	return toMaps(rows), nil
}

// EnrollInfluencer upserts a creator into the influencer index. Called from
// the post-tool hook; first enrollment stamps enrolledAt, later ones refresh
// the profile fields.
func (a *Analytics) EnrollInfluencer(ctx context.Context, username string, profile map[string]any) error {
	username = strings.ToLower(username)
	set := bson.M{
		"username":  username,
		"updatedAt": a.clock.Now(),
	}
	for _, field := range []string{"fullName", "followers", "topics", "score", "bio"} {
		if v, ok := profile[field]; ok {
			set[field] = v
		}
	}

	filter := bson.M{"_id": username}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"enrolledAt": a.clock.Now()},
	}
	_, err := a.store.Collection(collInfluencers).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.NewUpstreamError(fmt.Sprintf("enroll influencer @%s", username), err)
	}
	return nil
}

func toMaps(rows []bson.M) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any(row))
	}
	return out
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
