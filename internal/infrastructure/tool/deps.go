package tool

import (
	"context"
	"time"

	"github.com/brandlens/brandlens/internal/infrastructure/actor"
	"github.com/brandlens/brandlens/internal/infrastructure/store"
)

// DataCache is the read-through cache surface tools consume. Read returns
// plain Go types only ([]any, map[string]any), so handlers may type-assert
// on nested payload fields.
type DataCache interface {
	Read(ctx context.Context, kind store.Kind, key string) (map[string]any, time.Time, bool)
	Write(ctx context.Context, kind store.Kind, key string, data map[string]any)
}

// Analytics is the aggregation surface over the cached collections.
type Analytics interface {
	HashtagStats(ctx context.Context, tag string) (map[string]any, error)
	EngagementStats(ctx context.Context, username string) (map[string]any, error)
	SearchInfluencers(ctx context.Context, query string, minFollowers, limit int) ([]map[string]any, error)
	RankInfluencers(ctx context.Context, topic string, limit int) ([]map[string]any, error)
	EnrollInfluencer(ctx context.Context, username string, profile map[string]any) error
}

// CampaignTracker persists campaign post registrations and metric snapshots.
type CampaignTracker interface {
	Register(ctx context.Context, shortcode, username, campaign string) (*store.CampaignPost, error)
	TouchChecked(ctx context.Context, shortcode string) error
	MarkDeleted(ctx context.Context, shortcode string) error
	AppendSnapshot(ctx context.Context, shortcode string, metrics map[string]any) error
	SnapshotHistory(ctx context.Context, shortcode string, limit int) ([]map[string]any, error)
}

// ActorIDs names the upstream actors the fetch tools call. All values come
// from configuration.
type ActorIDs struct {
	Profile      string
	Posts        string
	Reels        string
	HashtagPosts string
	PostDetail   string
}

// Deps bundles everything the tool set needs.
type Deps struct {
	Cache     DataCache
	Actor     actor.Runner
	Analytics Analytics
	Campaigns CampaignTracker
	Actors    ActorIDs
}
