package tool

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/internal/infrastructure/actor"
	"github.com/brandlens/brandlens/internal/infrastructure/store"
	"github.com/brandlens/brandlens/pkg/errors"
)

type fakeCache struct {
	docs   map[string]map[string]any // "<kind>/<key>" → data
	writes []string
}

func cacheKey(kind store.Kind, key string) string { return string(kind) + "/" + key }

func (f *fakeCache) Read(ctx context.Context, kind store.Kind, key string) (map[string]any, time.Time, bool) {
	data, ok := f.docs[cacheKey(kind, key)]
	if !ok {
		return nil, time.Time{}, false
	}
	return data, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), true
}

func (f *fakeCache) Write(ctx context.Context, kind store.Kind, key string, data map[string]any) {
	if f.docs == nil {
		f.docs = map[string]map[string]any{}
	}
	f.docs[cacheKey(kind, key)] = data
	f.writes = append(f.writes, cacheKey(kind, key))
}

type fakeActor struct {
	items   []map[string]any
	err     error
	lastID  string
	lastIn  map[string]any
	invoked int
}

func (f *fakeActor) Run(ctx context.Context, actorID string, input map[string]any, limits actor.RunLimits) ([]map[string]any, error) {
	f.invoked++
	f.lastID = actorID
	f.lastIn = input
	return f.items, f.err
}

type fakeAnalytics struct {
	stats    map[string]any
	enrolled []string
}

func (f *fakeAnalytics) HashtagStats(ctx context.Context, tag string) (map[string]any, error) {
	if f.stats == nil {
		return nil, errors.NewNotFoundError("no cached posts")
	}
	return f.stats, nil
}

func (f *fakeAnalytics) EngagementStats(ctx context.Context, username string) (map[string]any, error) {
	return map[string]any{"username": username, "avgLikes": 10.0}, nil
}

func (f *fakeAnalytics) SearchInfluencers(ctx context.Context, query string, minFollowers, limit int) ([]map[string]any, error) {
	return []map[string]any{{"username": "a"}}, nil
}

func (f *fakeAnalytics) RankInfluencers(ctx context.Context, topic string, limit int) ([]map[string]any, error) {
	return nil, nil
}

func (f *fakeAnalytics) EnrollInfluencer(ctx context.Context, username string, profile map[string]any) error {
	f.enrolled = append(f.enrolled, username)
	return nil
}

type fakeCampaigns struct {
	registered []string
	deleted    []string
	snapshots  []map[string]any
	touched    []string
}

func (f *fakeCampaigns) Register(ctx context.Context, shortcode, username, campaign string) (*store.CampaignPost, error) {
	f.registered = append(f.registered, shortcode)
	return &store.CampaignPost{
		Shortcode:    shortcode,
		Username:     username,
		Campaign:     campaign,
		Status:       store.CampaignStatusActive,
		RegisteredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeCampaigns) TouchChecked(ctx context.Context, shortcode string) error {
	f.touched = append(f.touched, shortcode)
	return nil
}

func (f *fakeCampaigns) MarkDeleted(ctx context.Context, shortcode string) error {
	f.deleted = append(f.deleted, shortcode)
	return nil
}

func (f *fakeCampaigns) AppendSnapshot(ctx context.Context, shortcode string, metrics map[string]any) error {
	f.snapshots = append(f.snapshots, metrics)
	return nil
}

func (f *fakeCampaigns) SnapshotHistory(ctx context.Context, shortcode string, limit int) ([]map[string]any, error) {
	return f.snapshots, nil
}

func testDeps(cache *fakeCache, act *fakeActor, an *fakeAnalytics, camp *fakeCampaigns) Deps {
	if cache == nil {
		cache = &fakeCache{}
	}
	if act == nil {
		act = &fakeActor{}
	}
	if an == nil {
		an = &fakeAnalytics{}
	}
	if camp == nil {
		camp = &fakeCampaigns{}
	}
	return Deps{
		Cache:     cache,
		Actor:     act,
		Analytics: an,
		Campaigns: camp,
		Actors: ActorIDs{
			Profile:      "act~profile",
			Posts:        "act~posts",
			Reels:        "act~reels",
			HashtagPosts: "act~hashtags",
			PostDetail:   "act~detail",
		},
	}
}

func TestGetProfileCacheHit(t *testing.T) {
	cache := &fakeCache{docs: map[string]map[string]any{
		"profile/nasa": {"profile": map[string]any{"username": "nasa", "followers": int64(9000)}},
	}}
	act := &fakeActor{}
	tool := newGetProfile(testDeps(cache, act, nil, nil))

	payload, err := tool.Execute(context.Background(), map[string]any{"username": "@NASA"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["cacheHit"] != true {
		t.Fatalf("payload = %+v", payload)
	}
	if payload["cachedAt"] == "" {
		t.Fatal("cachedAt missing on hit")
	}
	if act.invoked != 0 {
		t.Fatal("actor called on cache hit")
	}
}

func TestGetProfileCacheMissFetchesAndWrites(t *testing.T) {
	cache := &fakeCache{}
	act := &fakeActor{items: []map[string]any{
		{"username": "NASA", "fullName": "NASA", "followersCount": 9000.0},
	}}
	tool := newGetProfile(testDeps(cache, act, nil, nil))

	payload, err := tool.Execute(context.Background(), map[string]any{"username": "nasa"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["cacheHit"] != false {
		t.Fatalf("payload = %+v", payload)
	}
	profile := payload["profile"].(map[string]any)
	if profile["username"] != "nasa" || profile["followers"] != int64(9000) {
		t.Fatalf("profile = %+v", profile)
	}
	if len(cache.writes) != 1 || cache.writes[0] != "profile/nasa" {
		t.Fatalf("cache writes = %v", cache.writes)
	}
	if act.lastID != "act~profile" {
		t.Fatalf("actor id = %q", act.lastID)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	tool := newGetProfile(testDeps(nil, &fakeActor{items: nil}, nil, nil))
	_, err := tool.Execute(context.Background(), map[string]any{"username": "ghost"})
	if !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestGetUserPostsValidatesLimit(t *testing.T) {
	tool := newGetUserPosts(testDeps(nil, nil, nil, nil))
	_, err := tool.Execute(context.Background(), map[string]any{"username": "x", "limit": 99.0})
	if !errors.IsInvalidInput(err) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestGetUserPostsShapesItems(t *testing.T) {
	act := &fakeActor{items: []map[string]any{
		{"shortCode": "abc", "likesCount": 10.0, "commentsCount": 2.0, "caption": "hello"},
	}}
	cache := &fakeCache{}
	tool := newGetUserPosts(testDeps(cache, act, nil, nil))

	payload, err := tool.Execute(context.Background(), map[string]any{"username": "x"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["totalFetched"] != 1 {
		t.Fatalf("totalFetched = %v", payload["totalFetched"])
	}
	posts := payload["posts"].([]any)
	post := posts[0].(map[string]any)
	if post["shortcode"] != "abc" || post["likes"] != int64(10) {
		t.Fatalf("post = %+v", post)
	}
}

func TestCheckUserTopicPostsFilters(t *testing.T) {
	cache := &fakeCache{docs: map[string]map[string]any{
		"post/x": {
			"username": "x",
			"posts": []any{
				map[string]any{"shortcode": "a", "caption": "New SKINCARE routine"},
				map[string]any{"shortcode": "b", "caption": "my dog"},
			},
			"totalFetched": 2,
		},
	}}
	tool := newCheckUserTopicPosts(testDeps(cache, nil, nil, nil))

	payload, err := tool.Execute(context.Background(), map[string]any{"username": "x", "topic": "skincare"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["matchCount"] != 1 || payload["postedOnTopic"] != true {
		t.Fatalf("payload = %+v", payload)
	}
	if payload["checkedPosts"] != 2 {
		t.Fatalf("checkedPosts = %v", payload["checkedPosts"])
	}
	if payload["cacheHit"] != true {
		t.Fatalf("cacheHit = %v", payload["cacheHit"])
	}
}

func TestGetHashtagStatsReadThrough(t *testing.T) {
	an := &fakeAnalytics{stats: map[string]any{"hashtag": "skincare", "postCount": int64(12)}}
	cache := &fakeCache{}
	tool := newGetHashtagStats(testDeps(cache, nil, an, nil))

	payload, err := tool.Execute(context.Background(), map[string]any{"hashtag": "#Skincare"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["cacheHit"] != false {
		t.Fatalf("payload = %+v", payload)
	}
	if len(cache.writes) != 1 || cache.writes[0] != "hashtag_stats/skincare" {
		t.Fatalf("cache writes = %v", cache.writes)
	}

	payload, err = tool.Execute(context.Background(), map[string]any{"hashtag": "skincare"})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if payload["cacheHit"] != true {
		t.Fatal("second read missed the cache")
	}
}

func TestMonitorCampaignPostRecordsSnapshot(t *testing.T) {
	camp := &fakeCampaigns{}
	act := &fakeActor{items: []map[string]any{
		{"shortCode": "abc", "likesCount": 100.0, "commentsCount": 5.0},
	}}
	tool := newMonitorCampaignPost(testDeps(nil, act, nil, camp))

	payload, err := tool.Execute(context.Background(), map[string]any{"shortcode": "abc"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["status"] != store.CampaignStatusActive {
		t.Fatalf("status = %v", payload["status"])
	}
	if len(camp.snapshots) != 1 || camp.snapshots[0]["likes"] != int64(100) {
		t.Fatalf("snapshots = %+v", camp.snapshots)
	}
	if len(camp.touched) != 1 {
		t.Fatal("lastCheckedAt not touched")
	}
}

func TestMonitorCampaignPostMarksDeleted(t *testing.T) {
	camp := &fakeCampaigns{}
	tool := newMonitorCampaignPost(testDeps(nil, &fakeActor{items: nil}, nil, camp))

	payload, err := tool.Execute(context.Background(), map[string]any{"shortcode": "gone"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["status"] != store.CampaignStatusDeleted {
		t.Fatalf("status = %v", payload["status"])
	}
	if len(camp.deleted) != 1 || camp.deleted[0] != "gone" {
		t.Fatalf("deleted = %v", camp.deleted)
	}
	if len(camp.snapshots) != 0 {
		t.Fatal("snapshot recorded for deleted post")
	}
}

func TestAutoEnrollHook(t *testing.T) {
	an := &fakeAnalytics{}
	hook := NewAutoEnrollHook(an, zap.NewNop())

	hook(context.Background(), "get_profile", map[string]any{
		"profile": map[string]any{"username": "nasa", "followers": int64(9000)},
	})
	hook(context.Background(), "check_user_topic_posts", map[string]any{
		"username": "x", "topic": "skincare", "postedOnTopic": true,
	})
	hook(context.Background(), "check_user_topic_posts", map[string]any{
		"username": "y", "topic": "skincare", "postedOnTopic": false,
	})
	hook(context.Background(), "get_user_posts", map[string]any{"username": "z"})

	if len(an.enrolled) != 2 || an.enrolled[0] != "nasa" || an.enrolled[1] != "x" {
		t.Fatalf("enrolled = %v", an.enrolled)
	}
}

func TestRegisterAllTools(t *testing.T) {
	registry := domaintool.NewInMemoryRegistry()
	if err := RegisterAllTools(registry, testDeps(nil, nil, nil, nil)); err != nil {
		t.Fatalf("RegisterAllTools: %v", err)
	}
	defs := registry.List()
	if len(defs) != 11 {
		t.Fatalf("registered tools = %d, want 11", len(defs))
	}
	if registry.Label("get_hashtag_stats") != "Crunching hashtag stats" {
		t.Fatalf("label = %q", registry.Label("get_hashtag_stats"))
	}
}
