package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	"github.com/brandlens/brandlens/internal/domain/service"
	"github.com/brandlens/brandlens/pkg/clock"
)

type fakeCollection struct {
	docs    map[string]CachedDoc
	findErr error
	upErr   error
}

func (f *fakeCollection) FindOneDoc(ctx context.Context, key string) (*CachedDoc, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	doc, ok := f.docs[key]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (f *fakeCollection) UpsertDoc(ctx context.Context, doc CachedDoc) error {
	if f.upErr != nil {
		return f.upErr
	}
	f.docs[doc.Key] = doc
	return nil
}

func newTestCache(coll *fakeCollection) (*Cache, *clock.Fake) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return &Cache{
		colls:  func(Kind) cacheCollection { return coll },
		clock:  fake,
		logger: zap.NewNop(),
	}, fake
}

func TestCacheReadFreshDocument(t *testing.T) {
	coll := &fakeCollection{docs: map[string]CachedDoc{}}
	cache, fake := newTestCache(coll)

	cache.Write(context.Background(), KindProfile, "nasa", map[string]any{"followers": 9000})
	fake.Advance(23 * time.Hour)

	data, cachedAt, ok := cache.Read(context.Background(), KindProfile, "nasa")
	if !ok {
		t.Fatal("fresh document reported as miss")
	}
	if data["followers"] != 9000 {
		t.Fatalf("data = %+v", data)
	}
	if fake.Since(cachedAt) != 23*time.Hour {
		t.Fatalf("cachedAt = %v", cachedAt)
	}
}

func TestCacheReadStaleIsMiss(t *testing.T) {
	coll := &fakeCollection{docs: map[string]CachedDoc{}}
	cache, fake := newTestCache(coll)

	cache.Write(context.Background(), KindPost, "nasa", map[string]any{"posts": []any{}})
	fake.Advance(TTLFor(KindPost))

	if _, _, ok := cache.Read(context.Background(), KindPost, "nasa"); ok {
		t.Fatal("document at exactly TTL age served as fresh")
	}
}

func TestCacheReadErrorIsMiss(t *testing.T) {
	coll := &fakeCollection{findErr: fmt.Errorf("connection reset")}
	cache, _ := newTestCache(coll)

	if _, _, ok := cache.Read(context.Background(), KindProfile, "nasa"); ok {
		t.Fatal("lookup error served as hit")
	}
}

func TestCacheWriteIsBestEffort(t *testing.T) {
	coll := &fakeCollection{upErr: fmt.Errorf("write concern failed")}
	cache, _ := newTestCache(coll)

	// Must not panic or surface the error.
	cache.Write(context.Background(), KindProfile, "nasa", map[string]any{})
}

func TestCacheWriteOverwrites(t *testing.T) {
	coll := &fakeCollection{docs: map[string]CachedDoc{}}
	cache, _ := newTestCache(coll)

	cache.Write(context.Background(), KindProfile, "nasa", map[string]any{"followers": 1})
	cache.Write(context.Background(), KindProfile, "nasa", map[string]any{"followers": 2})

	data, _, ok := cache.Read(context.Background(), KindProfile, "nasa")
	if !ok || data["followers"] != 2 {
		t.Fatalf("data = %+v, want second write to win", data)
	}
}

// bsonRoundTrip pushes a document through the driver's codec the way a real
// FindOne does, so nested arrays come back as primitive.A and nested
// documents as driver map types rather than the plain types Write received.
func bsonRoundTrip(t *testing.T, doc CachedDoc) CachedDoc {
	t.Helper()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded CachedDoc
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return decoded
}

func TestCacheReadNormalizesDriverTypes(t *testing.T) {
	doc := bsonRoundTrip(t, CachedDoc{
		Key:      "glowbeauty",
		CachedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Data: map[string]any{
			"username":     "glowbeauty",
			"totalFetched": 2,
			"posts": []any{
				map[string]any{"shortcode": "p1", "caption": "My SKINCARE routine"},
				map[string]any{"shortcode": "p2", "caption": "travel vlog"},
			},
		},
	})
	coll := &fakeCollection{docs: map[string]CachedDoc{"glowbeauty": doc}}
	cache, _ := newTestCache(coll)

	data, _, ok := cache.Read(context.Background(), KindPost, "glowbeauty")
	if !ok {
		t.Fatal("fresh document reported as miss")
	}
	posts, ok := data["posts"].([]any)
	if !ok {
		t.Fatalf("posts decoded as %T, want []any", data["posts"])
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %v", posts)
	}
	first, ok := posts[0].(map[string]any)
	if !ok {
		t.Fatalf("post decoded as %T, want map[string]any", posts[0])
	}
	caption, _ := first["caption"].(string)
	if !strings.Contains(strings.ToLower(caption), "skincare") {
		t.Fatalf("caption = %q", caption)
	}
}

func TestCacheReadPayloadTrimsInHistory(t *testing.T) {
	posts := make([]any, 5)
	for i := range posts {
		posts[i] = map[string]any{"shortcode": fmt.Sprintf("p%d", i)}
	}
	doc := bsonRoundTrip(t, CachedDoc{
		Key:      "glowbeauty",
		CachedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Data:     map[string]any{"posts": posts, "totalFetched": 5},
	})
	coll := &fakeCollection{docs: map[string]CachedDoc{"glowbeauty": doc}}
	cache, _ := newTestCache(coll)

	data, _, ok := cache.Read(context.Background(), KindPost, "glowbeauty")
	if !ok {
		t.Fatal("fresh document reported as miss")
	}
	history := service.TrimHistory([]entity.Turn{{
		Role:  entity.RoleUser,
		Parts: []entity.Part{entity.ResponsePart("get_user_posts", data)},
	}})
	payload := history[0].Parts[0].FunctionResponse.Response
	got, ok := payload["posts"].(string)
	if !ok || !strings.Contains(got, "5 posts") {
		t.Fatalf("posts = %v (%T), want placeholder string", payload["posts"], payload["posts"])
	}
}

func TestTTLTable(t *testing.T) {
	cases := map[Kind]time.Duration{
		KindProfile:      24 * time.Hour,
		KindPost:         6 * time.Hour,
		KindReel:         6 * time.Hour,
		KindHashtagPost:  12 * time.Hour,
		KindHashtagStats: 12 * time.Hour,
		KindSnapshot:     180 * 24 * time.Hour,
	}
	for kind, want := range cases {
		if got := TTLFor(kind); got != want {
			t.Fatalf("TTLFor(%s) = %v, want %v", kind, got, want)
		}
	}
}

func TestCollectionForCoversAllKinds(t *testing.T) {
	seen := map[string]Kind{}
	for _, kind := range AllKinds {
		name := CollectionFor(kind)
		if name == "" {
			t.Fatalf("no collection for %s", kind)
		}
		if prev, dup := seen[name]; dup {
			t.Fatalf("kinds %s and %s share collection %s", prev, kind, name)
		}
		seen[name] = kind
	}
}
