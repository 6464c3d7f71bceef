package tool

import (
	"context"
	"strings"
	"time"

	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
)

// funcTool adapts a name/label/schema plus a run function to the Tool
// interface. All concrete tools are built from it.
type funcTool struct {
	name        string
	label       string
	description string
	schema      map[string]any
	run         func(ctx context.Context, args domaintool.Args) (map[string]any, error)
}

func (t *funcTool) Name() string           { return t.name }
func (t *funcTool) Label() string          { return t.label }
func (t *funcTool) Description() string    { return t.description }
func (t *funcTool) Schema() map[string]any { return t.schema }

func (t *funcTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.run(ctx, domaintool.Args(args))
}

func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

// --- raw upstream item shaping ---

// pickString returns the first present non-empty string among keys. Upstream
// actors are inconsistent about field spelling across versions.
func pickString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := item[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func pickNumber(item map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch n := item[k].(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case int32:
			return float64(n)
		}
	}
	return 0
}

func shapeProfile(item map[string]any) map[string]any {
	return map[string]any{
		"username":  strings.ToLower(pickString(item, "username", "userName", "handle")),
		"fullName":  pickString(item, "fullName", "full_name", "name"),
		"bio":       pickString(item, "biography", "bio"),
		"followers": int64(pickNumber(item, "followersCount", "followers", "followerCount")),
		"following": int64(pickNumber(item, "followsCount", "following")),
		"postCount": int64(pickNumber(item, "postsCount", "mediaCount")),
		"verified":  item["verified"] == true || item["isVerified"] == true,
		"private":   item["private"] == true || item["isPrivate"] == true,
	}
}

func shapePost(item map[string]any) map[string]any {
	return map[string]any{
		"shortcode": pickString(item, "shortCode", "shortcode", "code"),
		"username":  strings.ToLower(pickString(item, "ownerUsername", "username")),
		"caption":   pickString(item, "caption", "text"),
		"likes":     int64(pickNumber(item, "likesCount", "likes", "likeCount")),
		"comments":  int64(pickNumber(item, "commentsCount", "comments", "commentCount")),
		"views":     int64(pickNumber(item, "videoViewCount", "viewCount", "plays")),
		"takenAt":   pickString(item, "timestamp", "takenAt"),
		"url":       pickString(item, "url", "postUrl"),
	}
}

func shapePosts(items []map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, shapePost(item))
	}
	return out
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func cacheHitPayload(data map[string]any, cachedAt time.Time) map[string]any {
	out := make(map[string]any, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["cacheHit"] = true
	out["cachedAt"] = isoOrEmpty(cachedAt)
	return out
}

func cacheMissPayload(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["cacheHit"] = false
	return out
}
