package tool

import (
	"context"
	"fmt"
	"strings"

	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/internal/infrastructure/actor"
	"github.com/brandlens/brandlens/internal/infrastructure/store"
	"github.com/brandlens/brandlens/pkg/errors"
)

// newGetProfile builds the profile fetch tool: cache(profile) → actor.
func newGetProfile(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "get_profile",
		label:       "Fetching profile",
		description: "Fetch a creator's public profile: follower count, bio, post count.",
		schema: objectSchema([]string{"username"}, map[string]any{
			"username": stringProp("Creator handle without the @ prefix."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			username, err := args.String("username")
			if err != nil {
				return nil, err
			}
			username = strings.ToLower(strings.TrimPrefix(username, "@"))

			if data, cachedAt, ok := deps.Cache.Read(ctx, store.KindProfile, username); ok {
				return cacheHitPayload(data, cachedAt), nil
			}

			items, err := deps.Actor.Run(ctx, deps.Actors.Profile,
				map[string]any{"usernames": []string{username}},
				actor.RunLimits{MaxItems: 1})
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				return nil, errors.NewNotFoundError(fmt.Sprintf("profile @%s not found", username))
			}

			data := map[string]any{"profile": shapeProfile(items[0])}
			deps.Cache.Write(ctx, store.KindProfile, username, data)
			return cacheMissPayload(data), nil
		},
	}
}

// newGetUserPosts builds the recent-posts fetch tool: cache(post) → actor.
func newGetUserPosts(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "get_user_posts",
		label:       "Fetching recent posts",
		description: "Fetch a creator's recent posts with likes, comments and captions.",
		schema: objectSchema([]string{"username"}, map[string]any{
			"username": stringProp("Creator handle without the @ prefix."),
			"limit":    intProp("Number of posts to fetch, 1-50, default 12."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			return fetchUserMedia(ctx, deps, args, store.KindPost, deps.Actors.Posts, "posts")
		},
	}
}

// newGetUserReels builds the recent-reels fetch tool: cache(reel) → actor.
func newGetUserReels(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "get_user_reels",
		label:       "Fetching recent reels",
		description: "Fetch a creator's recent reels with view counts and engagement.",
		schema: objectSchema([]string{"username"}, map[string]any{
			"username": stringProp("Creator handle without the @ prefix."),
			"limit":    intProp("Number of reels to fetch, 1-50, default 12."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			return fetchUserMedia(ctx, deps, args, store.KindReel, deps.Actors.Reels, "reels")
		},
	}
}

// fetchUserMedia is the shared read-through for per-user media lists. The
// cache fingerprint is the username; the stored document carries the full
// list plus totalFetched.
func fetchUserMedia(ctx context.Context, deps Deps, args domaintool.Args, kind store.Kind, actorID, field string) (map[string]any, error) {
	username, err := args.String("username")
	if err != nil {
		return nil, err
	}
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	limit, err := args.Int("limit", 1, 50, 12)
	if err != nil {
		return nil, err
	}

	if data, cachedAt, ok := deps.Cache.Read(ctx, kind, username); ok {
		return cacheHitPayload(data, cachedAt), nil
	}

	items, err := deps.Actor.Run(ctx, actorID,
		map[string]any{"username": username, "resultsLimit": limit},
		actor.RunLimits{MaxItems: limit})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no %s found for @%s", field, username))
	}

	data := map[string]any{
		"username":     username,
		field:          shapePosts(items),
		"totalFetched": len(items),
	}
	deps.Cache.Write(ctx, kind, username, data)
	return cacheMissPayload(data), nil
}

// newGetHashtagPosts builds the hashtag exploration tool: cache(hashtag
// post) → actor.
func newGetHashtagPosts(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "get_hashtag_posts",
		label:       "Exploring hashtag posts",
		description: "Fetch recent posts under a hashtag to see who is active in a topic.",
		schema: objectSchema([]string{"hashtag"}, map[string]any{
			"hashtag": stringProp("Hashtag without the # prefix."),
			"limit":   intProp("Number of posts to fetch, 1-50, default 20."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			tag, err := args.String("hashtag")
			if err != nil {
				return nil, err
			}
			tag = strings.ToLower(strings.TrimPrefix(tag, "#"))
			limit, err := args.Int("limit", 1, 50, 20)
			if err != nil {
				return nil, err
			}

			if data, cachedAt, ok := deps.Cache.Read(ctx, store.KindHashtagPost, tag); ok {
				return cacheHitPayload(data, cachedAt), nil
			}

			items, err := deps.Actor.Run(ctx, deps.Actors.HashtagPosts,
				map[string]any{"hashtags": []string{tag}, "resultsLimit": limit},
				actor.RunLimits{MaxItems: limit})
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				return nil, errors.NewNotFoundError(fmt.Sprintf("no posts found for #%s", tag))
			}

			data := map[string]any{
				"hashtag":      tag,
				"posts":        shapePosts(items),
				"totalFetched": len(items),
			}
			deps.Cache.Write(ctx, store.KindHashtagPost, tag, data)
			return cacheMissPayload(data), nil
		},
	}
}

// newCheckUserTopicPosts builds the topic scan tool: the creator's post list
// through the post cache, then an in-memory caption match.
func newCheckUserTopicPosts(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "check_user_topic_posts",
		label:       "Scanning creator content",
		description: "Check whether a creator recently posted about a topic; returns the matching posts.",
		schema: objectSchema([]string{"username", "topic"}, map[string]any{
			"username": stringProp("Creator handle without the @ prefix."),
			"topic":    stringProp("Topic or keyword to look for in captions."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			topic, err := args.String("topic")
			if err != nil {
				return nil, err
			}

			payload, err := fetchUserMedia(ctx, deps, args, store.KindPost, deps.Actors.Posts, "posts")
			if err != nil {
				return nil, err
			}

			username, _ := payload["username"].(string)
			if username == "" {
				u, _ := args.String("username")
				username = strings.ToLower(strings.TrimPrefix(u, "@"))
			}

			posts, _ := payload["posts"].([]any)
			needle := strings.ToLower(topic)
			matches := make([]any, 0, len(posts))
			for _, p := range posts {
				post, ok := p.(map[string]any)
				if !ok {
					continue
				}
				caption, _ := post["caption"].(string)
				if strings.Contains(strings.ToLower(caption), needle) {
					matches = append(matches, post)
				}
			}

			result := map[string]any{
				"username":      username,
				"topic":         topic,
				"checkedPosts":  len(posts),
				"matchCount":    len(matches),
				"posts":         matches,
				"postedOnTopic": len(matches) > 0,
			}
			if hit, ok := payload["cacheHit"].(bool); ok {
				result["cacheHit"] = hit
			}
			if at, ok := payload["cachedAt"]; ok {
				result["cachedAt"] = at
			}
			return result, nil
		},
	}
}
