package tool

import (
	"context"
	"strings"

	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/internal/infrastructure/store"
)

// newGetHashtagStats builds the hashtag stats tool: cache(hashtag stats) →
// store aggregation over the cached hashtag posts.
func newGetHashtagStats(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "get_hashtag_stats",
		label:       "Crunching hashtag stats",
		description: "Summarize a hashtag: post volume, average engagement, unique creators. Needs hashtag posts fetched first.",
		schema: objectSchema([]string{"hashtag"}, map[string]any{
			"hashtag": stringProp("Hashtag without the # prefix."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			tag, err := args.String("hashtag")
			if err != nil {
				return nil, err
			}
			tag = strings.ToLower(strings.TrimPrefix(tag, "#"))

			if data, cachedAt, ok := deps.Cache.Read(ctx, store.KindHashtagStats, tag); ok {
				return cacheHitPayload(data, cachedAt), nil
			}

			stats, err := deps.Analytics.HashtagStats(ctx, tag)
			if err != nil {
				return nil, err
			}
			deps.Cache.Write(ctx, store.KindHashtagStats, tag, stats)
			return cacheMissPayload(stats), nil
		},
	}
}

// newAnalyzeEngagement builds the engagement analysis tool over cached posts.
func newAnalyzeEngagement(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "analyze_engagement",
		label:       "Analyzing engagement",
		description: "Compute a creator's engagement numbers from their cached posts. Needs posts fetched first.",
		schema: objectSchema([]string{"username"}, map[string]any{
			"username": stringProp("Creator handle without the @ prefix."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			username, err := args.String("username")
			if err != nil {
				return nil, err
			}
			username = strings.ToLower(strings.TrimPrefix(username, "@"))
			return deps.Analytics.EngagementStats(ctx, username)
		},
	}
}

// newSearchInfluencers builds the influencer index search tool.
func newSearchInfluencers(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "search_influencers",
		label:       "Searching influencers",
		description: "Search indexed influencers by topic or name, optionally with a follower floor.",
		schema: objectSchema(nil, map[string]any{
			"query":        stringProp("Topic or name fragment to search for."),
			"minFollowers": intProp("Minimum follower count, default 0."),
			"limit":        intProp("Maximum results, 1-50, default 10."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			query, err := args.OptionalString("query", "")
			if err != nil {
				return nil, err
			}
			minFollowers, err := args.Int("minFollowers", 0, 1_000_000_000, 0)
			if err != nil {
				return nil, err
			}
			limit, err := args.Int("limit", 1, 50, 10)
			if err != nil {
				return nil, err
			}

			results, err := deps.Analytics.SearchInfluencers(ctx, strings.ToLower(query), minFollowers, limit)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"query":   query,
				"results": anySlice(results),
				"count":   len(results),
			}, nil
		},
	}
}

// newRankInfluencers builds the ranking tool over the influencer index.
func newRankInfluencers(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "rank_influencers",
		label:       "Ranking influencers",
		description: "Rank indexed influencers for a topic by engagement score.",
		schema: objectSchema(nil, map[string]any{
			"topic": stringProp("Topic to rank within; empty ranks across all topics."),
			"limit": intProp("Maximum results, 1-50, default 10."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			topic, err := args.OptionalString("topic", "")
			if err != nil {
				return nil, err
			}
			limit, err := args.Int("limit", 1, 50, 10)
			if err != nil {
				return nil, err
			}

			results, err := deps.Analytics.RankInfluencers(ctx, strings.ToLower(topic), limit)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"topic":   topic,
				"results": anySlice(results),
				"count":   len(results),
			}, nil
		},
	}
}

func anySlice(rows []map[string]any) []any {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	return out
}
