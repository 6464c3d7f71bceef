package tool

import (
	"context"
	"strings"

	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/internal/infrastructure/actor"
	"github.com/brandlens/brandlens/internal/infrastructure/store"
)

// newRegisterCampaignPost builds the registration tool for campaign posts
// the scheduler will keep sampling.
func newRegisterCampaignPost(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "register_campaign_post",
		label:       "Registering campaign post",
		description: "Register a post for ongoing campaign monitoring by its shortcode.",
		schema: objectSchema([]string{"shortcode", "username"}, map[string]any{
			"shortcode": stringProp("Public shortcode of the post."),
			"username":  stringProp("Creator handle the post belongs to."),
			"campaign":  stringProp("Optional campaign name for grouping."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			shortcode, err := args.String("shortcode")
			if err != nil {
				return nil, err
			}
			username, err := args.String("username")
			if err != nil {
				return nil, err
			}
			campaign, err := args.OptionalString("campaign", "")
			if err != nil {
				return nil, err
			}

			post, err := deps.Campaigns.Register(ctx,
				shortcode, strings.ToLower(strings.TrimPrefix(username, "@")), campaign)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"shortcode":    post.Shortcode,
				"username":     post.Username,
				"campaign":     post.Campaign,
				"status":       post.Status,
				"registeredAt": isoOrEmpty(post.RegisteredAt),
			}, nil
		},
	}
}

// newMonitorCampaignPost builds the monitoring tool: fetch current metrics
// through the actor, append a snapshot, and return the recent history. An
// empty dataset means the post is gone upstream and gets flagged deleted.
func newMonitorCampaignPost(deps Deps) domaintool.Tool {
	return &funcTool{
		name:        "monitor_campaign_post",
		label:       "Checking campaign post",
		description: "Sample a registered post's current metrics and record a snapshot.",
		schema: objectSchema([]string{"shortcode"}, map[string]any{
			"shortcode": stringProp("Public shortcode of the registered post."),
		}),
		run: func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			shortcode, err := args.String("shortcode")
			if err != nil {
				return nil, err
			}

			items, err := deps.Actor.Run(ctx, deps.Actors.PostDetail,
				map[string]any{"shortcodes": []string{shortcode}},
				actor.RunLimits{MaxItems: 1})
			if err != nil {
				return nil, err
			}

			if len(items) == 0 {
				if err := deps.Campaigns.MarkDeleted(ctx, shortcode); err != nil {
					return nil, err
				}
				return map[string]any{
					"shortcode": shortcode,
					"status":    store.CampaignStatusDeleted,
				}, nil
			}

			post := shapePost(items[0])
			metrics := map[string]any{
				"likes":    post["likes"],
				"comments": post["comments"],
				"views":    post["views"],
			}
			if err := deps.Campaigns.AppendSnapshot(ctx, shortcode, metrics); err != nil {
				return nil, err
			}
			if err := deps.Campaigns.TouchChecked(ctx, shortcode); err != nil {
				return nil, err
			}

			history, err := deps.Campaigns.SnapshotHistory(ctx, shortcode, 5)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"shortcode": shortcode,
				"status":    store.CampaignStatusActive,
				"metrics":   metrics,
				"history":   anySlice(history),
			}, nil
		},
	}
}
