package tool

import (
	"context"

	"go.uber.org/zap"

	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
)

// RegisterAllTools fills the registry with the full tool set.
func RegisterAllTools(registry domaintool.Registry, deps Deps) error {
	tools := []domaintool.Tool{
		newGetProfile(deps),
		newGetUserPosts(deps),
		newGetUserReels(deps),
		newGetHashtagPosts(deps),
		newGetHashtagStats(deps),
		newSearchInfluencers(deps),
		newCheckUserTopicPosts(deps),
		newAnalyzeEngagement(deps),
		newRankInfluencers(deps),
		newRegisterCampaignPost(deps),
		newMonitorCampaignPost(deps),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// NewAutoEnrollHook returns the post-tool hook that feeds the influencer
// index: a fetched profile or a positive topic scan enrolls the creator.
// Registered on the dispatcher from main so tools stay decoupled from the
// side effect.
func NewAutoEnrollHook(analytics Analytics, logger *zap.Logger) Hook {
	logger = logger.With(zap.String("component", "auto_enroll"))
	return func(ctx context.Context, name string, payload map[string]any) {
		var username string
		var profile map[string]any

		switch name {
		case "get_profile":
			p, ok := payload["profile"].(map[string]any)
			if !ok {
				return
			}
			username, _ = p["username"].(string)
			profile = p
		case "check_user_topic_posts":
			if payload["postedOnTopic"] != true {
				return
			}
			username, _ = payload["username"].(string)
			profile = map[string]any{}
			if topic, ok := payload["topic"].(string); ok && topic != "" {
				profile["topics"] = []string{topic}
			}
		default:
			return
		}

		if username == "" {
			return
		}
		if err := analytics.EnrollInfluencer(ctx, username, profile); err != nil {
			logger.Warn("Auto-enroll failed",
				zap.String("username", username), zap.Error(err))
			return
		}
		logger.Debug("Auto-enrolled influencer", zap.String("username", username))
	}
}
