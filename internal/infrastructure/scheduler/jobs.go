package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/service"
	"github.com/brandlens/brandlens/internal/infrastructure/store"
	"github.com/brandlens/brandlens/pkg/clock"
)

const callThrottle = 2 * time.Second

// CampaignSource lists the posts the monitor job walks.
type CampaignSource interface {
	Active(ctx context.Context) ([]store.CampaignPost, error)
}

// Jobs owns the concrete job bodies. Tool invocations go through the
// dispatcher so monitoring and prefetching share the tool-set code paths
// with the orchestrator.
type Jobs struct {
	dispatcher service.ToolDispatcher
	campaigns  CampaignSource
	hashtags   []string
	clock      clock.Clock
	logger     *zap.Logger
}

func NewJobs(dispatcher service.ToolDispatcher, campaigns CampaignSource, hashtags []string, clk clock.Clock, logger *zap.Logger) *Jobs {
	return &Jobs{
		dispatcher: dispatcher,
		campaigns:  campaigns,
		hashtags:   hashtags,
		clock:      clk,
		logger:     logger.With(zap.String("component", "jobs")),
	}
}

// checkInterval maps a post's age since registration to its monitoring
// cadence. Young posts change fast and get sampled often.
func checkInterval(age time.Duration) time.Duration {
	switch {
	case age < 24*time.Hour:
		return 2 * time.Hour
	case age < 72*time.Hour:
		return 4 * time.Hour
	case age < 7*24*time.Hour:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// MonitorActivePosts samples every registered post whose cadence says it is
// due. Failures log and continue; one bad post never stops the sweep.
func (j *Jobs) MonitorActivePosts(ctx context.Context) {
	posts, err := j.campaigns.Active(ctx)
	if err != nil {
		j.logger.Error("Load active campaign posts failed", zap.Error(err))
		return
	}

	checked := 0
	for _, post := range posts {
		if ctx.Err() != nil {
			return
		}

		age := j.clock.Since(post.RegisteredAt)
		if j.clock.Since(post.LastCheckedAt) < checkInterval(age) {
			continue
		}

		_, info := j.dispatcher.Invoke(ctx, "monitor_campaign_post",
			map[string]any{"shortcode": post.Shortcode}, nil, false)
		if info.Error != "" {
			j.logger.Warn("Campaign post check failed",
				zap.String("shortcode", post.Shortcode),
				zap.String("error", info.Error),
			)
		}
		checked++
		j.clock.Sleep(callThrottle)
	}
	j.logger.Info("Campaign monitoring pass done",
		zap.Int("total", len(posts)), zap.Int("checked", checked))
}

// PrefetchHashtags warms the hashtag cache for the configured home hashtags.
func (j *Jobs) PrefetchHashtags(ctx context.Context) {
	for _, tag := range j.hashtags {
		if ctx.Err() != nil {
			return
		}

		_, info := j.dispatcher.Invoke(ctx, "get_hashtag_posts",
			map[string]any{"hashtag": tag}, nil, false)
		if info.Error != "" {
			j.logger.Warn("Hashtag prefetch failed",
				zap.String("hashtag", tag),
				zap.String("error", info.Error),
			)
		}
		j.clock.Sleep(callThrottle)
	}
	j.logger.Info("Hashtag prefetch pass done", zap.Int("hashtags", len(j.hashtags)))
}

// Register wires the two jobs onto a scheduler with their cadences.
func (j *Jobs) Register(s *Scheduler) {
	s.Add(&Job{
		Name:     "monitor_active_posts",
		Interval: time.Hour,
		Run:      j.MonitorActivePosts,
	})
	s.Add(&Job{
		Name:         "prefetch_hashtags",
		Interval:     6 * time.Hour,
		InitialDelay: 10 * time.Second,
		Run:          j.PrefetchHashtags,
	})
}
