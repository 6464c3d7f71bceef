// Package application wires the infrastructure into a runnable server.
package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/service"
	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/internal/infrastructure/actor"
	"github.com/brandlens/brandlens/internal/infrastructure/config"
	"github.com/brandlens/brandlens/internal/infrastructure/llm"
	"github.com/brandlens/brandlens/internal/infrastructure/llm/gemini"
	"github.com/brandlens/brandlens/internal/infrastructure/scheduler"
	"github.com/brandlens/brandlens/internal/infrastructure/store"
	"github.com/brandlens/brandlens/internal/infrastructure/tool"
	ihttp "github.com/brandlens/brandlens/internal/interfaces/http"
	"github.com/brandlens/brandlens/pkg/clock"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *store.Store
	sessions  *service.SessionStore
	scheduler *scheduler.Scheduler
	server    *ihttp.Server

	cancel context.CancelFunc
}

// New connects the store and builds the full component graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	clk := clock.Real{}

	st, err := store.Connect(context.Background(), cfg.Store.URI, cfg.Store.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureIndexes(context.Background()); err != nil {
		return nil, err
	}

	cache := store.NewCache(st, clk, logger)
	analytics := store.NewAnalytics(st, clk, logger)
	campaigns := store.NewCampaigns(st, clk, logger)
	actorClient := actor.NewClient(cfg.Actors.BaseURL, cfg.Actors.Token, logger)

	registry := domaintool.NewInMemoryRegistry()
	deps := tool.Deps{
		Cache:     cache,
		Actor:     actorClient,
		Analytics: analytics,
		Campaigns: campaigns,
		Actors: tool.ActorIDs{
			Profile:      cfg.Actors.Profile,
			Posts:        cfg.Actors.Posts,
			Reels:        cfg.Actors.Reels,
			HashtagPosts: cfg.Actors.HashtagPosts,
			PostDetail:   cfg.Actors.PostDetail,
		},
	}
	if err := tool.RegisterAllTools(registry, deps); err != nil {
		return nil, err
	}

	dispatcher := tool.NewDispatcher(registry, logger)
	dispatcher.RegisterHook(tool.NewAutoEnrollHook(analytics, logger))

	// The provider is built on first use so a missing API key fails the first
	// chat, not the boot.
	llmClient := llm.NewLazy(func() (service.LLMClient, error) {
		return gemini.New(llm.Config{
			APIKey:          cfg.LLM.APIKey,
			Model:           cfg.LLM.Model,
			BaseURL:         cfg.LLM.BaseURL,
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		}, logger)
	})

	orchestrator := service.NewOrchestrator(llmClient, dispatcher, systemPrompt, logger)
	sessions := service.NewSessionStore(service.DefaultMaxSessions, service.DefaultSessionTTL, clk, logger)

	sched := scheduler.New(clk, logger)
	jobs := scheduler.NewJobs(dispatcher, campaigns, cfg.Scheduler.HomeHashtags, clk, logger)
	jobs.Register(sched)

	handler := ihttp.NewChatHandler(orchestrator, sessions, st, logger)
	server := ihttp.NewServer(ihttp.ServerConfig{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		CORSOrigin: cfg.Server.CORSOrigin,
	}, handler, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		sessions:  sessions,
		scheduler: sched,
		server:    server,
	}, nil
}

// Start launches the background workers and serves HTTP until the listener
// closes.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.sessions.StartSweeper(ctx)
	if a.cfg.Scheduler.Enabled {
		a.scheduler.Start(ctx)
	}

	return a.server.Run()
}

// Stop shuts down in dependency order: HTTP drain, background workers, store.
func (a *App) Stop(ctx context.Context) {
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("HTTP shutdown failed", zap.Error(err))
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.cfg.Scheduler.Enabled {
		a.scheduler.Stop()
	}

	disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Disconnect(disconnectCtx); err != nil {
		a.logger.Warn("Store disconnect failed", zap.Error(err))
	}
	a.logger.Info("Application stopped")
}
