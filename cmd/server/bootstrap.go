package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tv-consensus-bot/internal/advisor"
	"tv-consensus-bot/internal/advisor/advisorobs"
	"tv-consensus-bot/internal/advisor/noop"
	"tv-consensus-bot/internal/advisor/openai"
	"tv-consensus-bot/internal/advisor/xai"
	"tv-consensus-bot/internal/api"
	"tv-consensus-bot/internal/config"
	"tv-consensus-bot/internal/dedup"
	"tv-consensus-bot/internal/delivery"
	"tv-consensus-bot/internal/engine"
	"tv-consensus-bot/internal/logger"
	"tv-consensus-bot/internal/marketnews"
	"tv-consensus-bot/internal/metrics"
	"tv-consensus-bot/internal/safety"
	"tv-consensus-bot/internal/trace"
	"tv-consensus-bot/internal/verdictlog"
)

// initializeSystem loads the environment and initializes logger and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// initializeDedup selects the dedup backend from config.
func initializeDedup(ctx context.Context, cfg *config.Config) (dedup.Store, func(), error) {
	minGap := time.Duration(cfg.Dedup.MinGapSeconds) * time.Second
	horizon := time.Duration(cfg.Dedup.BarTTLHours) * time.Hour

	if cfg.Dedup.Backend == "redis" {
		store, err := dedup.NewRedisStore(dedup.RedisOptions{
			Addr:     cfg.Dedup.Redis.Addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       cfg.Dedup.Redis.DB,
			Prefix:   cfg.Dedup.Redis.Prefix,
			MinGap:   minGap,
			Horizon:  horizon,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis dedup store: %w", err)
		}
		logger.Info(ctx, "Using Redis dedup store", "addr", cfg.Dedup.Redis.Addr)
		return store, func() { _ = store.Close() }, nil
	}

	logger.Info(ctx, "Using in-memory dedup store")
	return dedup.NewMemoryStore(minGap, horizon), func() {}, nil
}

// initializeAdvisors builds the configured advisory sources, each wrapped
// with observability middleware.
func initializeAdvisors(ctx context.Context, cfg *config.Config) []advisor.Advisor {
	client := api.NewClient(
		api.WithTimeout(time.Duration(cfg.Advisory.TimeoutSeconds)*time.Second),
		api.WithLogging(logger.IsDebugEnabled()),
	)

	advisors := make([]advisor.Advisor, 0, len(cfg.Advisory.Sources))
	for _, name := range cfg.Advisory.Sources {
		var src advisor.Advisor
		switch name {
		case "xai":
			src = xai.New(client, cfg.Advisory.XAI.Model, cfg.Advisory.XAI.Temperature)
		case "openai":
			src = openai.New(client, cfg.Advisory.OpenAI.Model, cfg.Advisory.OpenAI.Temperature)
		default:
			src = noop.New()
			logger.Warn(ctx, "Unknown advisory source - using noop", "source", name)
		}
		advisors = append(advisors, advisorobs.Wrap(src))
	}
	return advisors
}

// initializeNotifier prefers Telegram and falls back to log delivery
// when credentials are absent, so every verdict still goes somewhere.
func initializeNotifier(ctx context.Context, cfg *config.Config) delivery.Notifier {
	if cfg.Telegram.Enabled {
		client := api.NewClient(api.WithTimeout(15 * time.Second))
		notifier, err := delivery.NewTelegramNotifier(client)
		if err == nil {
			logger.Info(ctx, "Using Telegram delivery")
			return notifier
		}
		logger.Warn(ctx, "Telegram unavailable - falling back to log delivery", "error", err)
	}
	return delivery.NewLogNotifier()
}

// initializeEngine wires the full pipeline.
func initializeEngine(ctx context.Context, cfg *config.Config, store dedup.Store) *engine.Engine {
	news := marketnews.NewService(&marketnews.ServiceConfig{
		MaxHeadlines:   cfg.News.MaxHeadlines,
		CacheDuration:  time.Duration(cfg.News.CacheMinutes) * time.Minute,
		ScraperTimeout: time.Duration(cfg.News.TimeoutSeconds) * time.Second,
		Enabled:        cfg.News.Enabled,
	})

	vlog := verdictlog.New(cfg.VerdictLog.Dir)
	if err := vlog.CompressOlder(cfg.VerdictLog.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old verdict logs", "error", err)
	}

	return engine.New(engine.Options{
		Advisors: initializeAdvisors(ctx, cfg),
		Store:    store,
		Safety: safety.New(safety.Limits{
			RSIMin:            cfg.Safety.RSIMin,
			RSIMax:            cfg.Safety.RSIMax,
			MomentumFloor:     cfg.Safety.MomentumFloor,
			MaxReversalPoints: cfg.Safety.MaxReversalPoints,
			MinRiskReward:     cfg.Safety.MinRiskReward,
		}),
		News:          news,
		Notifier:      initializeNotifier(ctx, cfg),
		Recorder:      metrics.New(),
		VerdictLog:    vlog,
		CallTimeout:   time.Duration(cfg.Advisory.TimeoutSeconds) * time.Second,
		Budget:        time.Duration(cfg.Advisory.BudgetSeconds) * time.Second,
		BatchesPerMin: cfg.Advisory.MaxBatchesPerMinute,
	})
}
