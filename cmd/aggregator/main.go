package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/memescope/aggregator/internal/broadcast"
	"github.com/memescope/aggregator/internal/cache"
	"github.com/memescope/aggregator/internal/config"
	"github.com/memescope/aggregator/internal/model"
	"github.com/memescope/aggregator/internal/scheduler"
	"github.com/memescope/aggregator/internal/server"
	"github.com/memescope/aggregator/internal/store"
	"github.com/memescope/aggregator/internal/upstream"
	"github.com/memescope/aggregator/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/aggregator.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting aggregator",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"listen", cfg.Server.Host,
		"port", cfg.Server.Port,
		"interval", cfg.Aggregator.Interval,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Freshness cache: Redis when configured, in-memory otherwise.
	var cc cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		cc = redisCache
		logger.Info("redis cache connected", "addr", cfg.Redis.Addr)
	} else {
		cc = cache.NewMemory()
		logger.Warn("redis not configured, using in-memory cache")
	}

	// Optional token store.
	var tokenStore *store.Store
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		tokenStore, err = store.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer tokenStore.Close()

		if err := tokenStore.InitSchema(ctx); err != nil {
			logger.Error("failed to initialize schema", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected")
	}

	// Upstream provider clients share retry, timeout, and cache settings.
	screener := upstream.NewScreener(
		cfg.Upstream.Screener.BaseURL,
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithRetries(cfg.Upstream.MaxRetries, cfg.Upstream.RetryBaseDelay, cfg.Upstream.RetryMaxDelay),
		upstream.WithCache(cc, cfg.Upstream.CacheTTL),
		upstream.WithRateLimit(cfg.Upstream.Screener.RateLimit),
		upstream.WithLogger(logger),
	)
	oracle := upstream.NewOracle(
		cfg.Upstream.Oracle.BaseURL,
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithRetries(cfg.Upstream.MaxRetries, cfg.Upstream.RetryBaseDelay, cfg.Upstream.RetryMaxDelay),
		upstream.WithCache(cc, cfg.Upstream.CacheTTL),
		upstream.WithRateLimit(cfg.Upstream.Oracle.RateLimit),
		upstream.WithLogger(logger),
	)

	hub := broadcast.NewHub(logger)

	// When a store is configured, token updates are persisted on their way
	// to the hub.
	var publisher scheduler.Publisher = hub
	if tokenStore != nil {
		publisher = &persistingPublisher{hub: hub, store: tokenStore, logger: logger}
	}

	sched := scheduler.New(
		scheduler.Config{
			Interval:    cfg.Aggregator.Interval,
			TrendingTTL: cfg.Aggregator.TrendingTTL,
			TopN:        cfg.Aggregator.TopN,
			Threshold:   cfg.Aggregator.PriceChangeThreshold,
			SearchQuery: scheduler.DefaultConfig().SearchQuery,
		},
		screener, oracle, cc, publisher, logger,
	)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	var pinger server.Pinger
	if tokenStore != nil {
		pinger = tokenStore
	}
	srv := server.New(cfg.Server, cc, hub, screener, pinger, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	logger.Info("aggregator running")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
	}

	logger.Info("aggregator stopped")
}

// persistingPublisher writes token updates to the store before forwarding
// them to the hub. Persistence failures are logged and never block fan-out.
type persistingPublisher struct {
	hub    *broadcast.Hub
	store  *store.Store
	logger *slog.Logger
}

func (p *persistingPublisher) Publish(topic string, env *model.Envelope) {
	if tokens := env.Tokens(); len(tokens) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.store.UpsertTokens(ctx, tokens); err != nil {
			p.logger.Warn("token persistence failed", "topic", topic, "error", err)
		}
		cancel()
	}
	p.hub.Publish(topic, env)
}
