package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memescope/aggregator/internal/cache"
	"github.com/memescope/aggregator/internal/fusion"
	"github.com/memescope/aggregator/internal/model"
	"github.com/memescope/aggregator/internal/upstream"
)

// TrendingSource provides the broad market listing (provider A).
type TrendingSource interface {
	Search(ctx context.Context, query string) (*upstream.PairsResponse, error)
}

// PriceSource resolves current prices for a set of addresses (provider B).
type PriceSource interface {
	Prices(ctx context.Context, addresses []string) (map[string]float64, error)
}

// Publisher receives update envelopes for fan-out.
type Publisher interface {
	Publish(topic string, env *model.Envelope)
}

// Config holds scheduler configuration.
type Config struct {
	Interval    time.Duration // Cycle interval (default: 30s)
	TrendingTTL time.Duration // Cache TTL for the fused set (default: 60s)
	TopN        int           // Addresses forwarded to the price oracle
	Threshold   float64       // Materiality threshold in percent
	SearchQuery string        // Free-text trending query for provider A
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		TrendingTTL: 60 * time.Second,
		TopN:        50,
		Threshold:   fusion.DefaultPriceChangeThreshold,
		SearchQuery: "solana trending",
	}
}

// Scheduler owns the aggregation pipeline.
type Scheduler struct {
	cfg      Config
	screener TrendingSource
	oracle   PriceSource
	cache    cache.Cache
	hub      Publisher
	logger   *slog.Logger

	running atomic.Bool
	cycleMu sync.Mutex // Serializes cycles; a busy tick is skipped

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Scheduler.
func New(cfg Config, screener TrendingSource, oracle PriceSource, cc cache.Cache, hub Publisher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		screener: screener,
		oracle:   oracle,
		cache:    cc,
		hub:      hub,
		logger:   logger,
	}
}

// Start begins the aggregation loop. Starting an already-running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("aggregation scheduler started",
		"interval", s.cfg.Interval,
		"trending_ttl", s.cfg.TrendingTTL,
	)

	return nil
}

// Stop halts future cycles; an in-flight cycle is allowed to finish.
// Stopping an already-stopped scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("aggregation scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main timer loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// First cycle immediately on start.
	s.runCycle()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle executes one pipeline cycle. Cycles never overlap: if the
// previous one is still in flight the tick is dropped. A panic inside a
// cycle is logged and does not stop the loop.
func (s *Scheduler) runCycle() {
	if !s.cycleMu.TryLock() {
		s.logger.Warn("previous cycle still running, skipping tick")
		return
	}
	defer s.cycleMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked", "panic", r)
		}
	}()

	start := time.Now()

	var (
		trending []*model.TokenSnapshot
		changed  []*model.TokenSnapshot
	)

	// The two sub-cycles run concurrently and fail independently; each
	// degrades internally and reports nil to the group.
	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		trending = s.fetchTrending(ctx)
		return nil
	})
	g.Go(func() error {
		changed = s.refreshPrices(ctx)
		return nil
	})
	_ = g.Wait()

	if len(trending) > 0 {
		s.hub.Publish(model.TopicTokens, model.TokenUpdateEnvelope(trending))
	}
	if len(changed) > 0 {
		s.hub.Publish(model.TopicPrices, model.PriceUpdateEnvelope(changed))
	}

	s.logger.Info("cycle complete",
		"trending", len(trending),
		"price_changes", len(changed),
		"duration", time.Since(start),
	)
}

// fetchTrending pulls the broad listing from the screener, warms the oracle
// for the top-N addresses, fuses the result, and replaces the cached
// trending set. On failure it degrades to the last cached set, else empty.
func (s *Scheduler) fetchTrending(ctx context.Context) []*model.TokenSnapshot {
	resp, err := s.screener.Search(ctx, s.cfg.SearchQuery)
	if err != nil {
		s.logger.Warn("trending fetch failed, falling back to cache", "error", err)
		return s.cachedTrending(ctx)
	}

	// Warm the oracle's response cache for the refresh sub-cycle. The
	// fused set keeps the screener's prices; oracle quotes only land via
	// the materiality-filtered refresh path.
	if addrs := topAddresses(resp.Pairs, s.cfg.TopN); len(addrs) > 0 {
		if _, err := s.oracle.Prices(ctx, addrs); err != nil {
			s.logger.Warn("oracle warmup failed", "error", err)
		}
	}

	tokens := fusion.Merge(resp.Pairs)
	if len(tokens) == 0 {
		return tokens
	}

	if err := cache.SetJSON(ctx, s.cache, cache.KeyTrendingTokens, tokens, s.cfg.TrendingTTL); err != nil {
		s.logger.Warn("trending cache write failed", "error", err)
	}

	return tokens
}

// refreshPrices overlays fresh oracle quotes onto the cached trending set
// and returns the snapshots that moved past the materiality threshold.
// Any failure is a no-op: nothing changes, nothing is published.
func (s *Scheduler) refreshPrices(ctx context.Context) []*model.TokenSnapshot {
	tokens := s.cachedTrending(ctx)
	if len(tokens) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		addrs = append(addrs, tok.Address)
	}

	prices, err := s.oracle.Prices(ctx, addrs)
	if err != nil {
		s.logger.Warn("price refresh failed", "error", err)
		return nil
	}

	changed := fusion.ApplyPrices(tokens, prices, s.cfg.Threshold)
	if len(changed) == 0 {
		return nil
	}

	if err := cache.SetJSON(ctx, s.cache, cache.KeyTrendingTokens, tokens, s.cfg.TrendingTTL); err != nil {
		s.logger.Warn("trending cache write failed", "error", err)
	}

	return changed
}

// cachedTrending reads the last fused set from the cache; misses and cache
// errors both read as empty.
func (s *Scheduler) cachedTrending(ctx context.Context) []*model.TokenSnapshot {
	var tokens []*model.TokenSnapshot
	found, err := cache.GetJSON(ctx, s.cache, cache.KeyTrendingTokens, &tokens)
	if err != nil {
		s.logger.Warn("trending cache read failed", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return tokens
}

// topAddresses returns up to n distinct base-token addresses in pair order.
func topAddresses(pairs []upstream.Pair, n int) []string {
	seen := make(map[string]struct{}, n)
	addrs := make([]string, 0, n)

	for _, pair := range pairs {
		addr := pair.BaseToken.Address
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
		if len(addrs) == n {
			break
		}
	}
	return addrs
}
