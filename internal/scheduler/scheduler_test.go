package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/memescope/aggregator/internal/cache"
	"github.com/memescope/aggregator/internal/model"
	"github.com/memescope/aggregator/internal/upstream"
)

type fakeScreener struct {
	resp *upstream.PairsResponse
	err  error
}

func (f *fakeScreener) Search(ctx context.Context, query string) (*upstream.PairsResponse, error) {
	return f.resp, f.err
}

type fakeOracle struct {
	prices map[string]float64
	err    error
}

func (f *fakeOracle) Prices(ctx context.Context, addresses []string) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publication
}

type publication struct {
	topic string
	env   *model.Envelope
}

func (f *fakePublisher) Publish(topic string, env *model.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publication{topic: topic, env: env})
}

func (f *fakePublisher) byTopic(topic string) []*model.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Envelope
	for _, p := range f.published {
		if p.topic == topic {
			out = append(out, p.env)
		}
	}
	return out
}

func trendingPair(address string, liquidity, price, volume float64) upstream.Pair {
	var p upstream.Pair
	p.BaseToken.Address = address
	p.BaseToken.Name = "Token " + address
	p.BaseToken.Symbol = address
	p.DexID = "raydium"
	p.Liquidity.USD = upstream.FlexFloat(liquidity)
	p.PriceUSD = upstream.FlexFloat(price)
	p.Volume.H24 = upstream.FlexFloat(volume)
	return p
}

func newTestScheduler(screener TrendingSource, oracle PriceSource) (*Scheduler, *cache.Memory, *fakePublisher) {
	mem := cache.NewMemory()
	pub := &fakePublisher{}
	cfg := DefaultConfig()
	cfg.Interval = time.Hour // Ticks driven manually in tests
	s := New(cfg, screener, oracle, mem, pub, nil)
	s.ctx = context.Background()
	return s, mem, pub
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	screener := &fakeScreener{resp: &upstream.PairsResponse{}}
	oracle := &fakeOracle{prices: map[string]float64{}}
	mem := cache.NewMemory()
	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	s := New(cfg, screener, oracle, mem, &fakePublisher{}, nil)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Errorf("second Start failed: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}

func TestCycle_PublishesTrendingSet(t *testing.T) {
	screener := &fakeScreener{resp: &upstream.PairsResponse{
		Pairs: []upstream.Pair{trendingPair("X", 500, 0.10, 1000)},
	}}
	oracle := &fakeOracle{prices: map[string]float64{"X": 0.12}}
	s, mem, pub := newTestScheduler(screener, oracle)

	s.runCycle()

	// Full-set update on "tokens", fused from provider A alone: the oracle
	// quote does not land until the next price refresh.
	updates := pub.byTopic(model.TopicTokens)
	if len(updates) != 1 {
		t.Fatalf("token updates = %d, want 1", len(updates))
	}
	if updates[0].Type != model.EventTokenUpdate {
		t.Errorf("type = %q, want %q", updates[0].Type, model.EventTokenUpdate)
	}

	var cached []*model.TokenSnapshot
	found, err := cache.GetJSON(context.Background(), mem, cache.KeyTrendingTokens, &cached)
	if err != nil || !found {
		t.Fatalf("trending set not cached (found=%v err=%v)", found, err)
	}
	if len(cached) != 1 || cached[0].Address != "X" {
		t.Fatalf("cached set = %+v, want [X]", cached)
	}
	if cached[0].PriceSOL != 0.10 {
		t.Errorf("cached price = %v, want screener's 0.10", cached[0].PriceSOL)
	}
}

func TestRefreshPrices_EndToEnd(t *testing.T) {
	screener := &fakeScreener{resp: &upstream.PairsResponse{
		Pairs: []upstream.Pair{trendingPair("X", 500, 0.10, 1000)},
	}}
	oracle := &fakeOracle{prices: map[string]float64{"X": 0.12}}
	s, mem, pub := newTestScheduler(screener, oracle)

	// First cycle fuses and caches at the screener price.
	s.runCycle()

	// Second cycle's refresh applies the oracle quote: 0.10 → 0.12 is a
	// 20% move, well past materiality.
	changed := s.refreshPrices(context.Background())
	if len(changed) != 1 {
		t.Fatalf("changed = %d, want 1", len(changed))
	}
	if changed[0].PriceSOL != 0.12 {
		t.Errorf("price = %v, want 0.12", changed[0].PriceSOL)
	}
	if got := changed[0].PriceChange1h; got < 19.99 || got > 20.01 {
		t.Errorf("change %% = %v, want ~20.0", got)
	}

	// Updated set written back to the cache.
	var cached []*model.TokenSnapshot
	if found, _ := cache.GetJSON(context.Background(), mem, cache.KeyTrendingTokens, &cached); !found {
		t.Fatal("trending set missing after refresh")
	}
	if cached[0].PriceSOL != 0.12 {
		t.Errorf("cached price = %v, want 0.12", cached[0].PriceSOL)
	}

	if n := len(pub.byTopic(model.TopicTokens)); n != 1 {
		t.Errorf("token updates after first cycle = %d, want 1", n)
	}
}

func TestCycle_PublishesPriceUpdateForChanges(t *testing.T) {
	// Screener down, cache pre-seeded: only the refresh sub-cycle has work.
	screener := &fakeScreener{err: errors.New("upstream down")}
	oracle := &fakeOracle{prices: map[string]float64{"X": 0.12}}
	s, mem, pub := newTestScheduler(screener, oracle)

	seed := []*model.TokenSnapshot{{Address: "X", PriceSOL: 0.10}}
	if err := cache.SetJSON(context.Background(), mem, cache.KeyTrendingTokens, seed, time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	s.runCycle()

	prices := pub.byTopic(model.TopicPrices)
	if len(prices) != 1 {
		t.Fatalf("price updates = %d, want 1", len(prices))
	}
	if prices[0].Type != model.EventPriceUpdate {
		t.Errorf("type = %q, want %q", prices[0].Type, model.EventPriceUpdate)
	}

	// The trending sub-cycle degraded to the cached set, so a full-set
	// update still goes out; what matters is the failure stayed contained.
	if tokens := pub.byTopic(model.TopicTokens); len(tokens) != 1 {
		t.Errorf("token updates = %d, want 1 (cache fallback)", len(tokens))
	}
}

func TestFetchTrending_FallsBackToCache(t *testing.T) {
	screener := &fakeScreener{err: errors.New("boom")}
	oracle := &fakeOracle{prices: map[string]float64{}}
	s, mem, _ := newTestScheduler(screener, oracle)

	ctx := context.Background()

	// Empty cache: degraded result is empty, not an error.
	if got := s.fetchTrending(ctx); len(got) != 0 {
		t.Errorf("fetchTrending with empty cache = %v, want empty", got)
	}

	seed := []*model.TokenSnapshot{{Address: "A", PriceSOL: 1}}
	cache.SetJSON(ctx, mem, cache.KeyTrendingTokens, seed, time.Minute)

	got := s.fetchTrending(ctx)
	if len(got) != 1 || got[0].Address != "A" {
		t.Errorf("fetchTrending fallback = %+v, want cached [A]", got)
	}
}

func TestRefreshPrices_NoOpOnOracleFailure(t *testing.T) {
	screener := &fakeScreener{resp: &upstream.PairsResponse{}}
	oracle := &fakeOracle{err: errors.New("oracle down")}
	s, mem, _ := newTestScheduler(screener, oracle)

	ctx := context.Background()
	seed := []*model.TokenSnapshot{{Address: "A", PriceSOL: 1, LastUpdated: time.Unix(1000, 0)}}
	cache.SetJSON(ctx, mem, cache.KeyTrendingTokens, seed, time.Minute)

	if changed := s.refreshPrices(ctx); changed != nil {
		t.Errorf("changed = %v, want nil on oracle failure", changed)
	}

	// Failure leaves the cached set untouched, including LastUpdated.
	var cached []*model.TokenSnapshot
	cache.GetJSON(ctx, mem, cache.KeyTrendingTokens, &cached)
	if !cached[0].LastUpdated.Equal(time.Unix(1000, 0)) {
		t.Errorf("LastUpdated advanced on failed refresh: %v", cached[0].LastUpdated)
	}
}

func TestRunCycle_SkipsWhileBusy(t *testing.T) {
	screener := &fakeScreener{resp: &upstream.PairsResponse{
		Pairs: []upstream.Pair{trendingPair("X", 1, 1, 1)},
	}}
	oracle := &fakeOracle{prices: map[string]float64{}}
	s, _, pub := newTestScheduler(screener, oracle)

	s.cycleMu.Lock()
	s.runCycle() // must bail out immediately
	s.cycleMu.Unlock()

	if n := len(pub.byTopic(model.TopicTokens)); n != 0 {
		t.Errorf("publishes during busy cycle = %d, want 0", n)
	}
}

type panickingPublisher struct{}

func (panickingPublisher) Publish(string, *model.Envelope) { panic("publisher exploded") }

func TestRunCycle_RecoversFromPanic(t *testing.T) {
	screener := &fakeScreener{resp: &upstream.PairsResponse{
		Pairs: []upstream.Pair{trendingPair("X", 1, 1, 1)},
	}}
	oracle := &fakeOracle{prices: map[string]float64{}}

	mem := cache.NewMemory()
	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	s := New(cfg, screener, oracle, mem, panickingPublisher{}, nil)
	s.ctx = context.Background()

	// Must not escape runCycle; the scheduler keeps ticking after this.
	s.runCycle()
}

func TestTopAddresses(t *testing.T) {
	pairs := []upstream.Pair{
		trendingPair("A", 1, 1, 1),
		trendingPair("B", 1, 1, 1),
		trendingPair("A", 1, 1, 1), // duplicate
		trendingPair("", 1, 1, 1),  // addressless
		trendingPair("C", 1, 1, 1),
	}

	got := topAddresses(pairs, 2)
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("topAddresses = %v, want [A B]", got)
	}

	all := topAddresses(pairs, 10)
	if len(all) != 3 {
		t.Errorf("topAddresses(all) = %v, want 3 distinct", all)
	}
}
