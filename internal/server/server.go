package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/memescope/aggregator/internal/broadcast"
	"github.com/memescope/aggregator/internal/cache"
	"github.com/memescope/aggregator/internal/config"
	"github.com/memescope/aggregator/internal/upstream"
)

// Pinger is the optional persistent store surfaced in health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PairSource resolves all pairs trading one token address (provider A). The
// detail endpoint falls back to it when a token is not in the trending set.
type PairSource interface {
	TokenPairs(ctx context.Context, address string) (*upstream.PairsResponse, error)
}

// Server is the HTTP/WebSocket front end.
type Server struct {
	cfg    config.ServerConfig
	cache  cache.Cache
	hub    *broadcast.Hub
	pairs  PairSource // nil disables the detail fallback lookup
	store  Pinger     // nil when no database is configured
	logger *slog.Logger

	limiter *rateLimiter
	httpSrv *http.Server
}

// New creates the server and wires its routes.
func New(cfg config.ServerConfig, cc cache.Cache, hub *broadcast.Hub, pairs PairSource, store Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		cache:   cc,
		hub:     hub,
		pairs:   pairs,
		store:   store,
		logger:  logger,
		limiter: newRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tokens", s.handleListTokens)
	mux.HandleFunc("GET /api/v1/tokens/{address}", s.handleGetToken)
	mux.HandleFunc("/api/v1/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.limiter.middleware(mux),
	}

	return s
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.logger.Info("http server started", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests and closes all live connections.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.hub.CloseAll()
	s.logger.Info("http server stopped")
	return nil
}

// handleHealth reports component status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	// A missing trending set means the pipeline has not produced data yet
	// (or the cache is down): degraded, not unhealthy.
	if _, found, err := s.cache.Get(ctx, cache.KeyTrendingTokens); err != nil {
		health.Status = "degraded"
		health.Components["cache"] = map[string]string{"status": "error", "error": err.Error()}
	} else if !found {
		health.Status = "degraded"
		health.Components["cache"] = map[string]string{"status": "empty"}
	} else {
		health.Components["cache"] = "ok"
	}

	stats := s.hub.Stats()
	health.Components["broadcast"] = map[string]int{
		"connections":   stats.Connections,
		"subscriptions": stats.Subscriptions,
	}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{"status": "disconnected", "error": err.Error()}
		} else {
			health.Components["database"] = "connected"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
