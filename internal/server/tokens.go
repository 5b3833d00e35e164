package server

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/memescope/aggregator/internal/cache"
	"github.com/memescope/aggregator/internal/fusion"
	"github.com/memescope/aggregator/internal/model"
)

const (
	defaultLimit   = 20
	maxLimit       = 100
	detailCacheTTL = 30 * time.Second
)

var validSortBy = map[string]bool{
	"volume_sol":       true,
	"market_cap_sol":   true,
	"price_1hr_change": true,
}

var validTimeFilter = map[string]bool{
	"1h":  true,
	"24h": true,
	"7d":  true,
}

// handleListTokens serves the paginated, filtered trending set from the
// cache.
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	sortBy := q.Get("sort_by")
	if sortBy == "" {
		sortBy = "volume_sol"
	}
	if !validSortBy[sortBy] {
		writeError(w, http.StatusBadRequest, "invalid sort_by")
		return
	}

	// time_filter selects the window the upstream data was fetched for;
	// the pipeline currently aggregates 24h windows only.
	timeFilter := q.Get("time_filter")
	if timeFilter == "" {
		timeFilter = "24h"
	}
	if !validTimeFilter[timeFilter] {
		writeError(w, http.StatusBadRequest, "invalid time_filter")
		return
	}

	tokens := s.trendingSet(r)

	if search := strings.ToLower(q.Get("search")); search != "" {
		filtered := tokens[:0:0]
		for _, tok := range tokens {
			if strings.Contains(strings.ToLower(tok.Name), search) ||
				strings.Contains(strings.ToLower(tok.Ticker), search) ||
				strings.Contains(strings.ToLower(tok.Address), search) {
				filtered = append(filtered, tok)
			}
		}
		tokens = filtered
	}

	sortTokens(tokens, sortBy)

	// Cursor is the index of the last item on the previous page; malformed
	// cursors restart from the top.
	start := 0
	if cursor := q.Get("cursor"); cursor != "" {
		if idx, err := strconv.Atoi(cursor); err == nil {
			start = idx + 1
		}
	}

	total := len(tokens)
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	hasMore := end < total

	page := model.TokenPage{
		Tokens:     tokens[start:end],
		TotalCount: total,
		HasMore:    hasMore,
	}
	if hasMore {
		page.NextCursor = strconv.Itoa(end - 1)
	}
	if page.Tokens == nil {
		page.Tokens = []*model.TokenSnapshot{}
	}

	writeJSON(w, page)
}

// handleGetToken serves one token by address: detail cache, then the cached
// trending set, then a direct pair lookup against provider A.
func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	ctx := r.Context()

	detailKey := cache.KeyTokenDetail + address
	var token model.TokenSnapshot
	if found, err := cache.GetJSON(ctx, s.cache, detailKey, &token); err == nil && found {
		writeJSON(w, &token)
		return
	}

	for _, tok := range s.trendingSet(r) {
		if tok.Address == address {
			s.cacheDetail(ctx, detailKey, tok)
			writeJSON(w, tok)
			return
		}
	}

	if s.pairs != nil {
		resp, err := s.pairs.TokenPairs(ctx, address)
		if err != nil {
			s.logger.Warn("detail pair lookup failed", "address", address, "error", err)
		} else if tok := fusion.BestSnapshot(resp.Pairs, address); tok != nil {
			s.cacheDetail(ctx, detailKey, tok)
			writeJSON(w, tok)
			return
		}
	}

	writeError(w, http.StatusNotFound, "Token not found")
}

func (s *Server) cacheDetail(ctx context.Context, key string, tok *model.TokenSnapshot) {
	if err := cache.SetJSON(ctx, s.cache, key, tok, detailCacheTTL); err != nil {
		s.logger.Warn("detail cache write failed", "key", key, "error", err)
	}
}

// trendingSet reads the fused token set from the cache; misses and cache
// errors read as empty.
func (s *Server) trendingSet(r *http.Request) []*model.TokenSnapshot {
	var tokens []*model.TokenSnapshot
	found, err := cache.GetJSON(r.Context(), s.cache, cache.KeyTrendingTokens, &tokens)
	if err != nil {
		s.logger.Warn("trending cache read failed", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return tokens
}

func sortTokens(tokens []*model.TokenSnapshot, sortBy string) {
	sort.SliceStable(tokens, func(i, j int) bool {
		switch sortBy {
		case "market_cap_sol":
			return tokens[i].MarketCapSOL > tokens[j].MarketCapSOL
		case "price_1hr_change":
			return tokens[i].PriceChange1h > tokens[j].PriceChange1h
		default:
			return tokens[i].VolumeSOL > tokens[j].VolumeSOL
		}
	})
}
