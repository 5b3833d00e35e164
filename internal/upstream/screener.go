package upstream

import (
	"context"
	"net/url"
)

// Screener is the provider-A client: free-text market search and per-address
// pair lookup against the DEX screener API.
type Screener struct {
	*Client
}

// NewScreener creates a screener client.
func NewScreener(baseURL string, opts ...ClientOption) *Screener {
	return &Screener{Client: NewClient(baseURL, opts...)}
}

// Search returns the pairs matching a free-text query.
func (s *Screener) Search(ctx context.Context, query string) (*PairsResponse, error) {
	q := url.Values{}
	q.Set("q", query)

	var resp PairsResponse
	cacheKey := "dexscreener:search:" + query
	if err := s.getJSON(ctx, "/latest/dex/search", q, cacheKey, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TokenPairs returns all pairs trading a given token address.
func (s *Screener) TokenPairs(ctx context.Context, address string) (*PairsResponse, error) {
	var resp PairsResponse
	cacheKey := "dexscreener:token:" + address
	if err := s.getJSON(ctx, "/latest/dex/tokens/"+address, nil, cacheKey, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
