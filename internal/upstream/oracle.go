package upstream

import (
	"context"
	"net/url"
	"sort"
	"strings"
)

// Oracle is the provider-B client: current prices for a set of addresses.
type Oracle struct {
	*Client
}

// NewOracle creates a price oracle client.
func NewOracle(baseURL string, opts ...ClientOption) *Oracle {
	return &Oracle{Client: NewClient(baseURL, opts...)}
}

// Prices returns address → current price for every address the oracle knows.
// Addresses missing from the response are absent from the map.
func (o *Oracle) Prices(ctx context.Context, addresses []string) (map[string]float64, error) {
	if len(addresses) == 0 {
		return map[string]float64{}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(addresses, ","))

	var resp oracleResponse
	if err := o.getJSON(ctx, "/v4/price", q, pricesCacheKey(addresses), &resp); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(resp.Data))
	for addr, entry := range resp.Data {
		prices[addr] = float64(entry.Price)
	}
	return prices, nil
}

// pricesCacheKey builds a deterministic key from the address set: sorted so
// the same set always hits the same entry regardless of request order.
func pricesCacheKey(addresses []string) string {
	sorted := make([]string, len(addresses))
	copy(sorted, addresses)
	sort.Strings(sorted)
	return "jupiter:prices:" + strings.Join(sorted, ":")
}
