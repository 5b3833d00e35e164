// Package upstream provides clients for the two market-data providers: the
// DEX screener (pair/market search) and the price oracle (address → price).
//
// Both clients share one fetch contract: cache-first reads keyed on the
// normalized query, retry with capped exponential backoff and jitter on
// failure, and a short-TTL write-back of successful responses.
package upstream
