// Package model defines shared data types used across the aggregator.
//
// Conventions:
//   - Prices, market caps, volumes and liquidity are float64 denominated in SOL
//   - Timestamps are time.Time, serialized as RFC 3339 in JSON
//   - Token identity is the mint address string
package model
