// Package fusion merges per-provider market records into unified token
// snapshots: dedup by token address, accumulate transaction counts, and take
// the protocol label from whichever venue holds the deepest liquidity.
package fusion
