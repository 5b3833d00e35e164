package model

import "time"

// -----------------------------------------------------------------------------
// Token Types
// -----------------------------------------------------------------------------

// TokenSnapshot is the fused, point-in-time view of one token's market data.
type TokenSnapshot struct {
	Address          string    `json:"token_address"`     // Primary key (mint address)
	Name             string    `json:"token_name"`        // Display name
	Ticker           string    `json:"token_ticker"`      // Symbol
	PriceSOL         float64   `json:"price_sol"`         // Current price
	MarketCapSOL     float64   `json:"market_cap_sol"`    // Fully diluted valuation
	VolumeSOL        float64   `json:"volume_sol"`        // 24h volume
	LiquiditySOL     float64   `json:"liquidity_sol"`     // Pool liquidity
	TransactionCount int64     `json:"transaction_count"` // 24h buys + sells
	PriceChange1h    float64   `json:"price_1hr_change"`  // 1h price change %
	Protocol         string    `json:"protocol"`          // DEX with the deepest liquidity
	LastUpdated      time.Time `json:"last_updated"`      // Last mutation time
}

// TokenPage is a paginated slice of tokens returned by the read API.
type TokenPage struct {
	Tokens     []*TokenSnapshot `json:"tokens"`
	TotalCount int              `json:"total_count"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

// -----------------------------------------------------------------------------
// Broadcast Types
// -----------------------------------------------------------------------------

// Event types carried in Envelope.Type.
const (
	EventTokenUpdate  = "token_update"           // Full trending set replaced
	EventPriceUpdate  = "price_update"           // Incremental price moves
	EventSubConfirmed = "subscription_confirmed" // Subscribe ack
)

// Topic names connections may subscribe to.
const (
	TopicTokens = "tokens"
	TopicPrices = "prices"
)

// Envelope is a typed, timestamped broadcast message. It is immutable once
// constructed and discarded after delivery.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope creates an envelope stamped with the current time.
func NewEnvelope(eventType string, data any) *Envelope {
	return &Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// TokenPayload is the data carried by token and price update envelopes.
type TokenPayload struct {
	Tokens []*TokenSnapshot `json:"tokens"`
}

// TokenUpdateEnvelope wraps a full token set for the "tokens" topic.
func TokenUpdateEnvelope(tokens []*TokenSnapshot) *Envelope {
	return NewEnvelope(EventTokenUpdate, &TokenPayload{Tokens: tokens})
}

// PriceUpdateEnvelope wraps changed tokens for the "prices" topic.
func PriceUpdateEnvelope(tokens []*TokenSnapshot) *Envelope {
	return NewEnvelope(EventPriceUpdate, &TokenPayload{Tokens: tokens})
}

// Tokens returns the snapshot payload, or nil for envelopes carrying
// something else.
func (e *Envelope) Tokens() []*TokenSnapshot {
	if p, ok := e.Data.(*TokenPayload); ok {
		return p.Tokens
	}
	return nil
}
