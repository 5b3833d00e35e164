package fusion

import (
	"math"
	"time"

	"github.com/memescope/aggregator/internal/model"
	"github.com/memescope/aggregator/internal/upstream"
)

// DefaultPriceChangeThreshold is the materiality threshold in percent: price
// moves at or below it are suppressed to avoid broadcast noise.
const DefaultPriceChangeThreshold = 0.5

const unknownLabel = "Unknown"

// Merge fuses screener pair records into one snapshot per token address,
// preserving first-appearance order. Records without a base token address
// are dropped. A duplicate address accumulates its transaction count onto
// the existing snapshot, and its protocol label and liquidity win if its
// liquidity exceeds what was seen so far.
func Merge(pairs []upstream.Pair) []*model.TokenSnapshot {
	result := make([]*model.TokenSnapshot, 0, len(pairs))
	byAddress := make(map[string]*model.TokenSnapshot, len(pairs))

	for _, pair := range pairs {
		address := pair.BaseToken.Address
		if address == "" {
			continue
		}

		if existing, ok := byAddress[address]; ok {
			existing.TransactionCount += int64(pair.Txns.H24)

			liquidity := float64(pair.Liquidity.USD)
			if liquidity > existing.LiquiditySOL {
				existing.Protocol = protocolLabel(pair.DexID)
				existing.LiquiditySOL = liquidity
			}
			continue
		}

		snapshot := snapshotFromPair(pair)
		byAddress[address] = snapshot
		result = append(result, snapshot)
	}

	return result
}

// snapshotFromPair builds a fresh snapshot from one pair record. Absent or
// malformed numerics already decoded as zero upstream.
func snapshotFromPair(pair upstream.Pair) *model.TokenSnapshot {
	name := pair.BaseToken.Name
	if name == "" {
		name = unknownLabel
	}
	ticker := pair.BaseToken.Symbol
	if ticker == "" {
		ticker = "UNKNOWN"
	}

	return &model.TokenSnapshot{
		Address:          pair.BaseToken.Address,
		Name:             name,
		Ticker:           ticker,
		PriceSOL:         float64(pair.PriceUSD),
		MarketCapSOL:     float64(pair.FDV),
		VolumeSOL:        float64(pair.Volume.H24),
		LiquiditySOL:     float64(pair.Liquidity.USD),
		TransactionCount: int64(pair.Txns.H24),
		PriceChange1h:    float64(pair.PriceChange.H1),
		Protocol:         protocolLabel(pair.DexID),
		LastUpdated:      time.Now().UTC(),
	}
}

// BestSnapshot builds a snapshot for one address from the matching pair with
// the deepest liquidity. Returns nil when no pair trades the address.
func BestSnapshot(pairs []upstream.Pair, address string) *model.TokenSnapshot {
	var best *upstream.Pair
	for i := range pairs {
		if pairs[i].BaseToken.Address != address {
			continue
		}
		if best == nil || pairs[i].Liquidity.USD > best.Liquidity.USD {
			best = &pairs[i]
		}
	}
	if best == nil {
		return nil
	}
	return snapshotFromPair(*best)
}

func protocolLabel(dexID string) string {
	if dexID == "" {
		return unknownLabel
	}
	return dexID
}

// ApplyPrices overlays oracle quotes onto an already-fused set. A quote is
// applied only when the percentage move against the stored price strictly
// exceeds threshold; applied updates refresh price, change percentage and
// LastUpdated. Returns the snapshots that actually changed. Tokens without
// a quote, with a zero stored price, or below the threshold are untouched.
func ApplyPrices(tokens []*model.TokenSnapshot, prices map[string]float64, threshold float64) []*model.TokenSnapshot {
	var changed []*model.TokenSnapshot

	for _, token := range tokens {
		newPrice, ok := prices[token.Address]
		if !ok || newPrice == 0 {
			continue
		}

		oldPrice := token.PriceSOL
		if oldPrice <= 0 {
			continue
		}

		changePct := (newPrice - oldPrice) / oldPrice * 100
		if math.Abs(changePct) <= threshold {
			continue
		}

		token.PriceSOL = newPrice
		token.PriceChange1h = changePct
		token.LastUpdated = time.Now().UTC()
		changed = append(changed, token)
	}

	return changed
}
