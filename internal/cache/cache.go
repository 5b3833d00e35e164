package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Well-known cache keys.
const (
	KeyTrendingTokens = "trending_tokens"
	KeyTokenDetail    = "token_detail:" // + address
)

// Cache is a string-keyed store with per-entry expiry.
type Cache interface {
	// Get returns the value for key, or found=false on a miss or an
	// expired entry.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any prior entry. A zero ttl
	// stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePattern removes all keys matching a glob-style pattern.
	DeletePattern(ctx context.Context, pattern string) error
}

// GetJSON reads key and unmarshals it into dest. Returns false on a miss.
func GetJSON(ctx context.Context, c Cache, key string, dest any) (bool, error) {
	data, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals value and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}
