package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit.Requests < 1 {
		return errors.New("server.rate_limit.requests must be >= 1")
	}

	if c.Upstream.Screener.BaseURL == "" {
		return errors.New("upstream.screener.base_url is required")
	}
	if c.Upstream.Oracle.BaseURL == "" {
		return errors.New("upstream.oracle.base_url is required")
	}
	if c.Upstream.MaxRetries < 0 {
		return errors.New("upstream.max_retries must be >= 0")
	}
	if c.Upstream.RetryBaseDelay > c.Upstream.RetryMaxDelay {
		return fmt.Errorf("upstream.retry_base_delay (%s) cannot exceed retry_max_delay (%s)",
			c.Upstream.RetryBaseDelay, c.Upstream.RetryMaxDelay)
	}

	if c.Aggregator.Interval <= 0 {
		return errors.New("aggregator.interval must be positive")
	}
	if c.Aggregator.TopN < 1 {
		return errors.New("aggregator.top_n must be >= 1")
	}
	if c.Aggregator.PriceChangeThreshold < 0 {
		return errors.New("aggregator.price_change_threshold must be >= 0")
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	return nil
}

func (db DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
