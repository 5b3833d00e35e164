package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost                 = "0.0.0.0"
	DefaultPort                 = 8000
	DefaultRateLimitRequests    = 100
	DefaultRateLimitWindow      = time.Minute
	DefaultScreenerURL          = "https://api.dexscreener.com"
	DefaultScreenerRateLimit    = 300
	DefaultOracleURL            = "https://price.jup.ag"
	DefaultOracleRateLimit      = 100
	DefaultUpstreamTimeout      = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultRetryBaseDelay       = 1 * time.Second
	DefaultRetryMaxDelay        = 60 * time.Second
	DefaultUpstreamCacheTTL     = 30 * time.Second
	DefaultInterval             = 30 * time.Second
	DefaultTrendingTTL          = 60 * time.Second
	DefaultTopN                 = 50
	DefaultPriceChangeThreshold = 0.5
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.RateLimit.Requests == 0 {
		c.Server.RateLimit.Requests = DefaultRateLimitRequests
	}
	if c.Server.RateLimit.Window == 0 {
		c.Server.RateLimit.Window = DefaultRateLimitWindow
	}

	// Upstream defaults
	if c.Upstream.Screener.BaseURL == "" {
		c.Upstream.Screener.BaseURL = DefaultScreenerURL
	}
	if c.Upstream.Screener.RateLimit == 0 {
		c.Upstream.Screener.RateLimit = DefaultScreenerRateLimit
	}
	if c.Upstream.Oracle.BaseURL == "" {
		c.Upstream.Oracle.BaseURL = DefaultOracleURL
	}
	if c.Upstream.Oracle.RateLimit == 0 {
		c.Upstream.Oracle.RateLimit = DefaultOracleRateLimit
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Upstream.MaxRetries == 0 {
		c.Upstream.MaxRetries = DefaultMaxRetries
	}
	if c.Upstream.RetryBaseDelay == 0 {
		c.Upstream.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.Upstream.RetryMaxDelay == 0 {
		c.Upstream.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.Upstream.CacheTTL == 0 {
		c.Upstream.CacheTTL = DefaultUpstreamCacheTTL
	}

	// Aggregator defaults
	if c.Aggregator.Interval == 0 {
		c.Aggregator.Interval = DefaultInterval
	}
	if c.Aggregator.TrendingTTL == 0 {
		c.Aggregator.TrendingTTL = DefaultTrendingTTL
	}
	if c.Aggregator.TopN == 0 {
		c.Aggregator.TopN = DefaultTopN
	}
	if c.Aggregator.PriceChangeThreshold == 0 {
		c.Aggregator.PriceChangeThreshold = DefaultPriceChangeThreshold
	}

	// Database defaults (only when enabled)
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultDBPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = DefaultDBSSLMode
		}
		if c.Database.MaxConns == 0 {
			c.Database.MaxConns = DefaultMaxConns
		}
		if c.Database.MinConns == 0 {
			c.Database.MinConns = DefaultMinConns
		}
	}
}
