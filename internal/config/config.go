package config

import "time"

// Config is the top-level configuration for the aggregator process.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DBConfig         `yaml:"database"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig configures the fixed-window per-IP request limiter.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"` // Max requests per window
	Window   time.Duration `yaml:"window"`   // Window length
}

// UpstreamConfig configures both provider clients.
type UpstreamConfig struct {
	Screener       ProviderConfig `yaml:"screener"`
	Oracle         ProviderConfig `yaml:"oracle"`
	Timeout        time.Duration  `yaml:"timeout"`          // Per-request timeout
	MaxRetries     int            `yaml:"max_retries"`      // Retries beyond the first attempt
	RetryBaseDelay time.Duration  `yaml:"retry_base_delay"` // Initial backoff
	RetryMaxDelay  time.Duration  `yaml:"retry_max_delay"`  // Backoff ceiling
	CacheTTL       time.Duration  `yaml:"cache_ttl"`        // Raw response cache TTL
}

// ProviderConfig holds per-provider settings.
type ProviderConfig struct {
	BaseURL   string `yaml:"base_url"`
	RateLimit int    `yaml:"rate_limit"` // Requests per minute budget
}

// AggregatorConfig configures the aggregation scheduler and fusion engine.
type AggregatorConfig struct {
	Interval             time.Duration `yaml:"interval"`               // Cycle interval
	TrendingTTL          time.Duration `yaml:"trending_ttl"`           // Fused set cache TTL
	TopN                 int           `yaml:"top_n"`                  // Addresses sent to the price oracle
	PriceChangeThreshold float64       `yaml:"price_change_threshold"` // Materiality threshold (%)
}

// RedisConfig configures the freshness cache backend. An empty Addr disables
// Redis and falls back to the in-memory cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DBConfig configures the optional Postgres token store. An empty Host
// disables the store.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MinConns int    `yaml:"min_conns"`
	MaxConns int    `yaml:"max_conns"`
}

// Enabled reports whether a database was configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}
