package upstream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/memescope/aggregator/internal/cache"
)

// Client is the shared HTTP plumbing both provider clients embed: one base
// URL, one retry policy, one response cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	cache    cache.Cache
	cacheTTL time.Duration

	maxRetries     int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration

	// Requests-per-minute budget granted by the provider. Informational;
	// the short-TTL response cache is what keeps us under it.
	rateLimit int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates the shared provider client core.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:         slog.Default(),
		cacheTTL:       30 * time.Second,
		maxRetries:     3,
		retryBaseDelay: time.Second,
		retryMaxDelay:  60 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry count and backoff window.
func WithRetries(max int, base, cap time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBaseDelay = base
		c.retryMaxDelay = cap
	}
}

// WithCache sets the response cache and write-back TTL.
func WithCache(cc cache.Cache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = cc
		c.cacheTTL = ttl
	}
}

// WithRateLimit records the provider's requests-per-minute budget.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		c.rateLimit = perMinute
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
