// Package crawler manually follows a URL's redirect chain, grounded on
// original_source/src/url_crawler/mod.rs.
package crawler

import "time"

// Config tunes crawler behavior. Build one with NewConfig and Option
// functions, the idiomatic-Go equivalent of CrawlerConfig's Rust builder.
type Config struct {
	MaxHops        int
	MaxURLLength   int
	AllowedSchemes []string

	RequestTimeout time.Duration
	RateLimitDelay time.Duration

	UserAgent                   string
	ConnectTimeout              time.Duration
	PoolIdleTimeout             time.Duration
	PoolMaxIdlePerHost          int
	FollowHostnameRedirectsOnly bool
	DetectMetaRefresh           bool
}

// Option mutates a Config.
type Option func(*Config)

// NewConfig builds a Config with the same defaults as
// original_source/src/url_crawler/mod.rs's CrawlerConfig::default.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxHops:                     10,
		MaxURLLength:                2048,
		AllowedSchemes:              []string{"http", "https"},
		RequestTimeout:              30 * time.Second,
		RateLimitDelay:              time.Second,
		UserAgent:                   "ScreenshotAPI/1.0",
		ConnectTimeout:              30 * time.Second,
		PoolIdleTimeout:             90 * time.Second,
		PoolMaxIdlePerHost:          10,
		FollowHostnameRedirectsOnly: false,
		DetectMetaRefresh:           false,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithMaxHops(n int) Option                { return func(c *Config) { c.MaxHops = n } }
func WithMaxURLLength(n int) Option           { return func(c *Config) { c.MaxURLLength = n } }
func WithRequestTimeout(d time.Duration) Option { return func(c *Config) { c.RequestTimeout = d } }
func WithRateLimitDelay(d time.Duration) Option { return func(c *Config) { c.RateLimitDelay = d } }
func WithAllowedSchemes(schemes []string) Option {
	return func(c *Config) { c.AllowedSchemes = schemes }
}
func WithUserAgent(ua string) Option { return func(c *Config) { c.UserAgent = ua } }
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}
func WithPoolIdleTimeout(d time.Duration) Option {
	return func(c *Config) { c.PoolIdleTimeout = d }
}
func WithPoolMaxIdlePerHost(n int) Option {
	return func(c *Config) { c.PoolMaxIdlePerHost = n }
}
func WithFollowHostnameRedirectsOnly(only bool) Option {
	return func(c *Config) { c.FollowHostnameRedirectsOnly = only }
}
func WithDetectMetaRefresh(detect bool) Option {
	return func(c *Config) { c.DetectMetaRefresh = detect }
}

func (c *Config) schemeAllowed(scheme string) bool {
	for _, s := range c.AllowedSchemes {
		if s == scheme {
			return true
		}
	}
	return false
}
