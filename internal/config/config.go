// Package config loads the process configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full set of tunables for the HTTP surface, worker pool,
// redirect crawler and browser pool.
type Config struct {
	Host string
	Port string

	ScreenshotDir  string
	ViewportWidth  int
	ViewportHeight int
	Headless       bool
	WebdriverURL   string

	RequestTimeout time.Duration
	QueueSize      int
	WorkerCount    int
	JobTimeout     time.Duration

	// Crawler tuning
	MaxHops                     int
	MaxURLLength                int
	AllowedSchemes              []string
	RequestConnectTimeout       time.Duration
	CrawlerRequestTimeout       time.Duration
	PoolIdleTimeout             time.Duration
	PoolMaxIdlePerHost          int
	RateLimitDelay              time.Duration
	UserAgent                   string
	FollowHostnameRedirectsOnly bool
	DetectMetaRefresh           bool

	LogDir string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Load reads configuration from the environment. A missing .env file is not
// an error — it's normal in a container where env vars are injected
// directly.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Host: getEnvOrDefault("HOST", "0.0.0.0"),
		Port: getEnvOrDefault("PORT", "8080"),

		ScreenshotDir:  getEnvOrDefault("SCREENSHOT_DIR", "./screenshots"),
		ViewportWidth:  getIntOrDefault("VIEWPORT_WIDTH", 1280),
		ViewportHeight: getIntOrDefault("VIEWPORT_HEIGHT", 800),
		Headless:       getBoolOrDefault("HEADLESS", true),
		WebdriverURL:   getEnvOrDefault("WEBDRIVER_URL", "http://localhost:4444"),

		RequestTimeout: getDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		QueueSize:      getIntOrDefault("QUEUE_SIZE", 100),
		WorkerCount:    getIntOrDefault("WORKER_COUNT", 4),
		JobTimeout:     getDurationOrDefault("JOB_TIMEOUT", 5*time.Minute),

		MaxHops:                     getIntOrDefault("MAX_HOPS", 10),
		MaxURLLength:                getIntOrDefault("MAX_URL_LENGTH", 2048),
		AllowedSchemes:              []string{"http", "https"},
		RequestConnectTimeout:       getDurationOrDefault("CONNECT_TIMEOUT", 30*time.Second),
		CrawlerRequestTimeout:       getDurationOrDefault("CRAWLER_REQUEST_TIMEOUT", 30*time.Second),
		PoolIdleTimeout:             getDurationOrDefault("POOL_IDLE_TIMEOUT", 90*time.Second),
		PoolMaxIdlePerHost:          getIntOrDefault("POOL_MAX_IDLE_PER_HOST", 10),
		RateLimitDelay:              getDurationOrDefault("RATE_LIMIT_DELAY", time.Second),
		UserAgent:                   getEnvOrDefault("USER_AGENT", "urlscreen/1.0"),
		FollowHostnameRedirectsOnly: getBoolOrDefault("FOLLOW_HOSTNAME_REDIRECTS_ONLY", false),
		DetectMetaRefresh:           getBoolOrDefault("DETECT_META_REFRESH", false),

		LogDir: getEnvOrDefault("LOG_DIR", ""),
	}

	if cfg.WorkerCount <= 0 {
		return nil, fmt.Errorf("WORKER_COUNT must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("QUEUE_SIZE must be positive, got %d", cfg.QueueSize)
	}

	return cfg, nil
}
