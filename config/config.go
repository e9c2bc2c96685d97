package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/vendingsearch/internal/crawler"
	"sjsage522/vendingsearch/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Origin configuration
	BaseURL        string
	FetchTimeout   time.Duration
	RateLimitBlock time.Duration

	// Search budget
	MaxPages      int
	MaxStores     int
	RequestDelay  time.Duration
	FallbackPages int
	SearchTimeout time.Duration

	// HTTP server configuration
	ListenAddr     string
	AllowedOrigins []string

	// Memcache configuration
	MemcacheAddr string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Watch mode
	WatchQueries  []string
	WatchInterval time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	return Config{
		BaseURL:              getEnv("VENDING_BASE_URL", "https://site.heroragnarok.com/"),
		FetchTimeout:         time.Duration(getInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		RateLimitBlock:       time.Duration(getInt("RATE_LIMIT_BLOCK_SECONDS", 60)) * time.Second,
		MaxPages:             getInt("SEARCH_MAX_PAGES", 10),
		MaxStores:            getInt("SEARCH_MAX_STORES", 50),
		RequestDelay:         time.Duration(getInt("REQUEST_DELAY_MS", 500)) * time.Millisecond,
		FallbackPages:        getInt("FALLBACK_PAGES", 1),
		SearchTimeout:        time.Duration(getInt("SEARCH_TIMEOUT_SECONDS", 26)) * time.Second,
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		AllowedOrigins:       getList("ALLOWED_ORIGINS", "*"),
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              getInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "vending_results"),
		RedisStreamCount:     getInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getInt("REDIS_STREAM_MAX_LENGTH", 1000),
		WatchQueries:         getList("WATCH_QUERIES", ""),
		WatchInterval:        time.Duration(getInt("WATCH_INTERVAL_SECONDS", 300)) * time.Second,
		Environment:          getEnv("VENDING_ENVIRONMENT", "development"),
	}
}

// Validate rejects configurations the crawler cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewConfiguration("VENDING_BASE_URL must be an absolute URL", err)
	}
	if c.MaxPages < 1 {
		return errors.NewConfiguration("SEARCH_MAX_PAGES must be at least 1", nil)
	}
	if c.MaxStores < 1 {
		return errors.NewConfiguration("SEARCH_MAX_STORES must be at least 1", nil)
	}
	if c.FallbackPages < 1 {
		return errors.NewConfiguration("FALLBACK_PAGES must be at least 1", nil)
	}
	if c.RequestDelay < 0 {
		return errors.NewConfiguration("REQUEST_DELAY_MS must not be negative", nil)
	}
	if c.SearchTimeout <= 0 {
		return errors.NewConfiguration("SEARCH_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	if len(c.WatchQueries) > 0 && c.WatchInterval <= 0 {
		return errors.NewConfiguration("WATCH_INTERVAL_SECONDS must be positive", nil)
	}
	return nil
}

// Budget returns the per-search limits derived from the configuration
func (c *Config) Budget() crawler.SearchBudget {
	return crawler.SearchBudget{
		MaxPages:      c.MaxPages,
		MaxStores:     c.MaxStores,
		RequestDelay:  c.RequestDelay,
		FallbackPages: c.FallbackPages,
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

// getList splits a comma separated variable, dropping blank entries
func getList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
