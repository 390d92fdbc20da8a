package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Index artifact
	IndexPath string

	// Catalog source
	BaseURL      string   // Concept URL root (default: https://www.bohrium.com/en/sciencepedia)
	SitemapURLs  []string // Keyword listings; empty means the built-in list
	FetchTimeout time.Duration
	FetchWorkers int
	UserAgent    string

	// De-slugification rules file (YAML); empty means built-in rules
	NamingFile string

	// Resolver
	DefaultTop     int
	ResolveWorkers int
	TokenThreshold float64
	FuzzyFloor     float64

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		IndexPath:   getEnv("INDEX_PATH", "data/sciencepedia.db"),
		BaseURL:     getEnv("BASE_URL", "https://www.bohrium.com/en/sciencepedia"),
		SitemapURLs: splitList(getEnv("SITEMAP_URLS", "")),
		UserAgent:   getEnv("USER_AGENT", "sciencepedia-lookup/1.0"),
		NamingFile:  getEnv("NAMING_FILE", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	// Parse durations
	var err error
	cfg.FetchTimeout, err = time.ParseDuration(getEnv("FETCH_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}

	// Parse integers
	if cfg.FetchWorkers, err = getInt("FETCH_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.ResolveWorkers, err = getInt("RESOLVE_WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.DefaultTop, err = getInt("DEFAULT_TOP", 3); err != nil {
		return nil, err
	}

	// Parse thresholds
	if cfg.TokenThreshold, err = getFloat("TOKEN_THRESHOLD", 0.5); err != nil {
		return nil, err
	}
	if cfg.FuzzyFloor, err = getFloat("FUZZY_FLOOR", 0.6); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.IndexPath == "" {
		return fmt.Errorf("INDEX_PATH is required")
	}
	return nil
}

// ValidateForLookup checks configuration needed for resolving queries.
func (c *Config) ValidateForLookup() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DefaultTop < 1 {
		return fmt.Errorf("DEFAULT_TOP must be at least 1, got %d", c.DefaultTop)
	}
	if c.TokenThreshold <= 0 || c.TokenThreshold > 1 {
		return fmt.Errorf("TOKEN_THRESHOLD must be in (0, 1], got %v", c.TokenThreshold)
	}
	if c.FuzzyFloor <= 0 || c.FuzzyFloor > 1 {
		return fmt.Errorf("FUZZY_FLOOR must be in (0, 1], got %v", c.FuzzyFloor)
	}
	return nil
}

// ValidateForRefresh checks configuration needed for rebuilding the index.
func (c *Config) ValidateForRefresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !isHTTPURL(c.BaseURL) {
		return fmt.Errorf("BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	for _, u := range c.SitemapURLs {
		if !isHTTPURL(u) {
			return fmt.Errorf("SITEMAP_URLS entry must be an absolute http(s) URL, got %q", u)
		}
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// splitList splits a comma-separated list, dropping blank items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
