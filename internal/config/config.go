package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/baxromumarov/nowcoder-search/internal/httpx"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

// Config holds all configuration for the search server and CLI.
type Config struct {
	HTTPAddr  string `env:"NOWCODER_HTTP_ADDR" envDefault:":8359"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"` // console or json

	// Upstream endpoints
	SearchURL      string `env:"NOWCODER_SEARCH_URL"`
	FeedDetailURL  string `env:"NOWCODER_FEED_DETAIL_URL"`
	DiscussAPIURL  string `env:"NOWCODER_DISCUSS_API_URL"`
	DiscussPageURL string `env:"NOWCODER_DISCUSS_PAGE_URL"`

	// Outbound HTTP
	RequestTimeout time.Duration `env:"NOWCODER_REQUEST_TIMEOUT" envDefault:"30s"`
	UserAgent      string        `env:"NOWCODER_USER_AGENT"`
	RetryCount     int           `env:"NOWCODER_RETRY_COUNT" envDefault:"0"`
	RespectRobots  bool          `env:"NOWCODER_RESPECT_ROBOTS" envDefault:"false"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.SearchURL) == "" {
		c.SearchURL = scraper.DefaultSearchURL
	}
	if strings.TrimSpace(c.FeedDetailURL) == "" {
		c.FeedDetailURL = scraper.DefaultFeedDetailURL
	}
	if strings.TrimSpace(c.DiscussAPIURL) == "" {
		c.DiscussAPIURL = scraper.DefaultDiscussAPIURL
	}
	if strings.TrimSpace(c.DiscussPageURL) == "" {
		c.DiscussPageURL = scraper.DefaultDiscussPageURL
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = httpx.DefaultUserAgent
	}
}

func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("NOWCODER_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.RetryCount < 0 || c.RetryCount > httpx.MaxRetryCount {
		return fmt.Errorf("NOWCODER_RETRY_COUNT must be between 0 and %d, got %d", httpx.MaxRetryCount, c.RetryCount)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("NOWCODER_HTTP_ADDR is required")
	}
	return nil
}

// HTTPOptions returns the outbound client settings.
func (c *Config) HTTPOptions() httpx.Options {
	return httpx.Options{
		UserAgent:     c.UserAgent,
		Timeout:       c.RequestTimeout,
		RetryCount:    c.RetryCount,
		RespectRobots: c.RespectRobots,
	}
}
