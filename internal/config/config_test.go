package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/nowcoder-search/internal/httpx"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8359", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 0, cfg.RetryCount)
	assert.False(t, cfg.RespectRobots)
	assert.Equal(t, scraper.DefaultSearchURL, cfg.SearchURL)
	assert.Equal(t, scraper.DefaultFeedDetailURL, cfg.FeedDetailURL)
	assert.Equal(t, scraper.DefaultDiscussAPIURL, cfg.DiscussAPIURL)
	assert.Equal(t, scraper.DefaultDiscussPageURL, cfg.DiscussPageURL)
	assert.Equal(t, httpx.DefaultUserAgent, cfg.UserAgent)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("NOWCODER_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("NOWCODER_REQUEST_TIMEOUT", "5s")
	t.Setenv("NOWCODER_RETRY_COUNT", "2")
	t.Setenv("NOWCODER_RESPECT_ROBOTS", "true")
	t.Setenv("NOWCODER_SEARCH_URL", "http://localhost/search")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost/search", cfg.SearchURL)
	assert.Equal(t, httpx.Options{
		UserAgent:     httpx.DefaultUserAgent,
		Timeout:       5 * time.Second,
		RetryCount:    2,
		RespectRobots: true,
	}, cfg.HTTPOptions())
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"NOWCODER_RETRY_COUNT":     "6",
		"NOWCODER_REQUEST_TIMEOUT": "0s",
		"LOG_FORMAT":               "xml",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("NOWCODER_REQUEST_TIMEOUT", "soon")
		_, err := Parse()
		assert.Error(t, err)
	})
}
