package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/dealfeed/discovery"
	"github.com/pevans/dealfeed/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault verifies the built-in defaults
func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://www.pepper.ru/new", cfg.BaseURL)
	assert.Equal(t, time.Minute, cfg.Interval.Duration)
	assert.Equal(t, 50, cfg.MaxEntries)
	assert.Equal(t, 20, cfg.MaxPages)
	assert.Equal(t, "pepper_ru_rss.xml", cfg.OutputPath)
	assert.Equal(t, discovery.DefaultFetchTimeout, cfg.FetchTimeout.Duration)
	assert.Equal(t, discovery.DefaultUserAgent, cfg.UserAgent)
	assert.Empty(t, cfg.HistoryPath, "history is disabled by default")
	assert.Equal(t, "Pepper.ru", cfg.Feed.Title)
	assert.Equal(t, cfg.BaseURL, cfg.Feed.Link)
	assert.Equal(t, scraper.DefaultSelectors(), cfg.Selectors)
	assert.NoError(t, cfg.Validate())
}

// TestLoad_NoPath verifies defaults are used without a config file
func TestLoad_NoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestLoad_MissingFile verifies a missing file falls back to defaults
func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

// TestLoad_FileOverridesDefaults verifies partial files keep other defaults
func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeTestConfigFile(t, `max_entries: 10
feed:
  title: "My Deals"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxEntries)
	assert.Equal(t, "My Deals", cfg.Feed.Title)
	assert.Equal(t, DefaultMaxPages, cfg.MaxPages)
	assert.Equal(t, DefaultFeedDescription, cfg.Feed.Description)
}

// TestLoad_EnvOverridesFile verifies environment variables win
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTestConfigFile(t, `base_url: "https://file.example.com/new"
max_pages: 3
interval: "10m"
`)
	t.Setenv(EnvBaseURL, "https://env.example.com/new")
	t.Setenv(EnvMaxPages, "7")
	t.Setenv(EnvInterval, "2")
	t.Setenv(EnvOutput, "/tmp/out.xml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/new", cfg.BaseURL)
	assert.Equal(t, "https://env.example.com/new", cfg.Feed.Link, "feed link follows the base URL")
	assert.Equal(t, 7, cfg.MaxPages)
	assert.Equal(t, 2*time.Minute, cfg.Interval.Duration)
	assert.Equal(t, "/tmp/out.xml", cfg.OutputPath)
}

// TestLoad_InvalidEnv verifies malformed environment values are rejected
func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv(EnvMaxEntries, "fifty")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), EnvMaxEntries)
}

// TestValidate verifies each validation rule
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"relative base url", func(c *Config) { c.BaseURL = "/new" }},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://example.com/new" }},
		{"negative interval", func(c *Config) { c.Interval.Duration = -time.Second }},
		{"negative max entries", func(c *Config) { c.MaxEntries = -1 }},
		{"zero max pages", func(c *Config) { c.MaxPages = 0 }},
		{"blank output path", func(c *Config) { c.OutputPath = "  " }},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout.Duration = 0 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		{"broken selector", func(c *Config) { c.Selectors.Container = "article[" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

// TestParseLevel verifies log level names
func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

// TestParseDuration verifies minute integers and Go durations
func TestParseDuration(t *testing.T) {
	d, err := parseDuration("15")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	d, err = parseDuration("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = parseDuration("later")
	assert.Error(t, err)
}
