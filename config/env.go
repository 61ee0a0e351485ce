package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables, applied on top of the config file.
const (
	EnvConfig       = "DEALFEED_CONFIG"
	EnvBaseURL      = "DEALFEED_BASE_URL"
	EnvInterval     = "DEALFEED_INTERVAL"
	EnvMaxEntries   = "DEALFEED_MAX_ENTRIES"
	EnvMaxPages     = "DEALFEED_MAX_PAGES"
	EnvOutput       = "DEALFEED_OUTPUT"
	EnvFetchTimeout = "DEALFEED_FETCH_TIMEOUT"
	EnvUserAgent    = "DEALFEED_USER_AGENT"
	EnvHistory      = "DEALFEED_HISTORY"
	EnvLogLevel     = "DEALFEED_LOG_LEVEL"
)

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func applyEnv(cfg *Config) error {
	if val := os.Getenv(EnvBaseURL); val != "" {
		cfg.BaseURL = val
	}
	if val := os.Getenv(EnvOutput); val != "" {
		cfg.OutputPath = val
	}
	if val := os.Getenv(EnvUserAgent); val != "" {
		cfg.UserAgent = val
	}
	if val := os.Getenv(EnvHistory); val != "" {
		cfg.HistoryPath = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		cfg.LogLevel = val
	}

	if err := envDuration(EnvInterval, &cfg.Interval); err != nil {
		return err
	}
	if err := envDuration(EnvFetchTimeout, &cfg.FetchTimeout); err != nil {
		return err
	}
	if err := envInt(EnvMaxEntries, &cfg.MaxEntries); err != nil {
		return err
	}
	if err := envInt(EnvMaxPages, &cfg.MaxPages); err != nil {
		return err
	}

	return nil
}

func envDuration(key string, dst *Duration) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := parseDuration(val)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	dst.Duration = d
	return nil
}

func envInt(key string, dst *int) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalid, key, val)
	}
	*dst = n
	return nil
}
