// Package config resolves the immutable runtime configuration of the poller
// from defaults, an optional YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pevans/dealfeed/discovery"
	"github.com/pevans/dealfeed/feed"
	"github.com/pevans/dealfeed/scraper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL         = "https://www.pepper.ru/new"
	DefaultInterval        = time.Minute
	DefaultMaxEntries      = 50
	DefaultMaxPages        = 20
	DefaultOutputPath      = "pepper_ru_rss.xml"
	DefaultHistoryRetain   = 30 * 24 * time.Hour
	DefaultLogLevel        = "info"
	DefaultFeedTitle       = "Pepper.ru"
	DefaultFeedDescription = "Новости с Pepper.ru"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Duration wraps time.Duration for YAML. It accepts Go duration strings such
// as "90s" or "5m", and bare integers, which are read as minutes.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// parseDuration extends time.ParseDuration to treat a bare integer as a
// number of minutes.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Config is the complete poller configuration. It is resolved once at
// startup and passed by value.
type Config struct {
	BaseURL       string            `yaml:"base_url"`
	Interval      Duration          `yaml:"interval"`
	MaxEntries    int               `yaml:"max_entries"`
	MaxPages      int               `yaml:"max_pages"`
	OutputPath    string            `yaml:"output_path"`
	FetchTimeout  Duration          `yaml:"fetch_timeout"`
	UserAgent     string            `yaml:"user_agent"`
	HistoryPath   string            `yaml:"history_path"`
	HistoryRetain Duration          `yaml:"history_retain"`
	LogLevel      string            `yaml:"log_level"`
	Feed          feed.Meta         `yaml:"feed"`
	Selectors     scraper.Selectors `yaml:"selectors"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load resolves the configuration with precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file at path (skipped when path is empty or missing)
// 3. Default values (lowest priority)
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if fileCfg != nil {
			cfg = *fileCfg
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Interval.Duration == 0 {
		cfg.Interval.Duration = DefaultInterval
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = DefaultOutputPath
	}
	if cfg.FetchTimeout.Duration == 0 {
		cfg.FetchTimeout.Duration = discovery.DefaultFetchTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = discovery.DefaultUserAgent
	}
	if cfg.HistoryRetain.Duration == 0 {
		cfg.HistoryRetain.Duration = DefaultHistoryRetain
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Feed.Title == "" {
		cfg.Feed.Title = DefaultFeedTitle
	}
	if cfg.Feed.Link == "" {
		cfg.Feed.Link = cfg.BaseURL
	}
	if cfg.Feed.Description == "" {
		cfg.Feed.Description = DefaultFeedDescription
	}
	cfg.Selectors = cfg.Selectors.WithDefaults()
}

// Validate reports the first invalid setting, wrapped in ErrInvalid.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an absolute http(s) URL, got %q", ErrInvalid, c.BaseURL)
	}
	if c.Interval.Duration <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalid)
	}
	if c.MaxEntries <= 0 {
		return fmt.Errorf("%w: max_entries must be positive", ErrInvalid)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("%w: max_pages must be positive", ErrInvalid)
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("%w: output_path is required", ErrInvalid)
	}
	if c.FetchTimeout.Duration <= 0 {
		return fmt.Errorf("%w: fetch_timeout must be positive", ErrInvalid)
	}
	if c.HistoryRetain.Duration < 0 {
		return fmt.Errorf("%w: history_retain must not be negative", ErrInvalid)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Selectors.Validate(); err != nil {
		return fmt.Errorf("%w: selectors: %v", ErrInvalid, err)
	}
	return nil
}

// ParseLevel converts a log level name (debug, info, warn, error) to a slog
// level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
