package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pevans/dealfeed/config"
	"github.com/pevans/dealfeed/discovery"
	"github.com/pevans/dealfeed/history"
	"github.com/pevans/dealfeed/poller"
	"github.com/pevans/dealfeed/scraper"
)

// app holds the resolved configuration and the resources shared by
// commands.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	history *history.Store
}

// loadApp resolves configuration, builds the logger and opens the history
// store when one is configured.
func loadApp(logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: level}))

	a := &app{cfg: cfg, logger: logger}

	if cfg.HistoryPath != "" {
		logger.Debug("opening history store", "path", cfg.HistoryPath)
		store, err := history.NewStore(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		a.history = store
	}

	return a, nil
}

// newPoller wires the fetcher, extractor and walker into a poller.
func (a *app) newPoller() (*poller.Poller, error) {
	fetcher := discovery.NewHTTPFetcher(a.cfg.FetchTimeout.Duration, a.cfg.UserAgent)
	extractor := scraper.New(a.cfg.Selectors, a.logger)

	walker, err := discovery.NewWalker(a.cfg.BaseURL, fetcher, extractor, a.logger)
	if err != nil {
		return nil, err
	}

	var recorder poller.Recorder
	if a.history != nil {
		recorder = a.history
	}

	return poller.New(a.cfg, walker, recorder, a.logger), nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("failed to close history store", "error", err)
		}
	}
}
