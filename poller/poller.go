// Package poller runs the poll loop: a cheap first-page probe on every tick
// and a full multi-page refresh of the feed only when the probe shows new
// content.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/dealfeed/config"
	"github.com/pevans/dealfeed/discovery"
	"github.com/pevans/dealfeed/feed"
	"github.com/pevans/dealfeed/history"
)

const (
	phaseDecide  = "decide"
	phasePersist = "persist"
)

// Walker fetches listing pages.
type Walker interface {
	Probe(ctx context.Context, maxEntries int) discovery.WalkResult
	Walk(ctx context.Context, maxEntries, maxPages int) discovery.WalkResult
}

// Recorder keeps the log of finished cycles.
type Recorder interface {
	Record(ctx context.Context, c history.Cycle) error
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Poller owns the feed snapshot file. Only one cycle runs at a time.
type Poller struct {
	cfg      config.Config
	walker   Walker
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a poller. recorder may be nil, in which case cycles are only
// logged.
func New(cfg config.Config, walker Walker, recorder Recorder, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		cfg:      cfg,
		walker:   walker,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled. Each cycle runs to completion, then the
// poller sleeps for the configured interval whatever the outcome. A failed
// cycle is logged and never stops the loop. Run returns ctx.Err() once the
// context is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller starting",
		"base_url", p.cfg.BaseURL,
		"interval", p.cfg.Interval.Duration,
		"max_entries", p.cfg.MaxEntries,
		"max_pages", p.cfg.MaxPages,
		"output", p.cfg.OutputPath,
	)

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("poller stopping")
			return err
		}

		p.RunOnce(ctx)

		if err := sleep(ctx, p.cfg.Interval.Duration); err != nil {
			p.logger.Info("poller stopping")
			return err
		}
	}
}

// RunOnce performs a single poll cycle and returns its record. Errors and
// panics inside the cycle are caught here and reported as a failed cycle.
func (p *Poller) RunOnce(ctx context.Context) (cycle history.Cycle) {
	cycle = history.Cycle{
		CycleID:   uuid.New(),
		StartedAt: p.now(),
	}
	logger := p.logger.With("cycle_id", cycle.CycleID.String())

	defer func() {
		if r := recover(); r != nil {
			cycle.Outcome = history.OutcomeFailed
			cycle.Error = fmt.Sprintf("panic: %v", r)
			logger.Error("poll cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
		cycle.FinishedAt = p.now()
		p.record(ctx, logger, cycle)
	}()

	if err := p.runCycle(ctx, logger, &cycle); err != nil {
		cycle.Outcome = history.OutcomeFailed
		cycle.Error = err.Error()
		logger.Error("poll cycle failed", "error", err)
	}

	return cycle
}

func (p *Poller) runCycle(ctx context.Context, logger *slog.Logger, cycle *history.Cycle) error {
	probe := p.walker.Probe(ctx, p.cfg.MaxEntries)
	if len(probe.Records) == 0 {
		cycle.Outcome = history.OutcomeProbeEmpty
		if probe.Err != nil {
			cycle.Error = probe.Err.Error()
		}
		logger.Warn("could not get first page", "phase", discovery.PhaseProbe, "page", 1, "error", probe.Err)
		return nil
	}

	latest := probe.Records[0].Title
	cycle.ProbeTitle = latest

	changed, reason := detectChange(logger, p.cfg.OutputPath, latest)
	if !changed {
		cycle.Outcome = history.OutcomeUnchanged
		logger.Info("no changes detected", "phase", phaseDecide, "latest_title", latest)
		return nil
	}
	logger.Info("changes detected, walking all pages",
		"phase", phaseDecide,
		"latest_title", latest,
		"reason", reason,
	)

	walk := p.walker.Walk(ctx, p.cfg.MaxEntries, p.cfg.MaxPages)
	cycle.Pages = walk.Pages
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("walk interrupted: %w", err)
	}
	if walk.Err != nil {
		// A partial walk is still published.
		cycle.Error = walk.Err.Error()
	}
	if len(walk.Records) == 0 {
		cycle.Outcome = history.OutcomeWalkEmpty
		logger.Warn("walk returned no records, keeping previous feed", "phase", discovery.PhaseWalk)
		return nil
	}

	data, err := feed.Build(p.cfg.Feed, walk.Records, p.now())
	if err != nil {
		return fmt.Errorf("failed to build feed: %w", err)
	}
	if err := feed.WriteSnapshot(p.cfg.OutputPath, data); err != nil {
		return fmt.Errorf("failed to persist feed: %w", err)
	}

	cycle.Outcome = history.OutcomeRebuilt
	cycle.Records = len(walk.Records)
	logger.Info("feed updated",
		"phase", phasePersist,
		"path", p.cfg.OutputPath,
		"records", len(walk.Records),
		"pages", walk.Pages,
	)

	return nil
}

// record stores the finished cycle. It runs even when ctx was cancelled so
// the last cycle before shutdown is not lost.
func (p *Poller) record(ctx context.Context, logger *slog.Logger, cycle history.Cycle) {
	if p.recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if err := p.recorder.Record(ctx, cycle); err != nil {
		logger.Error("failed to record cycle", "error", err)
		return
	}

	if retain := p.cfg.HistoryRetain.Duration; retain > 0 {
		removed, err := p.recorder.Prune(ctx, cycle.StartedAt.Add(-retain))
		if err != nil {
			logger.Error("failed to prune cycle history", "error", err)
		} else if removed > 0 {
			logger.Debug("pruned cycle history", "removed", removed)
		}
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
