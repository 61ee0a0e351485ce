// Package history keeps a log of poll cycles in SQLite so operators can see
// when the feed was last rebuilt and why cycles failed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Outcome is how a poll cycle ended.
type Outcome string

const (
	// OutcomeUnchanged means the probed newest title was already in the feed.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeRebuilt means the feed was regenerated and written.
	OutcomeRebuilt Outcome = "rebuilt"
	// OutcomeProbeEmpty means the first page yielded no records.
	OutcomeProbeEmpty Outcome = "probe_empty"
	// OutcomeWalkEmpty means a change was detected but the full walk
	// yielded nothing, so the previous feed was kept.
	OutcomeWalkEmpty Outcome = "walk_empty"
	// OutcomeFailed means the cycle hit an unexpected error.
	OutcomeFailed Outcome = "failed"
)

// Cycle is the record of one poll cycle.
type Cycle struct {
	CycleID    uuid.UUID `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    Outcome   `json:"outcome"`
	ProbeTitle string    `json:"probe_title,omitempty"`
	Pages      int       `json:"pages"`
	Records    int       `json:"records"`
	Error      string    `json:"error,omitempty"`
}

// Duration returns how long the cycle took.
func (c Cycle) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// Store manages the cycle log using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the cycle log at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the cycles table if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		cycle_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		outcome TEXT NOT NULL,
		probe_title TEXT,
		pages INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a cycle to the log.
func (s *Store) Record(ctx context.Context, c Cycle) error {
	if c.CycleID == uuid.Nil {
		return errors.New("cycle ID is required")
	}

	query := `
		INSERT INTO cycles (
			cycle_id, started_at, finished_at, outcome,
			probe_title, pages, records, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.CycleID.String(),
		formatTime(c.StartedAt),
		formatTime(c.FinishedAt),
		string(c.Outcome),
		nullString(c.ProbeTitle),
		c.Pages,
		c.Records,
		nullString(c.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}

	return nil
}

// Recent returns up to limit cycles, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Cycle, error) {
	query := `
		SELECT cycle_id, started_at, finished_at, outcome,
		       probe_title, pages, records, error
		FROM cycles
		ORDER BY started_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}

	return cycles, nil
}

// LastRebuild returns the most recent cycle that rewrote the feed, or nil if
// there has been none.
func (s *Store) LastRebuild(ctx context.Context) (*Cycle, error) {
	query := `
		SELECT cycle_id, started_at, finished_at, outcome,
		       probe_title, pages, records, error
		FROM cycles
		WHERE outcome = ?
		ORDER BY started_at DESC
		LIMIT 1
	`

	c, err := scanCycle(s.db.QueryRowContext(ctx, query, string(OutcomeRebuilt)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Prune deletes cycles that started before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cycles WHERE started_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune cycles: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned cycles: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(row scanner) (*Cycle, error) {
	var cycleIDStr, startedAtStr, finishedAtStr, outcome string
	var probeTitle, lastError sql.NullString
	var pages, records int

	err := row.Scan(
		&cycleIDStr, &startedAtStr, &finishedAtStr, &outcome,
		&probeTitle, &pages, &records, &lastError,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cycle: %w", err)
	}

	cycleID, err := uuid.Parse(cycleIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid cycle_id: %w", err)
	}

	return &Cycle{
		CycleID:    cycleID,
		StartedAt:  parseTime(startedAtStr),
		FinishedAt: parseTime(finishedAtStr),
		Outcome:    Outcome(outcome),
		ProbeTitle: probeTitle.String,
		Pages:      pages,
		Records:    records,
		Error:      lastError.String,
	}, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	// UTC with a fixed-width fraction keeps lexical order equal to time
	// order, which the ORDER BY and Prune comparisons rely on.
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
