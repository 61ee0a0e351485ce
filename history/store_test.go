package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test history store
func createTestStore(t *testing.T) *Store {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := NewStore(dbPath)
	require.NoError(t, err, "should create history store")
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: create a cycle that started at the given time
func createTestCycle(startedAt time.Time, outcome Outcome) Cycle {
	return Cycle{
		CycleID:    uuid.New(),
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(1500 * time.Millisecond),
		Outcome:    outcome,
		ProbeTitle: "Deal A",
		Pages:      1,
	}
}

var base = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// TestNewStore_Empty verifies a new database has no cycles
func TestNewStore_Empty(t *testing.T) {
	store := createTestStore(t)

	cycles, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

// TestNewStore_ExistingDatabase verifies data persists across connections
func TestNewStore_ExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store1, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Record(context.Background(), createTestCycle(base, OutcomeRebuilt)))
	store1.Close()

	store2, err := NewStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	cycles, err := store2.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}

// TestRecord_RoundTrip verifies every field is stored and read back
func TestRecord_RoundTrip(t *testing.T) {
	store := createTestStore(t)

	cycle := Cycle{
		CycleID:    uuid.New(),
		StartedAt:  base,
		FinishedAt: base.Add(3 * time.Second),
		Outcome:    OutcomeRebuilt,
		ProbeTitle: "Deal C",
		Pages:      4,
		Records:    50,
	}
	require.NoError(t, store.Record(context.Background(), cycle))

	cycles, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cycles, 1)

	got := cycles[0]
	assert.Equal(t, cycle.CycleID, got.CycleID)
	assert.True(t, cycle.StartedAt.Equal(got.StartedAt))
	assert.True(t, cycle.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, OutcomeRebuilt, got.Outcome)
	assert.Equal(t, "Deal C", got.ProbeTitle)
	assert.Equal(t, 4, got.Pages)
	assert.Equal(t, 50, got.Records)
	assert.Empty(t, got.Error)
	assert.Equal(t, 3*time.Second, got.Duration())
}

// TestRecord_WithError verifies the error text is stored
func TestRecord_WithError(t *testing.T) {
	store := createTestStore(t)

	cycle := createTestCycle(base, OutcomeFailed)
	cycle.Error = "page 1: HTTP error: 503 Service Unavailable"
	require.NoError(t, store.Record(context.Background(), cycle))

	cycles, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, cycle.Error, cycles[0].Error)
}

// TestRecord_RequiresID verifies a zero cycle ID is rejected
func TestRecord_RequiresID(t *testing.T) {
	store := createTestStore(t)

	err := store.Record(context.Background(), Cycle{StartedAt: base, Outcome: OutcomeUnchanged})
	assert.Error(t, err)
}

// TestRecent_NewestFirst verifies ordering and limit
func TestRecent_NewestFirst(t *testing.T) {
	store := createTestStore(t)

	for i := range 5 {
		c := createTestCycle(base.Add(time.Duration(i)*time.Minute), OutcomeUnchanged)
		require.NoError(t, store.Record(context.Background(), c))
	}

	cycles, err := store.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, cycles, 3)
	assert.True(t, cycles[0].StartedAt.Equal(base.Add(4*time.Minute)))
	assert.True(t, cycles[2].StartedAt.Equal(base.Add(2*time.Minute)))
}

// TestLastRebuild verifies the newest rebuilt cycle is returned
func TestLastRebuild(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	last, err := store.LastRebuild(ctx)
	require.NoError(t, err)
	assert.Nil(t, last, "no rebuild recorded yet")

	rebuilt := createTestCycle(base, OutcomeRebuilt)
	require.NoError(t, store.Record(ctx, rebuilt))
	require.NoError(t, store.Record(ctx, createTestCycle(base.Add(time.Minute), OutcomeUnchanged)))

	last, err = store.LastRebuild(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, rebuilt.CycleID, last.CycleID)
}

// TestPrune verifies old cycles are deleted
func TestPrune(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, createTestCycle(base.AddDate(0, 0, -40), OutcomeRebuilt)))
	require.NoError(t, store.Record(ctx, createTestCycle(base.AddDate(0, 0, -31), OutcomeUnchanged)))
	require.NoError(t, store.Record(ctx, createTestCycle(base, OutcomeUnchanged)))

	removed, err := store.Prune(ctx, base.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	cycles, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}
