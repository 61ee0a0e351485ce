package poller

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/dealfeed"
	"github.com/pevans/dealfeed/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHasChanged covers membership of the newest title
func TestHasChanged(t *testing.T) {
	tests := []struct {
		name     string
		latest   string
		previous []string
		want     bool
	}{
		{"known title", "Deal A", []string{"Deal A", "Deal B"}, false},
		{"known but not first", "Deal B", []string{"Deal A", "Deal B"}, false},
		{"new title", "Deal C", []string{"Deal A", "Deal B"}, true},
		{"empty previous", "Deal A", nil, true},
		{"exact match only", "deal a", []string{"Deal A"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasChanged(tt.latest, tt.previous))
		})
	}
}

func writeSnapshot(t *testing.T, path string, titles ...string) {
	t.Helper()
	records := make([]dealfeed.Record, 0, len(titles))
	for i, title := range titles {
		records = append(records, dealfeed.Record{
			Title: title,
			Link:  "https://www.pepper.ru/deals/" + string(rune('a'+i)),
		})
	}
	data, err := feed.Build(feed.Meta{Title: "Pepper.ru", Link: "https://www.pepper.ru/new"}, records, time.Now())
	require.NoError(t, err)
	require.NoError(t, feed.WriteSnapshot(path, data))
}

// TestDetectChange verifies decisions against the persisted feed
func TestDetectChange(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	dir := t.TempDir()

	t.Run("missing feed", func(t *testing.T) {
		changed, reason := detectChange(logger, filepath.Join(dir, "missing.xml"), "Deal A")
		assert.True(t, changed)
		assert.Equal(t, reasonNoSnapshot, reason)
	})

	t.Run("malformed feed", func(t *testing.T) {
		path := filepath.Join(dir, "broken.xml")
		require.NoError(t, os.WriteFile(path, []byte("not a feed"), 0644))

		changed, reason := detectChange(logger, path, "Deal A")
		assert.True(t, changed)
		assert.Equal(t, reasonBadSnapshot, reason)
	})

	t.Run("title present", func(t *testing.T) {
		path := filepath.Join(dir, "known.xml")
		writeSnapshot(t, path, "Deal A", "Deal B")

		changed, _ := detectChange(logger, path, "Deal A")
		assert.False(t, changed)
	})

	t.Run("title absent", func(t *testing.T) {
		path := filepath.Join(dir, "stale.xml")
		writeSnapshot(t, path, "Deal A", "Deal B")

		changed, reason := detectChange(logger, path, "Deal C")
		assert.True(t, changed)
		assert.Equal(t, reasonNewTitle, reason)
	})
}
