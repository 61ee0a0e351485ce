package poller

import (
	"errors"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/pevans/dealfeed/feed"
)

// HasChanged reports whether latestTitle is absent from the titles of the
// previous feed. Only the newest title is compared: the listing is ordered
// newest first, so if its head is already known nothing new has appeared.
// A reordering that brings an older deal to the top counts as a change.
func HasChanged(latestTitle string, previousTitles []string) bool {
	return !slices.Contains(previousTitles, latestTitle)
}

// Reasons logged with a change decision.
const (
	reasonNoSnapshot      = "no existing feed"
	reasonBadSnapshot     = "existing feed unreadable"
	reasonNewTitle        = "newest title not in feed"
	reasonTitleInSnapshot = "newest title already in feed"
)

// detectChange compares the probed newest title with the persisted feed at
// path. A missing feed always counts as changed. An unreadable feed is
// treated as having no titles, which forces a rebuild.
func detectChange(logger *slog.Logger, path, latestTitle string) (bool, string) {
	titles, err := feed.ReadTitles(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return true, reasonNoSnapshot
	case err != nil:
		logger.Warn("could not read existing feed, treating it as empty",
			"phase", phaseDecide,
			"path", path,
			"error", err,
		)
		return true, reasonBadSnapshot
	}

	if HasChanged(latestTitle, titles) {
		return true, reasonNewTitle
	}
	return false, reasonTitleInSnapshot
}
