package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmcdole/gofeed"
)

// ErrMalformedSnapshot is returned when the snapshot file exists but cannot
// be parsed as a feed.
var ErrMalformedSnapshot = errors.New("malformed feed snapshot")

// ReadTitles returns the item titles of the feed stored at path, in document
// order. Nothing else is read back. A missing file is reported with an error
// satisfying errors.Is(err, fs.ErrNotExist).
func ReadTitles(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	parsed, err := gofeed.NewParser().Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	titles := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		titles = append(titles, item.Title)
	}
	return titles, nil
}

// WriteSnapshot replaces the file at path with data. The data is written to
// a temporary file in the same directory and renamed into place, so readers
// see either the old document or the new one, never a partial write.
func WriteSnapshot(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	// Feed readers served from disk need to read the file.
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}
