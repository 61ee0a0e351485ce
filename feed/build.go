// Package feed builds the RSS document served to feed readers and manages
// the snapshot file it is persisted to.
package feed

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/pevans/dealfeed"
)

const defaultImageType = "image/jpeg"

// Meta holds the channel-level fields of the feed.
type Meta struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
}

// Build serializes records into an RSS 2.0 document, one item per record in
// the given order. Every item is stamped with now as its publication time
// since the source site does not expose one. The caller is expected to pass
// an already ordered and capped slice.
func Build(meta Meta, records []dealfeed.Record, now time.Time) ([]byte, error) {
	f := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: meta.Link},
		Description: meta.Description,
		Created:     now,
		Items:       make([]*feeds.Item, 0, len(records)),
	}

	for _, r := range records {
		item := &feeds.Item{
			Title:       r.Title,
			Link:        &feeds.Link{Href: r.Link},
			Id:          r.Link,
			Description: r.Description,
			Created:     now,
		}
		if r.Author != "" {
			item.Author = &feeds.Author{Name: r.Author}
		}
		if r.ImageURL != "" {
			item.Enclosure = &feeds.Enclosure{
				Url:    r.ImageURL,
				Type:   imageType(r.ImageURL),
				Length: "0",
			}
		}
		f.Items = append(f.Items, item)
	}

	rss, err := f.ToRss()
	if err != nil {
		return nil, fmt.Errorf("failed to render RSS: %w", err)
	}

	return []byte(rss), nil
}

// imageType guesses the MIME type of an image from its URL extension.
func imageType(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return defaultImageType
	}

	t := mime.TypeByExtension(strings.ToLower(path.Ext(u.Path)))
	if !strings.HasPrefix(t, "image/") {
		return defaultImageType
	}
	return t
}
