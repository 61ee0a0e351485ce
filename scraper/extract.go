package scraper

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/dealfeed"
)

// ErrNoListing is returned when the document has no body to search. A page
// whose body holds no listing containers is not an error.
var ErrNoListing = errors.New("document has no body")

// Reasons a single container is skipped.
var (
	ErrMissingTitle = errors.New("title anchor not found")
	ErrEmptyTitle   = errors.New("title is empty")
	ErrMissingLink  = errors.New("title anchor has no href")
	ErrIncomplete   = errors.New("record is missing its title or link")
)

// ItemError describes why one listing container was skipped.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Extractor is the site adapter: it maps a parsed listing page to records.
// Everything that depends on the source site's markup lives here.
type Extractor struct {
	selectors Selectors
	logger    *slog.Logger
}

// New creates an extractor. Empty selectors fall back to the defaults.
func New(selectors Selectors, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		selectors: selectors.WithDefaults(),
		logger:    logger,
	}
}

// Extract returns the page's records in document order. Containers that
// cannot produce a valid record are logged and skipped; they never abort the
// rest of the page. Relative links are resolved against base.
func (e *Extractor) Extract(doc *goquery.Document, base *url.URL) ([]dealfeed.Record, error) {
	if doc == nil || doc.Find("body").Length() == 0 {
		return nil, ErrNoListing
	}

	containers := doc.Find(e.selectors.Container)
	records := make([]dealfeed.Record, 0, containers.Length())
	containers.Each(func(i int, s *goquery.Selection) {
		record, err := e.extractRecord(s, base)
		if err != nil {
			e.logger.Debug("skipping listing item", "error", &ItemError{Index: i, Err: err})
			return
		}
		records = append(records, record)
	})

	return records, nil
}

func (e *Extractor) extractRecord(s *goquery.Selection, base *url.URL) (dealfeed.Record, error) {
	anchor := s.Find(e.selectors.Title).First()
	if anchor.Length() == 0 {
		return dealfeed.Record{}, ErrMissingTitle
	}

	title := normalizeSpace(anchor.Text())
	if title == "" {
		return dealfeed.Record{}, ErrEmptyTitle
	}

	href, ok := anchor.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return dealfeed.Record{}, ErrMissingLink
	}
	link, err := resolveLink(base, href)
	if err != nil {
		return dealfeed.Record{}, err
	}

	record := dealfeed.Record{
		Title:       title,
		Link:        link,
		Description: e.firstText(s, e.selectors.Description),
		Author:      e.firstText(s, e.selectors.Author),
	}
	if e.selectors.Image != "" {
		record.ImageURL = strings.TrimSpace(s.Find(e.selectors.Image).First().AttrOr("src", ""))
	}

	if !record.Valid() {
		return dealfeed.Record{}, ErrIncomplete
	}
	return record, nil
}

func (e *Extractor) firstText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return normalizeSpace(s.Find(selector).First().Text())
}

// resolveLink turns href into an absolute URL.
func resolveLink(base *url.URL, href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("link %q is not absolute", href)
	}
	return u.String(), nil
}

// normalizeSpace drops characters XML cannot carry and collapses runs of
// whitespace into single spaces. Titles must survive the feed round trip
// unchanged.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(strings.Map(xmlChar, s)), " ")
}

// xmlChar maps runes outside the XML 1.0 Char production to -1.
func xmlChar(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return r
	case r >= 0x20 && r <= 0xD7FF,
		r >= 0xE000 && r <= 0xFFFD,
		r >= 0x10000 && r <= 0x10FFFF:
		return r
	}
	return -1
}
