package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/dealfeed"
)

// Phases used in log lines.
const (
	PhaseProbe = "probe"
	PhaseWalk  = "walk"
)

// Extractor maps one parsed listing page to records.
type Extractor interface {
	Extract(doc *goquery.Document, base *url.URL) ([]dealfeed.Record, error)
}

// WalkResult is the outcome of a page walk. Records are always usable, even
// when the walk stopped early.
type WalkResult struct {
	Records []dealfeed.Record
	// Pages is the number of pages that were fetched and extracted.
	Pages int
	// Err is the reason the walk stopped early, or nil when it ended on
	// the entry or page limit.
	Err error
}

// Walker assembles records across the sequential pages of a listing.
type Walker struct {
	baseURL   *url.URL
	fetcher   Fetcher
	extractor Extractor
	logger    *slog.Logger
}

// NewWalker creates a walker for the listing at baseURL.
func NewWalker(baseURL string, fetcher Fetcher, extractor Extractor, logger *slog.Logger) (*Walker, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base URL %q is not absolute", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Walker{
		baseURL:   u,
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}, nil
}

// PageURL returns the URL of the given 1-based page. The first page is the
// bare base URL; later pages add a page query parameter.
func (w *Walker) PageURL(page int) string {
	if page <= 1 {
		return w.baseURL.String()
	}

	u := *w.baseURL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// Probe fetches only the first page. It is the cheap check done on every
// poll cycle.
func (w *Walker) Probe(ctx context.Context, maxEntries int) WalkResult {
	return w.walk(ctx, PhaseProbe, maxEntries, 1)
}

// Walk collects up to maxEntries records from at most maxPages pages. Pages
// are fetched one after another. The first fetch or parse failure ends the
// walk and whatever was gathered so far is returned; failed pages are never
// retried.
func (w *Walker) Walk(ctx context.Context, maxEntries, maxPages int) WalkResult {
	return w.walk(ctx, PhaseWalk, maxEntries, maxPages)
}

func (w *Walker) walk(ctx context.Context, phase string, maxEntries, maxPages int) WalkResult {
	result := WalkResult{Records: []dealfeed.Record{}}

	for page := 1; len(result.Records) < maxEntries && page <= maxPages; page++ {
		found, err := w.fetchPage(ctx, page)
		if err != nil {
			w.logger.Warn("stopping page walk",
				"phase", phase,
				"page", page,
				"collected", len(result.Records),
				"error", err,
			)
			result.Err = fmt.Errorf("page %d: %w", page, err)
			break
		}

		added := min(len(found), maxEntries-len(result.Records))
		result.Records = append(result.Records, found[:added]...)
		result.Pages++

		w.logger.Info("processed page", "phase", phase, "page", page, "added", added)
	}

	return result
}

func (w *Walker) fetchPage(ctx context.Context, page int) ([]dealfeed.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageURL := w.PageURL(page)
	body, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	return w.extractor.Extract(doc, base)
}
