package dealfeed

import "strings"

// Record is a single deal listing scraped from the source site. Records are
// ordered freshest first, the way the site lists them.
type Record struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Valid reports whether the record carries the two required fields. Records
// without a title or a link are never added to a result sequence.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.Link) != ""
}
