package scraper

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Selectors defines how to pull deal records out of a listing page. Container
// is matched against the whole document; every other selector is matched
// inside a single container.
type Selectors struct {
	Container   string `yaml:"container" json:"container"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Author      string `yaml:"author" json:"author"`
	Image       string `yaml:"image" json:"image"`
}

// DefaultSelectors returns the selectors for pepper.ru deal cards.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:   "article.deal-card",
		Title:       `a[class~="group-hover:!text-primary"], .custom-card-title a`,
		Description: `div[class*="md:text-sm"]`,
		Author:      `div[class*="text-sm"][class*="text-primary-text-light"]`,
		Image:       `img[src^="https://cdn"]`,
	}
}

// WithDefaults returns a copy of s where every empty selector is replaced by
// its default.
func (s Selectors) WithDefaults() Selectors {
	def := DefaultSelectors()
	if s.Container == "" {
		s.Container = def.Container
	}
	if s.Title == "" {
		s.Title = def.Title
	}
	if s.Description == "" {
		s.Description = def.Description
	}
	if s.Author == "" {
		s.Author = def.Author
	}
	if s.Image == "" {
		s.Image = def.Image
	}
	return s
}

// Validate checks that every selector compiles. Container and Title are
// required; the others may be empty, in which case the field is never
// extracted.
func (s Selectors) Validate() error {
	if s.Container == "" {
		return fmt.Errorf("container selector is required")
	}
	if s.Title == "" {
		return fmt.Errorf("title selector is required")
	}

	fields := []struct {
		name, value string
	}{
		{"container", s.Container},
		{"title", s.Title},
		{"description", s.Description},
		{"author", s.Author},
		{"image", s.Image},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(f.value); err != nil {
			return fmt.Errorf("invalid %s selector %q: %w", f.name, f.value, err)
		}
	}

	return nil
}
