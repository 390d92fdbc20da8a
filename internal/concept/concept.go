// Package concept defines SciencePedia concept entries and the text
// normalization shared by the index builder and the query resolver.
package concept

import (
	"strings"
)

const (
	// DefaultBaseURL is the SciencePedia site root used when none is configured.
	DefaultBaseURL = "https://www.bohrium.com/en/sciencepedia"

	// KeywordPath is the path segment that precedes a slug in a concept URL.
	KeywordPath = "/feynman/keyword/"
)

// Entry is a single SciencePedia concept.
type Entry struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// URLFor builds the canonical concept URL for a slug.
// The slug is the only variable part; no query parameters are added.
func URLFor(base, slug string) string {
	return strings.TrimRight(base, "/") + KeywordPath + slug
}

// SlugFromURL extracts the slug from a concept URL.
// Returns false if the URL does not contain the keyword path or the slug is empty.
func SlugFromURL(rawURL string) (string, bool) {
	idx := strings.Index(rawURL, KeywordPath)
	if idx == -1 {
		return "", false
	}
	slug := strings.TrimSpace(rawURL[idx+len(KeywordPath):])
	slug = strings.TrimRight(slug, "/")
	if slug == "" || strings.Contains(slug, "/") {
		return "", false
	}
	return slug, true
}

// NewEntry derives a complete entry from a slug using the given naming rules.
func NewEntry(base, slug string, naming *Naming) Entry {
	return Entry{
		Slug: slug,
		Name: naming.Deslugify(slug),
		URL:  URLFor(base, slug),
	}
}
