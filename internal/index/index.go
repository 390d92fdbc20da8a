// Package index holds the in-memory concept index and its on-disk artifact.
//
// An Index is an immutable snapshot: it is built wholesale from concept
// entries, persisted by replacing the previous artifact atomically, and
// loaded read-only for lookups. It is safe for concurrent readers.
package index

import (
	"net/url"
	"sort"
	"time"

	"github.com/abdulachik/sciencepedia/internal/concept"
)

// SchemaVersion identifies the artifact layout written by Save.
const SchemaVersion = 1

// Meta describes how and when an index was built.
type Meta struct {
	BaseURL       string
	EntryCount    int
	SourceDigest  string
	BuiltAt       time.Time
	SchemaVersion int
}

// Index maps concept slugs, folded names and tokens to entries.
// Entries are held in ascending slug order and addressed by position.
type Index struct {
	meta       Meta
	entries    []concept.Entry
	folded     []string
	nameTokens [][]string
	bySlug     map[string]int
	byName     map[string]int
	tokens     map[string][]int
	collisions int
}

// Build creates an index from entries. Duplicate slugs keep the first
// occurrence. When two entries fold to the same name, the one with the
// smaller slug wins the name mapping.
func Build(meta Meta, entries []concept.Entry) *Index {
	sorted := make([]concept.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Slug < sorted[j].Slug
	})

	deduped := sorted[:0]
	for _, e := range sorted {
		if len(deduped) > 0 && e.Slug == deduped[len(deduped)-1].Slug {
			continue
		}
		deduped = append(deduped, e)
	}

	idx := newIndex(meta, len(deduped))
	for _, e := range deduped {
		idx.add(e)
	}

	for pos, e := range idx.entries {
		for _, tok := range entryTokens(e) {
			idx.tokens[tok] = append(idx.tokens[tok], pos)
		}
	}

	idx.meta.EntryCount = len(idx.entries)
	if idx.meta.SchemaVersion == 0 {
		idx.meta.SchemaVersion = SchemaVersion
	}
	return idx
}

func newIndex(meta Meta, size int) *Index {
	return &Index{
		meta:       meta,
		entries:    make([]concept.Entry, 0, size),
		folded:     make([]string, 0, size),
		nameTokens: make([][]string, 0, size),
		bySlug:     make(map[string]int, size),
		byName:     make(map[string]int, size),
		tokens:     make(map[string][]int),
	}
}

// add appends an entry and registers its slug and folded name.
func (idx *Index) add(e concept.Entry) {
	pos := len(idx.entries)
	folded := concept.Fold(e.Name)

	idx.entries = append(idx.entries, e)
	idx.folded = append(idx.folded, folded)
	idx.nameTokens = append(idx.nameTokens, concept.TokenSet(e.Name))
	idx.bySlug[e.Slug] = pos

	if _, taken := idx.byName[folded]; taken {
		idx.collisions++
		return
	}
	idx.byName[folded] = pos
}

// entryTokens returns the distinct tokens of an entry's name and slug.
func entryTokens(e concept.Entry) []string {
	slugText, err := url.PathUnescape(e.Slug)
	if err != nil {
		slugText = e.Slug
	}

	seen := make(map[string]bool)
	var out []string
	for _, src := range []string{e.Name, slugText} {
		for _, tok := range concept.TokenSet(src) {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Meta returns the index metadata.
func (idx *Index) Meta() Meta {
	return idx.meta
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entry returns the entry at pos.
func (idx *Index) Entry(pos int) concept.Entry {
	return idx.entries[pos]
}

// Entries returns all entries in slug order. The slice must not be modified.
func (idx *Index) Entries() []concept.Entry {
	return idx.entries
}

// FoldedName returns the case-folded name of the entry at pos.
func (idx *Index) FoldedName(pos int) string {
	return idx.folded[pos]
}

// NameTokens returns the distinct tokens of the entry name at pos.
func (idx *Index) NameTokens(pos int) []string {
	return idx.nameTokens[pos]
}

// LookupSlug finds an entry by exact slug.
func (idx *Index) LookupSlug(slug string) (int, bool) {
	pos, ok := idx.bySlug[slug]
	return pos, ok
}

// LookupName finds an entry by case-folded name.
func (idx *Index) LookupName(folded string) (int, bool) {
	pos, ok := idx.byName[folded]
	return pos, ok
}

// Postings returns the positions of entries whose name or slug contains
// token, in ascending order. The slice must not be modified.
func (idx *Index) Postings(token string) []int {
	return idx.tokens[token]
}

// TokenCount returns the number of distinct tokens.
func (idx *Index) TokenCount() int {
	return len(idx.tokens)
}

// NameCollisions returns how many entries lost the name mapping to an
// entry with the same folded name.
func (idx *Index) NameCollisions() int {
	return idx.collisions
}
