package resolver

import (
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/abdulachik/sciencepedia/internal/concept"
	"github.com/abdulachik/sciencepedia/internal/index"
	"github.com/pmezard/go-difflib/difflib"
)

// Query is a normalized query.
type Query struct {
	Raw    string
	Folded string
	Tokens []string
	Slugs  []string
}

// NewQuery normalizes raw for matching. The slug forms tried are the
// trimmed text as typed followed by its normalized slug variants.
func NewQuery(raw string) Query {
	q := Query{
		Raw:    raw,
		Folded: concept.Fold(raw),
		Tokens: concept.TokenSet(raw),
	}

	seen := make(map[string]bool)
	for _, s := range append([]string{strings.TrimSpace(raw)}, concept.SlugVariants(raw)...) {
		if s != "" && !seen[s] {
			seen[s] = true
			q.Slugs = append(q.Slugs, s)
		}
	}
	return q
}

// Empty reports whether the query has no word content left after
// normalization.
func (q Query) Empty() bool {
	return len(q.Tokens) == 0
}

// Strategy returns every candidate it accepts for q, in any order.
// A nil or empty result hands the query to the next strategy.
type Strategy func(q Query, idx *index.Index) []Candidate

// ExactSlug matches the first slug form of the query present in the index.
func ExactSlug() Strategy {
	return func(q Query, idx *index.Index) []Candidate {
		for _, s := range q.Slugs {
			if pos, ok := idx.LookupSlug(s); ok {
				return []Candidate{candidate(idx.Entry(pos), MatchExactSlug, 1.0)}
			}
		}
		return nil
	}
}

// ExactName matches the case-folded query against entry names.
func ExactName() Strategy {
	return func(q Query, idx *index.Index) []Candidate {
		if pos, ok := idx.LookupName(q.Folded); ok {
			return []Candidate{candidate(idx.Entry(pos), MatchExactName, 1.0)}
		}
		return nil
	}
}

// TokenOverlap collects every entry sharing a token with the query and
// scores it by the F1 of query tokens against the entry's name tokens.
// Entries scoring below threshold, or whose slug is shorter than
// minSlugLength, are rejected.
func TokenOverlap(threshold float64, minSlugLength int) Strategy {
	return func(q Query, idx *index.Index) []Candidate {
		shared := make(map[int]int)
		for _, tok := range q.Tokens {
			for _, pos := range idx.Postings(tok) {
				if _, ok := shared[pos]; !ok {
					shared[pos] = overlap(q.Tokens, idx.NameTokens(pos))
				}
			}
		}

		var out []Candidate
		for pos, n := range shared {
			if n == 0 {
				continue
			}
			e := idx.Entry(pos)
			if len(e.Slug) < minSlugLength {
				continue
			}
			f1 := 2 * float64(n) / float64(len(q.Tokens)+len(idx.NameTokens(pos)))
			if f1 >= threshold {
				out = append(out, candidate(e, MatchTokenOverlap, f1))
			}
		}
		return out
	}
}

// overlap counts the tokens two sorted sets have in common.
func overlap(a, b []string) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}

// Fuzzy compares the folded query with every folded entry name using the
// Ratcliff/Obershelp ratio and accepts entries at or above floor. Entries
// whose length or character counts cannot reach floor are skipped before
// the full ratio is computed; the result equals that of a full scan.
// Every entry examined is added to counter.
func Fuzzy(floor float64, counter *atomic.Int64) Strategy {
	return func(q Query, idx *index.Index) []Candidate {
		query := runes(q.Folded)
		m := difflib.NewMatcher(nil, nil)
		m.SetSeq2(query)

		var out []Candidate
		for pos := 0; pos < idx.Len(); pos++ {
			name := idx.FoldedName(pos)
			if bound := lengthBound(len(query), utf8.RuneCountInString(name)); bound < floor {
				continue
			}

			m.SetSeq1(runes(name))
			if m.QuickRatio() < floor {
				continue
			}
			if ratio := m.Ratio(); ratio >= floor {
				out = append(out, candidate(idx.Entry(pos), MatchFuzzy, ratio))
			}
		}
		counter.Add(int64(idx.Len()))
		return out
	}
}

// lengthBound is the highest ratio two sequences of the given lengths
// can reach.
func lengthBound(a, b int) float64 {
	if a+b == 0 {
		return 1.0
	}
	return 2 * float64(min(a, b)) / float64(a+b)
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
