// Package resolver matches free-text queries against a concept index.
//
// Each query runs through an ordered cascade of strategies: exact slug,
// exact name, token overlap and finally fuzzy similarity. The first
// strategy that accepts at least one candidate decides the result; later
// strategies are never consulted for that query.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/abdulachik/sciencepedia/internal/concept"
	"github.com/abdulachik/sciencepedia/internal/index"
	"github.com/panjf2000/ants/v2"
)

const (
	// DefaultTokenThreshold is the minimum token-overlap F1 accepted.
	DefaultTokenThreshold = 0.5

	// DefaultFuzzyFloor is the minimum similarity ratio accepted by the fuzzy tier.
	DefaultFuzzyFloor = 0.6

	// DefaultMinSlugLength excludes very short slugs from token matching.
	DefaultMinSlugLength = 3
)

// MatchType names the tier that produced a candidate.
type MatchType string

const (
	MatchExactSlug    MatchType = "exact_slug"
	MatchExactName    MatchType = "exact_name"
	MatchTokenOverlap MatchType = "token_overlap"
	MatchFuzzy        MatchType = "fuzzy"
)

// Candidate is a ranked index entry for a query.
type Candidate struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	MatchType MatchType `json:"match_type"`
	Score     float64   `json:"score"`
}

// MatchResult holds the ranked candidates for one query. Candidates is
// empty, never nil, when nothing matched.
type MatchResult struct {
	Query      string
	Candidates []Candidate
}

// Resolver resolves queries against a read-only index. It is safe for
// concurrent use.
type Resolver struct {
	idx            *index.Index
	strategies     []Strategy
	tokenThreshold float64
	fuzzyFloor     float64
	minSlugLength  int
	workers        int
	logger         *slog.Logger
	fuzzyCount     atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithTokenThreshold sets the minimum F1 for token-overlap candidates.
// Default is DefaultTokenThreshold.
func WithTokenThreshold(threshold float64) Option {
	return func(r *Resolver) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("%w: token threshold %v", ErrInvalidOption, threshold)
		}
		r.tokenThreshold = threshold
		return nil
	}
}

// WithFuzzyFloor sets the minimum similarity ratio for fuzzy candidates.
// Default is DefaultFuzzyFloor.
func WithFuzzyFloor(floor float64) Option {
	return func(r *Resolver) error {
		if floor <= 0 || floor > 1 {
			return fmt.Errorf("%w: fuzzy floor %v", ErrInvalidOption, floor)
		}
		r.fuzzyFloor = floor
		return nil
	}
}

// WithMinSlugLength sets the shortest slug the token tier considers.
func WithMinSlugLength(n int) Option {
	return func(r *Resolver) error {
		if n < 0 {
			return fmt.Errorf("%w: min slug length %d", ErrInvalidOption, n)
		}
		r.minSlugLength = n
		return nil
	}
}

// WithWorkers sets how many queries of a batch are resolved concurrently.
// Default is 1.
func WithWorkers(n int) Option {
	return func(r *Resolver) error {
		if n < 1 {
			n = 1
		}
		r.workers = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New creates a resolver over idx.
func New(idx *index.Index, opts ...Option) (*Resolver, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}

	r := &Resolver{
		idx:            idx,
		tokenThreshold: DefaultTokenThreshold,
		fuzzyFloor:     DefaultFuzzyFloor,
		minSlugLength:  DefaultMinSlugLength,
		workers:        1,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	r.strategies = []Strategy{
		ExactSlug(),
		ExactName(),
		TokenOverlap(r.tokenThreshold, r.minSlugLength),
		Fuzzy(r.fuzzyFloor, &r.fuzzyCount),
	}

	return r, nil
}

// FuzzyComparisons returns how many index entries the fuzzy tier has
// examined since the resolver was created.
func (r *Resolver) FuzzyComparisons() int64 {
	return r.fuzzyCount.Load()
}

// Resolve resolves every query against the index and returns one result
// per query in input order. Queries are independent: a query that
// matches nothing yields an empty candidate list and never affects the
// others.
func (r *Resolver) Resolve(ctx context.Context, queries []string, topN int) ([]MatchResult, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopN, topN)
	}

	results := make([]MatchResult, len(queries))

	if r.workers <= 1 || len(queries) <= 1 {
		for i, q := range queries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = r.resolveOne(q, topN)
		}
		return results, nil
	}

	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return nil, fmt.Errorf("create resolver pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		idx, query := i, q
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[idx] = r.resolveOne(query, topN)
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit query: %w", submitErr)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveOne resolves a single query.
func (r *Resolver) ResolveOne(query string, topN int) ([]Candidate, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopN, topN)
	}
	return r.resolveOne(query, topN).Candidates, nil
}

func (r *Resolver) resolveOne(raw string, topN int) MatchResult {
	result := MatchResult{Query: raw, Candidates: []Candidate{}}

	q := NewQuery(raw)
	if q.Empty() {
		r.logger.Debug("empty query", "query", raw)
		return result
	}

	for _, strategy := range r.strategies {
		candidates := strategy(q, r.idx)
		if len(candidates) == 0 {
			continue
		}

		rank(candidates)
		if len(candidates) > topN {
			candidates = candidates[:topN]
		}
		result.Candidates = candidates

		r.logger.Debug("query resolved",
			"query", raw,
			"match_type", candidates[0].MatchType,
			"candidates", len(candidates),
		)
		return result
	}

	r.logger.Debug("no match", "query", raw)
	return result
}

// rank orders candidates by score descending, then by shorter name, then
// by slug.
func rank(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if la, lb := utf8.RuneCountInString(a.Name), utf8.RuneCountInString(b.Name); la != lb {
			return la < lb
		}
		return a.Slug < b.Slug
	})
}

func candidate(e concept.Entry, mt MatchType, score float64) Candidate {
	return Candidate{
		Slug:      e.Slug,
		Name:      e.Name,
		URL:       e.URL,
		MatchType: mt,
		Score:     score,
	}
}
