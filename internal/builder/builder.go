// Package builder rebuilds the concept index from the remote keyword
// listings.
package builder

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdulachik/sciencepedia/internal/concept"
	"github.com/abdulachik/sciencepedia/internal/index"
	"github.com/abdulachik/sciencepedia/internal/sitemap"
	"github.com/zeebo/blake3"
)

var (
	// ErrSourceUnavailable is returned when a listing cannot be retrieved.
	ErrSourceUnavailable = sitemap.ErrSourceUnavailable

	// ErrParseError is returned when a listing is not in the expected shape.
	ErrParseError = sitemap.ErrParseError

	ErrFetcherRequired   = errors.New("fetcher is required")
	ErrIndexPathRequired = errors.New("index path is required")
)

// Fetcher returns the distinct concept slugs of the remote catalog.
type Fetcher interface {
	FetchSlugs(ctx context.Context) ([]string, error)
}

// Builder derives concept entries from slugs and persists the index.
type Builder struct {
	fetcher   Fetcher
	naming    *concept.Naming
	baseURL   string
	indexPath string
	logger    *slog.Logger
	now       func() time.Time
}

// Config holds configuration for the Builder.
type Config struct {
	Fetcher   Fetcher
	Naming    *concept.Naming // Optional: defaults to concept.DefaultNaming
	BaseURL   string          // Optional: defaults to concept.DefaultBaseURL
	IndexPath string
	Logger    *slog.Logger
	Now       func() time.Time // Optional: clock used for the build timestamp
}

// New creates a new Builder.
func New(cfg Config) (*Builder, error) {
	if cfg.Fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if cfg.IndexPath == "" {
		return nil, ErrIndexPathRequired
	}

	naming := cfg.Naming
	if naming == nil {
		naming = concept.DefaultNaming()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = concept.DefaultBaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Builder{
		fetcher:   cfg.Fetcher,
		naming:    naming,
		baseURL:   baseURL,
		indexPath: cfg.IndexPath,
		logger:    logger,
		now:       now,
	}, nil
}

// IndexPath returns the path of the artifact the builder writes.
func (b *Builder) IndexPath() string {
	return b.indexPath
}

// Rebuild fetches the full catalog, derives every entry and replaces the
// index artifact. If fetching, parsing or writing fails the previous
// artifact is left as it was.
func (b *Builder) Rebuild(ctx context.Context) (*index.Index, error) {
	start := time.Now()

	slugs, err := b.fetcher.FetchSlugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	entries := make([]concept.Entry, 0, len(slugs))
	for _, slug := range slugs {
		entries = append(entries, concept.NewEntry(b.baseURL, slug, b.naming))
	}

	idx := index.Build(index.Meta{
		BaseURL:      b.baseURL,
		SourceDigest: SourceDigest(slugs),
		BuiltAt:      b.now().UTC().Truncate(time.Second),
	}, entries)

	if n := idx.NameCollisions(); n > 0 {
		b.logger.Warn("entries share a folded name", "collisions", n)
	}

	if err := idx.Save(ctx, b.indexPath); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	b.logger.Info("index rebuilt",
		"entries", idx.Len(),
		"tokens", idx.TokenCount(),
		"digest", idx.Meta().SourceDigest[:12],
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return idx, nil
}

// SourceDigest returns the hex BLAKE3 digest of the slug listing. The
// slugs are hashed in the order given, one per line.
func SourceDigest(slugs []string) string {
	h := blake3.New()
	for _, s := range slugs {
		h.Write([]byte(s + "\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
