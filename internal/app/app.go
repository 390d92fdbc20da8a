package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdulachik/sciencepedia/internal/builder"
	"github.com/abdulachik/sciencepedia/internal/concept"
	"github.com/abdulachik/sciencepedia/internal/config"
	"github.com/abdulachik/sciencepedia/internal/index"
	"github.com/abdulachik/sciencepedia/internal/resolver"
	"github.com/abdulachik/sciencepedia/internal/sitemap"
)

// App is the main application container holding all dependencies.
type App struct {
	Config  *config.Config
	Naming  *concept.Naming
	Fetcher *sitemap.Fetcher
	Builder *builder.Builder
	Logger  *slog.Logger
}

// New creates a new application instance with all dependencies wired up.
// Nothing is read from the index or the network until a command needs it.
func New(cfg *config.Config) (*App, error) {
	logger := slog.Default()

	// Load de-slugification rules
	naming, err := concept.LoadNaming(cfg.NamingFile)
	if err != nil {
		return nil, err
	}

	// Create listing fetcher
	fetcher := sitemap.New(sitemap.Config{
		URLs:      cfg.SitemapURLs,
		Timeout:   cfg.FetchTimeout,
		Workers:   cfg.FetchWorkers,
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})

	// Create index builder
	b, err := builder.New(builder.Config{
		Fetcher:   fetcher,
		Naming:    naming,
		BaseURL:   cfg.BaseURL,
		IndexPath: cfg.IndexPath,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		Config:  cfg,
		Naming:  naming,
		Fetcher: fetcher,
		Builder: b,
		Logger:  logger,
	}, nil
}

// Refresh rebuilds the index from the remote listings.
func (a *App) Refresh(ctx context.Context) (*index.Index, error) {
	return a.Builder.Rebuild(ctx)
}

// LoadIndex reads the index artifact from disk.
func (a *App) LoadIndex(ctx context.Context) (*index.Index, error) {
	return index.Load(ctx, a.Config.IndexPath)
}

// Resolver creates a resolver over idx using the configured thresholds.
func (a *App) Resolver(idx *index.Index) (*resolver.Resolver, error) {
	return resolver.New(idx,
		resolver.WithTokenThreshold(a.Config.TokenThreshold),
		resolver.WithFuzzyFloor(a.Config.FuzzyFloor),
		resolver.WithWorkers(a.Config.ResolveWorkers),
		resolver.WithLogger(a.Logger),
	)
}

// Lookup loads the index once and resolves the batch against it.
func (a *App) Lookup(ctx context.Context, queries []string, topN int) ([]resolver.MatchResult, error) {
	idx, err := a.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}

	r, err := a.Resolver(idx)
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	results, err := r.Resolve(ctx, queries, topN)
	if err != nil {
		return nil, err
	}

	a.Logger.Debug("batch resolved",
		"queries", len(queries),
		"fuzzy_comparisons", r.FuzzyComparisons(),
	)
	return results, nil
}
