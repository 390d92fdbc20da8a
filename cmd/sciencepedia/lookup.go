package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abdulachik/sciencepedia/internal/app"
	"github.com/abdulachik/sciencepedia/internal/config"
	"github.com/abdulachik/sciencepedia/internal/output"
	"github.com/spf13/cobra"
)

var (
	lookupTop     int
	lookupRefresh bool
	lookupFormat  string
)

func init() {
	rootCmd.Flags().IntVarP(&lookupTop, "top", "n", 3, "Results per query (default from DEFAULT_TOP)")
	rootCmd.Flags().BoolVar(&lookupRefresh, "refresh", false, "Rebuild the index from the remote listings; queries are ignored")
	rootCmd.Flags().StringVarP(&lookupFormat, "format", "f", "json", "Output format: json or text")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if !lookupRefresh && len(args) == 0 {
		return errors.New("at least one query is required (or --refresh)")
	}

	format, err := output.ParseFormat(lookupFormat)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if lookupRefresh {
		return runRefresh(ctx, cfg, args)
	}

	if err := cfg.ValidateForLookup(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	topN := cfg.DefaultTop
	if cmd.Flags().Changed("top") {
		topN = lookupTop
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}

	results, err := a.Lookup(ctx, args, topN)
	if err != nil {
		return err
	}

	return output.Write(cmd.OutOrStdout(), format, results)
}

func runRefresh(ctx context.Context, cfg *config.Config, queries []string) error {
	if err := cfg.ValidateForRefresh(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if len(queries) > 0 {
		slog.Warn("queries are ignored with --refresh", "queries", len(queries))
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}

	slog.Info("refreshing index", "path", cfg.IndexPath, "listings", len(a.Fetcher.URLs()))
	idx, err := a.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh index: %w", err)
	}

	slog.Info("index refreshed", "entries", idx.Len())
	return nil
}
