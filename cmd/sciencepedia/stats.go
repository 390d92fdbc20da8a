package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/abdulachik/sciencepedia/internal/config"
	"github.com/abdulachik/sciencepedia/internal/db"
	"github.com/abdulachik/sciencepedia/internal/index"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long:  `Display the size and build metadata of the concept index.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, info, err := openIndex(ctx, cfg.IndexPath)
	if err != nil {
		return err
	}
	defer store.Close()

	concepts, err := store.CountConcepts(ctx)
	if err != nil {
		return fmt.Errorf("count concepts: %w", err)
	}

	tokens, err := store.CountDistinctTokens(ctx)
	if err != nil {
		return fmt.Errorf("count tokens: %w", err)
	}

	w := cmd.OutOrStdout()

	// Print stats
	fmt.Fprintln(w, "=== SciencePedia Index ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Path: %s\n", cfg.IndexPath)
	fmt.Fprintf(w, "Size: %.1f MiB\n", float64(info.Size())/(1<<20))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Entries:")
	fmt.Fprintf(w, "  Concepts: %d\n", concepts)
	fmt.Fprintf(w, "  Distinct tokens: %d\n", tokens)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Build:")
	for _, key := range []string{"base_url", "built_at", "source_digest", "schema_version"} {
		v, err := store.GetMeta(ctx, key)
		if errors.Is(err, sql.ErrNoRows) {
			v = "-"
		} else if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		fmt.Fprintf(w, "  %s: %s\n", key, v)
	}

	return nil
}

// openIndex opens an existing index artifact for reading.
func openIndex(ctx context.Context, path string) (*db.Store, os.FileInfo, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", index.ErrIndexNotFound, path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("stat index: %w", err)
	}

	store, err := db.OpenReadOnly(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	return store, info, nil
}
