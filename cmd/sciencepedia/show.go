package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abdulachik/sciencepedia/internal/concept"
	"github.com/abdulachik/sciencepedia/internal/config"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Print the stored entry for a slug",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, _, err := openIndex(ctx, cfg.IndexPath)
	if err != nil {
		return err
	}
	defer store.Close()

	row, err := store.GetConcept(ctx, args[0])
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no entry with slug %q", args[0])
	}
	if err != nil {
		return fmt.Errorf("get concept: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(concept.Entry{Slug: row.Slug, Name: row.Name, URL: row.Url})
}
