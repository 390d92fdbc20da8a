package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/abdulachik/sciencepedia/internal/index"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sciencepedia [queries...]",
	Short: "Look up SciencePedia concept pages",
	Long: `sciencepedia matches free-text concept names against an offline index
of SciencePedia keyword pages and prints the best matching pages as JSON.

Build or refresh the index with --refresh before the first lookup.`,
	Example: `  sciencepedia --refresh
  sciencepedia "density functional theory" "GLP-1"
  sciencepedia --top 5 quantum`,
	Args: cobra.ArbitraryArgs,
	RunE: runLookup,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			fmt.Fprintln(os.Stderr, "hint: run `sciencepedia --refresh` to build the index")
		}
		os.Exit(1)
	}
}
