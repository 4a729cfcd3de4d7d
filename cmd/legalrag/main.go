// Package main provides the legalrag CLI for ingesting and searching legal documents.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/legal-rag/internal/app"
	"github.com/bull/legal-rag/internal/config"
)

var (
	configPath string
	verbose    bool
	maxChars   int
)

var rootCmd = &cobra.Command{
	Use:   "legalrag",
	Short: "Legal document ingestion and retrieval",
	Long: `CLI for indexing legal documents into a vector index and searching them.

Documents are extracted (with OCR for scanned PDFs), stripped of personal data,
split into chunks, embedded and stored. Queries return the most similar chunks.

Environment variables:
  GOOGLE_API_KEY     Gemini API key for embeddings
  OPENAI_API_KEY     OpenAI key for answers (and embeddings with EMBEDDING_PROVIDER=openai)
  INDEX_BACKEND      qdrant or sqlite (default: qdrant)
  QDRANT_HOST        Qdrant hostname (default: localhost)
  QDRANT_PORT        Qdrant gRPC port (default: 6334)
  GITHUB_TOKEN       GitHub token for ingest-github (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().IntVar(&maxChars, "max-chars", 0, "chunk size bound in characters (overrides config)")
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the global flags on top of the loaded configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if maxChars != 0 {
		cfg.Chunking.MaxChars = maxChars
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// setup builds the application for a command. The caller closes it.
func setup(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cmd.ErrOrStderr(), cfg.SlogLevel())
	return app.New(cmd.Context(), cfg, logger)
}
