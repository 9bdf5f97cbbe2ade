// Package main provides the docqa CLI for ingesting documents and asking questions about them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over your own documents",
	Long: `Ingest PDFs, web pages, markdown and text files, GitHub repositories or raw
text, then ask questions answered from them with citations.

Environment variables:
  VECTOR_STORE_PATH Index file (default: data/vector_store.idx)
  METADATA_PATH     History file (default: data/metadata.json)
  OPENAI_API_KEY    Hosted embeddings (optional, local embeddings otherwise)
  GROQ_API_KEY      Hosted answers (optional, extractive answers otherwise)
  GITHUB_TOKEN      GitHub token for higher rate limits (optional)
  VECTOR_BACKEND    file or qdrant (default: file)`,
	SilenceUsage: true,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openApp loads configuration and wires the components for one command.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.Configure(cfg.LogLevel)

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialise: %w", err)
	}
	return a, nil
}
