// Package app builds the ingestion and query components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/docqa/internal/chunker"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/embedding"
	ghclient "github.com/bull/docqa/internal/github"
	"github.com/bull/docqa/internal/history"
	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/llm"
	"github.com/bull/docqa/internal/loader"
	"github.com/bull/docqa/internal/rag"
	"github.com/bull/docqa/internal/storage"
)

// App holds the wired components shared by the CLI and the MCP server.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    storage.VectorStore
	Selector *embedding.Selector
	Pipeline *indexer.Pipeline
	Engine   *rag.Engine
	Loader   *loader.Loader
	History  *history.Log
}

// New wires every component. Hosted embeddings and the chat model are enabled
// only when their credentials are configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Embeddings
	local := embedding.NewLocal(cfg.LocalEmbeddingDim)
	hosted, err := newHosted(cfg, logger)
	if err != nil {
		return nil, err
	}
	selector := embedding.NewSelector(hosted, local, logger)

	// Storage
	store, err := openStore(ctx, cfg, selector, logger)
	if err != nil {
		return nil, err
	}

	// Answer generation
	var generator rag.Generator
	if cfg.HostedLLM() {
		client, err := embedding.NewClient(embedding.ClientConfig{
			APIKey:  cfg.GroqAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Timeout: cfg.HostedTimeout,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create chat client: %w", err)
		}
		generator = llm.New(client, llm.Config{Model: cfg.LLMModel, Timeout: cfg.HostedTimeout}, logger)
	} else {
		logger.Info("GROQ_API_KEY not set, answers will be extractive")
	}

	hist := history.NewLog(cfg.MetadataPath, logger)

	opts := []loader.Option{loader.WithLogger(logger)}
	if gh, err := ghclient.NewClient(cfg.GitHubToken); err != nil {
		logger.Warn("GitHub loader disabled", "error", err)
	} else {
		opts = append(opts, loader.WithGitHub(ghclient.NewFetcher(gh)))
	}

	pipeline := indexer.NewPipeline(
		chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.ChunkOverlap)),
		selector,
		store,
		hist,
		logger,
	)

	lambda := cfg.MMRLambda
	engine := rag.NewEngine(selector, store, generator, hist, rag.Config{
		TopK:               cfg.DefaultTopK,
		FetchK:             cfg.MMRFetchK,
		Lambda:             &lambda,
		ExtractiveMaxChars: cfg.ExtractiveMaxChars,
	}, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Selector: selector,
		Pipeline: pipeline,
		Engine:   engine,
		Loader:   loader.New(opts...),
		History:  hist,
	}, nil
}

// newHosted returns the hosted embedder, or nil when OPENAI_API_KEY is unset.
// Qdrant needs every space's dimension up front, so a model of unknown size
// is left out there and ingestion embeds locally.
func newHosted(cfg *config.Config, logger *slog.Logger) (embedding.Provider, error) {
	if !cfg.HostedEmbeddings() {
		logger.Info("OPENAI_API_KEY not set, using local embeddings only")
		return nil, nil
	}
	client, err := embedding.NewClient(embedding.ClientConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.HostedTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	hosted := embedding.NewHosted(client, embedding.HostedConfig{
		Model:     cfg.EmbeddingModel,
		BatchSize: cfg.EmbeddingBatchSize,
		Timeout:   cfg.HostedTimeout,
	})
	if cfg.VectorBackend == config.BackendQdrant && hosted.Dimension() == 0 {
		logger.Warn("Unknown dimension for embedding model, using local embeddings with qdrant",
			"model", cfg.EmbeddingModel)
		return nil, nil
	}
	return hosted, nil
}

func openStore(ctx context.Context, cfg *config.Config, selector *embedding.Selector, logger *slog.Logger) (storage.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		spaces := map[string]int{selector.Local().Space(): selector.Local().Dimension()}
		if h := selector.Hosted(); h != nil {
			spaces[h.Space()] = h.Dimension()
		}
		store, err := storage.NewQdrantStore(ctx, storage.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			Collection: cfg.QdrantCollection,
			Spaces:     spaces,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open qdrant store: %w", err)
		}
		return store, nil

	case config.BackendFile:
		return storage.OpenFileStore(cfg.VectorStorePath, logger), nil

	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", config.ErrInvalidConfig, cfg.VectorBackend)
	}
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
