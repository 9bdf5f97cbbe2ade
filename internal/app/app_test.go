package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/history"
	"github.com/bull/docqa/internal/loader"
	"github.com/bull/docqa/internal/rag"
	"github.com/bull/docqa/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ChunkSize:          500,
		ChunkOverlap:       50,
		VectorStorePath:    filepath.Join(dir, "vector_store.idx"),
		MetadataPath:       filepath.Join(dir, "metadata.json"),
		DefaultTopK:        4,
		MMRFetchK:          20,
		MMRLambda:          0.5,
		ExtractiveMaxChars: 800,
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingBatchSize: 500,
		LocalEmbeddingDim:  512,
		HostedTimeout:      5 * time.Second,
		VectorBackend:      config.BackendFile,
	}
}

func TestNew_LocalOnlyEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Selector.Hosted())
	_, isFile := a.Store.(*storage.FileStore)
	assert.True(t, isFile)

	doc, err := loader.FromText("Paris is the capital of France.", "")
	require.NoError(t, err)
	res, err := a.Pipeline.Ingest(ctx, doc)
	require.NoError(t, err)

	ans := a.Engine.Answer(ctx, rag.Query{Question: "What is the capital of France?"})
	assert.Equal(t, rag.ModeExtractive, ans.Mode)
	assert.Equal(t, []string{res.DocID}, ans.Scope)

	// A second app over the same paths sees the persisted index and history
	b, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	docs, err := b.Store.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, res.DocID, docs[0].ID)

	events, err := b.History.Events("")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, history.EventQuery, events[0].Type)
	assert.Equal(t, history.EventIngest, events[1].Type)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorBackend = "memory"

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNew_HostedProvidersConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = "sk-test"
	cfg.GroqAPIKey = "gsk-test"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Selector.Hosted())
	assert.Equal(t, "openai/text-embedding-3-small", a.Selector.Hosted().Space())
}

func TestNewHosted(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		model   string
		key     string
		want    bool
	}{
		{"no key", config.BackendFile, "text-embedding-3-small", "", false},
		{"file store, known model", config.BackendFile, "text-embedding-3-small", "sk-test", true},
		{"file store, unknown model", config.BackendFile, "custom-embedder", "sk-test", true},
		{"qdrant, known model", config.BackendQdrant, "text-embedding-3-large", "sk-test", true},
		{"qdrant, unknown model", config.BackendQdrant, "custom-embedder", "sk-test", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.VectorBackend = tt.backend
			cfg.EmbeddingModel = tt.model
			cfg.OpenAIAPIKey = tt.key

			hosted, err := newHosted(cfg, slog.Default())
			require.NoError(t, err)
			assert.Equal(t, tt.want, hosted != nil)
		})
	}
}
