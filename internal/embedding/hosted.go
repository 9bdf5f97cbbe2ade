package embedding

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the hosted embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
	DefaultBatchSize = 500

	// DefaultTimeout bounds one Embed call, all batches included.
	DefaultTimeout = 30 * time.Second
)

// knownDimensions lists output sizes of common OpenAI embedding models.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// HostedConfig configures a Hosted provider.
type HostedConfig struct {
	Model     string
	BatchSize int
	Timeout   time.Duration
}

// Hosted embeds texts with an OpenAI-compatible embeddings endpoint.
// It batches requests and never retries: failures go straight back to the caller.
type Hosted struct {
	client    *openai.Client
	model     string
	batchSize int
	timeout   time.Duration
}

// NewHosted creates a hosted provider. A nil client yields a provider whose
// every call fails with ErrProviderUnavailable.
func NewHosted(client *openai.Client, cfg HostedConfig) *Hosted {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Hosted{
		client:    client,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
	}
}

func (h *Hosted) Name() string { return "openai" }

func (h *Hosted) Space() string { return h.Name() + "/" + h.model }

func (h *Hosted) Dimension() int { return knownDimensions[h.model] }

// Embed generates embeddings for the given texts.
func (h *Hosted) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if h.client == nil {
		return nil, ErrProviderUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += h.batchSize {
		end := min(i+h.batchSize, len(texts))

		vectors, err := h.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// embedBatch generates embeddings for a single batch.
func (h *Hosted) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := h.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: h.model,
	})
	if err != nil {
		return nil, ClassifyAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderError, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.SliceStable(data, func(a, b int) bool { return data[a].Index < data[b].Index })

	embeddings := make([][]float32, len(data))
	for i, d := range data {
		embeddings[i] = toFloat32(d.Embedding)
	}
	return embeddings, nil
}

// toFloat32 converts []float64 to []float32.
// The API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
