// Package embedding turns text into vectors, using a hosted OpenAI-compatible
// model when available and a deterministic local model otherwise.
package embedding

import "context"

// Provider embeds texts into fixed-dimension vectors.
// Embed returns one vector per input, in input order.
type Provider interface {
	// Name is the provider family, e.g. "openai" or "local".
	Name() string

	// Space identifies the vector space produced, e.g. "openai/text-embedding-3-small".
	// Vectors from different spaces are never compared.
	Space() string

	// Dimension is the vector length, or 0 when it is only known after the first call.
	Dimension() int

	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
