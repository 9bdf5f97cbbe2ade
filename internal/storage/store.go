package storage

import "context"

// VectorStore holds embedded chunks and answers similarity searches over them.
//
// Upsert is all-or-nothing: every chunk is validated before any is applied.
// Search on an empty store, or with no eligible chunks, returns no hits and no error.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, req SearchRequest) ([]ScoredChunk, error)

	// Spaces lists the embedding spaces that currently hold vectors, sorted by name.
	Spaces(ctx context.Context) ([]string, error)

	// Documents lists ingested documents in ingestion order.
	Documents(ctx context.Context) ([]DocumentInfo, error)

	Stats(ctx context.Context) (*Stats, error)

	// Persist makes every applied upsert durable.
	Persist(ctx context.Context) error

	// Reset removes every chunk and persists the empty store.
	Reset(ctx context.Context) error

	Health(ctx context.Context) error
	Close() error
}
