// Package indexer turns loaded documents into embedded, persisted chunks.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bull/docqa/internal/chunker"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/history"
	"github.com/bull/docqa/internal/loader"
	"github.com/bull/docqa/internal/storage"
)

var (
	// ErrEmptyDocument is returned when a document produces no chunks. Nothing is stored.
	ErrEmptyDocument = errors.New("empty document: nothing was ingested")

	// ErrNotDurable is returned when chunks were stored but could not be persisted.
	// They are searchable until the process exits.
	ErrNotDurable = errors.New("ingested but not persisted")
)

// Embedder embeds a batch of texts; it always produces vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) embedding.Result
}

// Recorder receives ingest events.
type Recorder interface {
	Append(e history.Event) error
}

// IngestResult describes one ingested document.
type IngestResult struct {
	DocID      string
	Source     string
	Kind       string
	Chunks     int
	Space      string
	Downgraded bool
	CreatedAt  time.Time
}

// BatchResult contains statistics about a multi-document ingestion.
type BatchResult struct {
	TotalDocs  int
	Ingested   []IngestResult
	FailedDocs []FailedDoc
	Chunks     int
	Duration   time.Duration
}

// FailedDoc represents a document that failed to ingest.
type FailedDoc struct {
	Source string
	Reason string
}

// Pipeline chunks, embeds and stores documents. Upsert and persist of one
// document run under a single lock so concurrent ingestions never interleave.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder Embedder
	store    storage.VectorStore
	history  Recorder
	logger   *slog.Logger

	mu sync.Mutex
}

// NewPipeline creates a new ingestion pipeline. history may be nil.
func NewPipeline(
	chunker *chunker.Chunker,
	embedder Embedder,
	store storage.VectorStore,
	history Recorder,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		history:  history,
		logger:   logger,
	}
}

// IngestText ingests raw text as a new document with a fresh ID.
// Ingesting the same text twice creates two documents.
//
// When the chunks are stored but persisting fails, the result is returned
// together with an error wrapping ErrNotDurable and storage.ErrIOFailure.
func (p *Pipeline) IngestText(ctx context.Context, raw, source, kind string) (*IngestResult, error) {
	var texts []string
	for seg := range p.chunker.Segments(raw) {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		texts = append(texts, seg.Text)
	}
	if len(texts) == 0 {
		return nil, ErrEmptyDocument
	}

	embedded := p.embedder.Embed(ctx, texts)
	if len(embedded.Vectors) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(embedded.Vectors), len(texts))
	}

	result := &IngestResult{
		DocID:      uuid.New().String(),
		Source:     source,
		Kind:       kind,
		Chunks:     len(texts),
		Space:      embedded.Space,
		Downgraded: embedded.Downgraded,
		CreatedAt:  time.Now().UTC(),
	}

	chunks := make([]storage.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = storage.Chunk{
			ID:        uuid.New().String(),
			DocID:     result.DocID,
			Source:    source,
			Kind:      kind,
			Position:  i,
			Text:      text,
			CreatedAt: result.CreatedAt,
			Space:     embedded.Space,
			Vector:    embedded.Vectors[i],
		}
	}

	p.mu.Lock()
	err := p.store.Upsert(ctx, chunks)
	var persistErr error
	if err == nil {
		persistErr = p.store.Persist(ctx)
	}
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	p.logger.Info("Ingested document",
		"doc_id", result.DocID,
		"source", source,
		"kind", kind,
		"chunks", result.Chunks,
		"space", result.Space,
		"downgraded", result.Downgraded,
	)
	p.record(result)

	if persistErr != nil {
		p.logger.Error("Ingested document is not durable", "doc_id", result.DocID, "error", persistErr)
		return result, fmt.Errorf("%w: %w", ErrNotDurable, persistErr)
	}
	return result, nil
}

func (p *Pipeline) record(r *IngestResult) {
	if p.history == nil {
		return
	}
	err := p.history.Append(history.Event{
		Type:       history.EventIngest,
		Time:       r.CreatedAt,
		DocIDs:     []string{r.DocID},
		Source:     r.Source,
		Kind:       r.Kind,
		Chunks:     r.Chunks,
		Space:      r.Space,
		Downgraded: r.Downgraded,
	})
	if err != nil {
		p.logger.Warn("Failed to record ingest history", "doc_id", r.DocID, "error", err)
	}
}

// Ingest ingests a loaded document.
func (p *Pipeline) Ingest(ctx context.Context, doc loader.Document) (*IngestResult, error) {
	return p.IngestText(ctx, doc.Text, doc.Source, doc.Kind)
}

// IngestAll ingests every document, continuing past failures.
// The error is non-nil only when some documents were stored without being persisted.
func (p *Pipeline) IngestAll(ctx context.Context, docs []loader.Document) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{TotalDocs: len(docs)}

	var durability error
	for _, doc := range docs {
		r, err := p.Ingest(ctx, doc)
		if r != nil {
			result.Ingested = append(result.Ingested, *r)
			result.Chunks += r.Chunks
		}
		if errors.Is(err, ErrNotDurable) {
			durability = err
			continue
		}
		if err != nil {
			p.logger.Warn("Failed to ingest document", "source", doc.Source, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				Source: doc.Source,
				Reason: err.Error(),
			})
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"successful", len(result.Ingested),
		"failed", len(result.FailedDocs),
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, durability
}

// LoadError maps a loader failure to the ingestion taxonomy: a source without
// text is an empty document.
func LoadError(err error) error {
	if errors.Is(err, loader.ErrNoExtractableText) {
		return fmt.Errorf("%w: %w", ErrEmptyDocument, err)
	}
	return err
}
