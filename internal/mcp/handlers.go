package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bull/docqa/internal/history"
	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/loader"
	"github.com/bull/docqa/internal/rag"
	"github.com/bull/docqa/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Ingester stores loaded documents.
type Ingester interface {
	Ingest(ctx context.Context, doc loader.Document) (*indexer.IngestResult, error)
}

// URLLoader fetches web pages and PDFs.
type URLLoader interface {
	LoadURL(ctx context.Context, url string) (loader.Document, error)
}

// Answerer answers questions from the index.
type Answerer interface {
	Answer(ctx context.Context, q rag.Query) *rag.Answer
}

// HistoryReader lists recorded events.
type HistoryReader interface {
	Events(t history.EventType) ([]history.Event, error)
}

// makeIngestTextHandler creates the ingest_text tool handler.
func makeIngestTextHandler(ingester Ingester) func(
	context.Context, *mcp.CallToolRequest, IngestTextInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestTextInput) (
		*mcp.CallToolResult, IngestOutput, error,
	) {
		doc, err := loader.FromText(input.Text, input.Source)
		if err != nil {
			return nil, IngestOutput{}, indexer.LoadError(err)
		}
		return ingest(ctx, ingester, doc)
	}
}

// makeIngestURLHandler creates the ingest_url tool handler.
// HTML pages are reduced to their visible text, PDFs to their plain text.
func makeIngestURLHandler(ingester Ingester, urls URLLoader) func(
	context.Context, *mcp.CallToolRequest, IngestURLInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestURLInput) (
		*mcp.CallToolResult, IngestOutput, error,
	) {
		url := strings.TrimSpace(input.URL)
		if url == "" {
			return nil, IngestOutput{}, errors.New("url is required")
		}
		doc, err := urls.LoadURL(ctx, url)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("failed to load %s: %w", url, indexer.LoadError(err))
		}
		return ingest(ctx, ingester, doc)
	}
}

// ingest stores doc. A document stored without being persisted is reported
// through Warning rather than as a failure: it is searchable until restart.
func ingest(ctx context.Context, ingester Ingester, doc loader.Document) (*mcp.CallToolResult, IngestOutput, error) {
	res, err := ingester.Ingest(ctx, doc)
	if res == nil {
		return nil, IngestOutput{}, fmt.Errorf("ingestion failed: %w", err)
	}

	out := IngestOutput{
		DocID:      res.DocID,
		Source:     res.Source,
		Kind:       res.Kind,
		Chunks:     res.Chunks,
		Space:      res.Space,
		Downgraded: res.Downgraded,
		CreatedAt:  res.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err != nil {
		out.Warning = err.Error()
	}
	return nil, out, nil
}

// makeAnswerHandler creates the answer_query tool handler.
// Answering never fails; an unanswerable question yields mode "none".
func makeAnswerHandler(answerer Answerer) func(
	context.Context, *mcp.CallToolRequest, AnswerQueryInput,
) (*mcp.CallToolResult, AnswerQueryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AnswerQueryInput) (
		*mcp.CallToolResult, AnswerQueryOutput, error,
	) {
		if strings.TrimSpace(input.Question) == "" {
			return nil, AnswerQueryOutput{}, errors.New("question is required")
		}

		ans := answerer.Answer(ctx, rag.Query{
			Question: input.Question,
			DocIDs:   input.DocIDs,
			TopK:     input.TopK,
		})

		// Ensure non-nil slices for JSON marshaling
		out := AnswerQueryOutput{
			Answer:    ans.Text,
			Mode:      string(ans.Mode),
			Citations: make([]CitationInfo, 0, len(ans.Citations)),
			Scope:     append([]string{}, ans.Scope...),
			Focused:   ans.Focused,
			Passages:  make([]PassageInfo, 0, len(ans.Passages)),
		}
		for _, c := range ans.Citations {
			out.Citations = append(out.Citations, CitationInfo{DocID: c.DocID, Source: c.Source})
		}
		for _, p := range ans.Passages {
			out.Passages = append(out.Passages, PassageInfo{
				DocID:    p.Chunk.DocID,
				Source:   p.Chunk.Source,
				Position: p.Chunk.Position,
				Score:    p.Score,
				Text:     p.Chunk.Text,
			})
		}
		return nil, out, nil
	}
}

// makeListHandler creates the list_sources tool handler.
// Returns every ingested document in ingestion order.
func makeListHandler(store storage.VectorStore) func(
	context.Context, *mcp.CallToolRequest, ListSourcesInput,
) (*mcp.CallToolResult, ListSourcesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListSourcesInput) (
		*mcp.CallToolResult, ListSourcesOutput, error,
	) {
		docs, err := store.Documents(ctx)
		if err != nil {
			return nil, ListSourcesOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		sources := make([]SourceInfo, 0, len(docs))
		for _, d := range docs {
			sources = append(sources, SourceInfo{
				DocID:     d.ID,
				Source:    d.Source,
				Kind:      d.Kind,
				Space:     d.Space,
				Chunks:    d.Chunks,
				CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil, ListSourcesOutput{Sources: sources, Count: len(sources)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// Returns document and chunk counts per embedding space, the configured hosted
// providers and the time of the last ingestion.
func makeStatusHandler(
	store storage.VectorStore,
	hist HistoryReader,
	hostedEmbeddings, hostedLLM bool,
) func(context.Context, *mcp.CallToolRequest, StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		stats, err := store.Stats(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("store_error: failed to get stats: %w", err)
		}

		out := StatusOutput{
			Backend:          stats.Backend,
			Location:         stats.Location,
			TotalDocs:        stats.Documents,
			TotalChunks:      stats.Chunks,
			Spaces:           make([]SpaceInfo, 0, len(stats.Spaces)),
			HostedEmbeddings: hostedEmbeddings,
			HostedLLM:        hostedLLM,
			Warning:          stats.Warning,
		}
		for _, s := range stats.Spaces {
			out.Spaces = append(out.Spaces, SpaceInfo{Name: s.Name, Dimension: s.Dimension, Chunks: s.Chunks})
		}

		// History is informational; a missing log is not an error for the tool
		if hist != nil {
			if events, err := hist.Events(history.EventIngest); err == nil && len(events) > 0 {
				out.LastIngest = events[0].Time.UTC().Format(time.RFC3339)
			}
		}
		return nil, out, nil
	}
}
