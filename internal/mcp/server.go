package mcp

import (
	"context"

	"github.com/bull/docqa/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	store  storage.VectorStore
}

// Config holds server dependencies.
type Config struct {
	Store    storage.VectorStore
	Ingester Ingester
	URLs     URLLoader
	Answerer Answerer
	History  HistoryReader // Optional

	// Reported by get_index_status
	HostedEmbeddings bool
	HostedLLM        bool
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "docqa",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_text",
		Description: "Ingest raw text as a new document. Returns the document ID to use for scoped questions.",
	}, makeIngestTextHandler(cfg.Ingester))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_url",
		Description: "Download a web page or PDF and ingest its text as a new document. Returns the document ID.",
	}, makeIngestURLHandler(cfg.Ingester, cfg.URLs))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "answer_query",
		Description: "Answer a question from the ingested documents with citations. Without doc_ids the answer comes from the single best matching document.",
	}, makeAnswerHandler(cfg.Answerer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List all ingested documents with their IDs, sources and chunk counts.",
	}, makeListHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the index: backend, document and chunk counts per embedding space, configured hosted providers and last ingestion time.",
	}, makeStatusHandler(cfg.Store, cfg.History, cfg.HostedEmbeddings, cfg.HostedLLM))

	return &Server{
		server: server,
		store:  cfg.Store,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
