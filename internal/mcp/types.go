// Package mcp exposes ingestion and question answering as MCP tools.
package mcp

// IngestTextInput defines the input parameters for the ingest_text tool.
type IngestTextInput struct {
	// Text is the raw document text.
	Text string `json:"text" jsonschema:"The document text to ingest"`
	// Source names the document in citations.
	Source string `json:"source,omitempty" jsonschema:"Name shown in citations (defaults to text)"`
}

// IngestURLInput defines the input parameters for the ingest_url tool.
type IngestURLInput struct {
	// URL is a web page or PDF address.
	URL string `json:"url" jsonschema:"Address of a web page or PDF to ingest"`
}

// IngestOutput describes one ingested document.
type IngestOutput struct {
	DocID      string `json:"doc_id"`
	Source     string `json:"source"`
	Kind       string `json:"kind"`
	Chunks     int    `json:"chunks"`
	Space      string `json:"space"`
	Downgraded bool   `json:"downgraded"`
	CreatedAt  string `json:"created_at"` // RFC 3339
	// Warning is set when the document is searchable but was not persisted.
	Warning string `json:"warning,omitempty"`
}

// AnswerQueryInput defines the input parameters for the answer_query tool.
type AnswerQueryInput struct {
	// Question is the natural-language question.
	Question string `json:"question" jsonschema:"The question to answer from the ingested documents"`
	// DocIDs restricts the answer to these documents.
	DocIDs []string `json:"doc_ids,omitempty" jsonschema:"Document IDs to answer from; empty lets the server pick the best matching document"`
	// TopK is the number of passages to retrieve.
	TopK int `json:"top_k,omitempty" jsonschema:"Number of passages to retrieve (default 4)"`
}

// AnswerQueryOutput contains the answer and what it was built from.
type AnswerQueryOutput struct {
	Answer    string         `json:"answer"`
	Mode      string         `json:"mode"`
	Citations []CitationInfo `json:"citations"`
	Scope     []string       `json:"scope"`
	Focused   bool           `json:"focused"`
	Passages  []PassageInfo  `json:"passages"`
}

// CitationInfo identifies a cited document.
type CitationInfo struct {
	DocID  string `json:"doc_id"`
	Source string `json:"source"`
}

// PassageInfo is one retrieved chunk.
type PassageInfo struct {
	DocID    string  `json:"doc_id"`
	Source   string  `json:"source"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// ListSourcesInput defines the input parameters for the list_sources tool.
// This tool takes no parameters and lists all ingested documents.
type ListSourcesInput struct {
	// No input parameters required
}

// ListSourcesOutput contains every ingested document.
type ListSourcesOutput struct {
	Sources []SourceInfo `json:"sources"`
	Count   int          `json:"count"`
}

// SourceInfo describes one ingested document.
type SourceInfo struct {
	DocID     string `json:"doc_id"`
	Source    string `json:"source"`
	Kind      string `json:"kind"`
	Space     string `json:"space"`
	Chunks    int    `json:"chunks"`
	CreatedAt string `json:"created_at"` // RFC 3339
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct {
	// No input parameters required
}

// StatusOutput reports the index contents and which hosted providers are configured.
type StatusOutput struct {
	Backend          string      `json:"backend"`
	Location         string      `json:"location"`
	TotalDocs        int         `json:"total_docs"`
	TotalChunks      int         `json:"total_chunks"`
	Spaces           []SpaceInfo `json:"spaces"`
	HostedEmbeddings bool        `json:"hosted_embeddings"`
	HostedLLM        bool        `json:"hosted_llm"`
	LastIngest       string      `json:"last_ingest,omitempty"` // RFC 3339
	// Warning reports why the store started empty, if it did.
	Warning string `json:"warning,omitempty"`
}

// SpaceInfo describes the vectors of one embedding space.
type SpaceInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Chunks    int    `json:"chunks"`
}
