package storage

import "time"

// Chunk is one embedded segment of an ingested document.
type Chunk struct {
	ID        string    // UUID
	DocID     string    // Owning document
	Source    string    // Filename, URL, github:owner/repo/path or "text"
	Kind      string    // pdf, webpage, markdown, file, github, text
	Position  int       // Position in document (0, 1, 2...)
	Text      string    // Chunk text content
	CreatedAt time.Time // Ingestion time of the owning document
	Space     string    // Embedding space that produced Vector
	Vector    []float32
}

// ScoredChunk is a search hit. Score is the cosine similarity to the query vector of the chunk's space.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// SearchRequest describes a similarity search.
type SearchRequest struct {
	// Vectors holds the query embedded in each space to search. Chunks of a
	// space missing here are not eligible.
	Vectors map[string][]float32

	// K is the maximum number of hits.
	K int

	// DocIDs restricts the search to these documents. Empty means all documents.
	DocIDs []string
}

// DocumentInfo summarises one ingested document, derived from its chunks.
type DocumentInfo struct {
	ID        string
	Source    string
	Kind      string
	Space     string
	CreatedAt time.Time
	Chunks    int
}

// SpaceInfo describes the vectors stored for one embedding space.
type SpaceInfo struct {
	Name      string
	Dimension int
	Chunks    int
}

// Stats reports the contents of a store.
type Stats struct {
	Backend   string
	Location  string // File path or collection name
	Documents int
	Chunks    int
	Spaces    []SpaceInfo
	Warning   string // Load warning, if the store started empty because of one
}
