package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
)

// BackendFile names the file-backed store in Stats.
const BackendFile = "file"

// FileStore is an in-memory flat index persisted to a single file.
// Searches run concurrently; upserts, resets and loads are exclusive.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	logger *slog.Logger

	chunks []Chunk        // Insertion order
	byID   map[string]int // Chunk ID -> index in chunks
	dims   map[string]int // Space -> dimension
	warn   error          // Load warning
}

// OpenFileStore loads the index at path. It never fails: a missing file gives an
// empty store with ErrIndexNotFound as load warning, an unreadable or corrupt one
// an empty store with a warning wrapping ErrStoreCorrupted.
func OpenFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{
		path:   path,
		logger: logger,
		byID:   map[string]int{},
		dims:   map[string]int{},
	}
	s.load()
	return s
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.warn = ErrIndexNotFound
		s.logger.Warn("no index on disk, starting with an empty store", "path", s.path)
		return
	}
	if err != nil {
		s.warn = fmt.Errorf("%w: read %s: %v", ErrStoreCorrupted, s.path, err)
		s.logger.Warn("index unreadable, starting with an empty store", "path", s.path, "error", err)
		return
	}

	dims, chunks, err := decodeIndex(data)
	if err != nil {
		s.warn = err
		s.logger.Warn("index corrupted, starting with an empty store", "path", s.path, "error", err)
		return
	}

	s.dims = dims
	s.chunks = chunks
	for i, c := range chunks {
		s.byID[c.ID] = i
	}
	s.logger.Info("index loaded", "path", s.path, "chunks", len(chunks), "spaces", len(dims))
}

// LoadWarning returns the condition recorded when the store was opened, or nil.
func (s *FileStore) LoadWarning() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warn
}

// Path returns the index file location.
func (s *FileStore) Path() string { return s.path }

// Upsert validates every chunk, then inserts or replaces them by ID.
func (s *FileStore) Upsert(_ context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newDims, err := validateChunks(s.dims, chunks)
	if err != nil {
		return err
	}

	for space, dim := range newDims {
		s.dims[space] = dim
	}
	for _, c := range chunks {
		c.Vector = slices.Clone(c.Vector)
		if i, ok := s.byID[c.ID]; ok {
			s.chunks[i] = c
			continue
		}
		s.byID[c.ID] = len(s.chunks)
		s.chunks = append(s.chunks, c)
	}
	return nil
}

// validateChunks checks chunks against known dimensions and returns the
// dimensions of spaces seen for the first time.
func validateChunks(known map[string]int, chunks []Chunk) (map[string]int, error) {
	fresh := map[string]int{}
	for i, c := range chunks {
		switch {
		case c.ID == "":
			return nil, fmt.Errorf("%w: chunk %d has no id", ErrInvalidChunk, i)
		case c.DocID == "":
			return nil, fmt.Errorf("%w: chunk %d has no document id", ErrInvalidChunk, i)
		case c.Space == "":
			return nil, fmt.Errorf("%w: chunk %d has no embedding space", ErrInvalidChunk, i)
		case len(c.Vector) == 0:
			return nil, fmt.Errorf("%w: chunk %d has no vector", ErrInvalidChunk, i)
		}

		want, ok := known[c.Space]
		if !ok {
			want, ok = fresh[c.Space]
		}
		if !ok {
			fresh[c.Space] = len(c.Vector)
			continue
		}
		if len(c.Vector) != want {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, space %s expects %d",
				ErrDimensionMismatch, i, len(c.Vector), c.Space, want)
		}
	}
	return fresh, nil
}

// Search scores every eligible chunk against the query vector of its space.
// Ties keep insertion order.
func (s *FileStore) Search(_ context.Context, req SearchRequest) ([]ScoredChunk, error) {
	if req.K <= 0 || len(req.Vectors) == 0 {
		return nil, nil
	}

	var scope map[string]bool
	if len(req.DocIDs) > 0 {
		scope = make(map[string]bool, len(req.DocIDs))
		for _, id := range req.DocIDs {
			scope[id] = true
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []ScoredChunk
	for _, c := range s.chunks {
		if scope != nil && !scope[c.DocID] {
			continue
		}
		query, ok := req.Vectors[c.Space]
		if !ok || len(query) != len(c.Vector) {
			continue
		}
		hits = append(hits, ScoredChunk{Chunk: c, Score: cosineSimilarity(query, c.Vector)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > req.K {
		hits = hits[:req.K]
	}
	return hits, nil
}

func (s *FileStore) Spaces(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	for _, c := range s.chunks {
		seen[c.Space] = true
	}
	spaces := make([]string, 0, len(seen))
	for space := range seen {
		spaces = append(spaces, space)
	}
	sort.Strings(spaces)
	return spaces, nil
}

func (s *FileStore) Documents(_ context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summariseDocuments(s.chunks), nil
}

// summariseDocuments groups chunks by document in order of first appearance.
func summariseDocuments(chunks []Chunk) []DocumentInfo {
	index := map[string]int{}
	var docs []DocumentInfo
	for _, c := range chunks {
		i, ok := index[c.DocID]
		if !ok {
			i = len(docs)
			index[c.DocID] = i
			docs = append(docs, DocumentInfo{
				ID:        c.DocID,
				Source:    c.Source,
				Kind:      c.Kind,
				Space:     c.Space,
				CreatedAt: c.CreatedAt,
			})
		}
		docs[i].Chunks++
	}
	return docs
}

func (s *FileStore) Stats(ctx context.Context) (*Stats, error) {
	docs, _ := s.Documents(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, c := range s.chunks {
		counts[c.Space]++
	}
	spaces := make([]SpaceInfo, 0, len(counts))
	for space, n := range counts {
		spaces = append(spaces, SpaceInfo{Name: space, Dimension: s.dims[space], Chunks: n})
	}
	sort.Slice(spaces, func(i, j int) bool { return spaces[i].Name < spaces[j].Name })

	stats := &Stats{
		Backend:   BackendFile,
		Location:  s.path,
		Documents: len(docs),
		Chunks:    len(s.chunks),
		Spaces:    spaces,
	}
	if s.warn != nil {
		stats.Warning = s.warn.Error()
	}
	return stats, nil
}

// Persist writes a snapshot of the index and atomically replaces the file.
func (s *FileStore) Persist(_ context.Context) error {
	s.mu.RLock()
	data, err := encodeIndex(s.dims, s.chunks)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	s.logger.Debug("index persisted", "path", s.path, "bytes", len(data))
	return nil
}

// Reset drops every chunk and persists the empty index.
func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.chunks = nil
	s.byID = map[string]int{}
	s.dims = map[string]int{}
	s.warn = nil
	s.mu.Unlock()

	return s.Persist(ctx)
}

// Health reports whether the index directory is usable.
func (s *FileStore) Health(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		// Created on first persist
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrIOFailure, dir)
	}
	return nil
}

// Close is a no-op: the store holds no open handles between calls.
func (s *FileStore) Close() error { return nil }

// writeFileAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path. The temp file is removed on every failure.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

var _ VectorStore = (*FileStore)(nil)
