package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// BackendQdrant names the Qdrant-backed store in Stats.
const BackendQdrant = "qdrant"

// DefaultCollection is the Qdrant collection used when none is configured.
const DefaultCollection = "chunks"

// QdrantConfig configures a QdrantStore.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string

	// Spaces maps every embedding space the store accepts to its dimension.
	// Each space becomes one named vector of the collection.
	Spaces map[string]int
}

// QdrantStore keeps chunks in a Qdrant collection with one named vector per embedding space.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	spaces     map[string]int
	logger     *slog.Logger
}

// NewQdrantStore creates a new Qdrant client with health validation and ensures the collection exists.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig, logger *slog.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		spaces:     cfg.Spaces,
		logger:     logger,
	}

	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// newBackOff returns the retry policy for Qdrant calls.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, newBackOff(ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// vectorName maps a space ("openai/text-embedding-3-small") to a Qdrant vector name.
func vectorName(space string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, space)
}

// ensureCollection creates the collection with one cosine named vector per space
// and keyword payload indexes. Idempotent.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	params := make(map[string]*qdrant.VectorParams, len(s.spaces))
	for space, dim := range s.spaces {
		params[vectorName(space)] = &qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig:  qdrant.NewVectorsConfigMap(params),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range []string{"doc_id", "kind", "source", "space"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	s.logger.Info("qdrant collection created", "collection", s.collection, "spaces", len(s.spaces))
	return nil
}

// Upsert validates every chunk, then writes them in a single request.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if _, err := validateChunks(s.spaces, chunks); err != nil {
		return err
	}
	for i, c := range chunks {
		if _, ok := s.spaces[c.Space]; !ok {
			return fmt.Errorf("%w: chunk %d uses unconfigured space %s", ErrInvalidChunk, i, c.Space)
		}
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				vectorName(c.Space): qdrant.NewVector(c.Vector...),
			}),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":     c.DocID,
				"source":     c.Source,
				"kind":       c.Kind,
				"position":   c.Position,
				"text":       c.Text,
				"created_at": c.CreatedAt.UTC().Format(time.RFC3339Nano),
				"space":      c.Space,
			}),
		}
	}

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}
	if err := backoff.Retry(operation, newBackOff(ctx)); err != nil {
		return fmt.Errorf("failed to upsert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// Search queries each requested space and merges the hits by score.
func (s *QdrantStore) Search(ctx context.Context, req SearchRequest) ([]ScoredChunk, error) {
	if req.K <= 0 || len(req.Vectors) == 0 {
		return nil, nil
	}

	var hits []ScoredChunk
	for space, query := range req.Vectors {
		dim, ok := s.spaces[space]
		if !ok || dim != len(query) {
			continue
		}

		must := []*qdrant.Condition{qdrant.NewMatch("space", space)}
		if len(req.DocIDs) > 0 {
			must = append(must, qdrant.NewMatchKeywords("doc_id", req.DocIDs...))
		}

		name := vectorName(space)
		results, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.collection,
			Query:          qdrant.NewQuery(query...),
			Using:          &name,
			Filter:         &qdrant.Filter{Must: must},
			Limit:          qdrant.PtrOf(uint64(req.K)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search space %s: %w", space, err)
		}

		for _, result := range results {
			c := chunkFromPayload(result.Id.GetUuid(), result.Payload)
			if named := result.Vectors.GetVectors(); named != nil {
				c.Vector = named.GetVectors()[name].GetData()
			}
			hits = append(hits, ScoredChunk{Chunk: c, Score: float64(result.Score)})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > req.K {
		hits = hits[:req.K]
	}
	return hits, nil
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) Chunk {
	createdAt, err := time.Parse(time.RFC3339Nano, payload["created_at"].GetStringValue())
	if err != nil {
		createdAt = time.Time{}
	}
	return Chunk{
		ID:        id,
		DocID:     payload["doc_id"].GetStringValue(),
		Source:    payload["source"].GetStringValue(),
		Kind:      payload["kind"].GetStringValue(),
		Position:  int(payload["position"].GetIntegerValue()),
		Text:      payload["text"].GetStringValue(),
		CreatedAt: createdAt,
		Space:     payload["space"].GetStringValue(),
	}
}

// scrollAll pages through every point, payload only.
func (s *QdrantStore) scrollAll(ctx context.Context) ([]Chunk, error) {
	var (
		chunks    []Chunk
		offset    *qdrant.PointId
		batchSize = uint32(256)
	)
	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("doc_id", "source", "kind", "position", "created_at", "space"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll chunks: %w", err)
		}
		for _, result := range results {
			chunks = append(chunks, chunkFromPayload(result.Id.GetUuid(), result.Payload))
		}

		// Stop if we got fewer results than batch size (no more pages)
		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}
	return chunks, nil
}

func (s *QdrantStore) Spaces(ctx context.Context) ([]string, error) {
	var spaces []string
	for space := range s.spaces {
		n, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.collection,
			Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("space", space)}},
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count space %s: %w", space, err)
		}
		if n > 0 {
			spaces = append(spaces, space)
		}
	}
	sort.Strings(spaces)
	return spaces, nil
}

// Documents lists documents ordered by creation time.
func (s *QdrantStore) Documents(ctx context.Context) ([]DocumentInfo, error) {
	chunks, err := s.scrollAll(ctx)
	if err != nil {
		return nil, err
	}
	docs := summariseDocuments(chunks)
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return docs, nil
}

func (s *QdrantStore) Stats(ctx context.Context) (*Stats, error) {
	chunks, err := s.scrollAll(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, c := range chunks {
		counts[c.Space]++
	}
	spaces := make([]SpaceInfo, 0, len(counts))
	for space, n := range counts {
		spaces = append(spaces, SpaceInfo{Name: space, Dimension: s.spaces[space], Chunks: n})
	}
	sort.Slice(spaces, func(i, j int) bool { return spaces[i].Name < spaces[j].Name })

	return &Stats{
		Backend:   BackendQdrant,
		Location:  s.collection,
		Documents: len(summariseDocuments(chunks)),
		Chunks:    len(chunks),
		Spaces:    spaces,
	}, nil
}

// Persist is a no-op: upserts wait for Qdrant to apply them.
func (s *QdrantStore) Persist(context.Context) error { return nil }

// Reset deletes the collection and recreates it.
func (s *QdrantStore) Reset(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.ensureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ VectorStore = (*QdrantStore)(nil)
