// Package rag answers questions from the vector store, with a hosted chat
// model when one is configured and extractively otherwise.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/history"
	"github.com/bull/docqa/internal/llm"
	"github.com/bull/docqa/internal/storage"
)

// NoRelevantInformation is the answer text when retrieval finds nothing.
const NoRelevantInformation = "No relevant information found in the ingested documents."

const (
	DefaultTopK               = 4
	DefaultExtractiveMaxChars = 800
)

// Mode tells how an answer was produced.
type Mode string

const (
	ModeLLM        Mode = "llm"
	ModeExtractive Mode = "extractive"
	ModeNone       Mode = "none"
)

// Embedder embeds text in a given embedding space.
type Embedder interface {
	EmbedIn(ctx context.Context, space string, texts []string) ([][]float32, error)
}

// Generator writes an answer from retrieved passages.
type Generator interface {
	Answer(ctx context.Context, question, passages string, history []llm.Turn) (string, error)
}

// Recorder receives query events.
type Recorder interface {
	Append(e history.Event) error
}

// Config tunes retrieval and the extractive fallback. Zero values take the defaults.
type Config struct {
	TopK   int
	FetchK int

	// Lambda weighs relevance against diversity in [0, 1]; 0 is pure
	// diversity. Nil or out of range means storage.DefaultMMRLambda.
	Lambda *float64

	ExtractiveMaxChars int
}

// Query is one question.
type Query struct {
	Question string

	// DocIDs restricts retrieval to these documents. Empty means the engine
	// focuses on the single document that best matches the question.
	DocIDs []string

	TopK    int // 0 means Config.TopK
	History []llm.Turn
}

// Citation identifies a document an answer drew from.
type Citation struct {
	DocID  string `json:"doc_id"`
	Source string `json:"source"`
}

func (c Citation) String() string { return fmt.Sprintf("%s (%s)", c.Source, c.DocID) }

// Answer is the engine's reply.
type Answer struct {
	Text      string
	Citations []Citation
	Passages  []storage.ScoredChunk // Relevance order
	Mode      Mode
	Scope     []string // Documents retrieval was restricted to
	Focused   bool     // Scope was chosen by the engine

	// LLMFailure is set when the chat model was tried and the answer fell
	// back to extractive mode.
	LLMFailure embedding.FailureKind
}

// Engine retrieves passages and turns them into answers.
type Engine struct {
	embedder  Embedder
	store     storage.VectorStore
	generator Generator
	history   Recorder
	cfg       Config
	lambda    float64
	logger    *slog.Logger
}

// NewEngine creates an engine. generator and history may be nil; without a
// generator every answer is extractive.
func NewEngine(
	embedder Embedder,
	store storage.VectorStore,
	generator Generator,
	history Recorder,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.FetchK <= 0 {
		cfg.FetchK = storage.DefaultMMRFetchK
	}
	lambda := storage.DefaultMMRLambda
	if cfg.Lambda != nil && *cfg.Lambda >= 0 && *cfg.Lambda <= 1 {
		lambda = *cfg.Lambda
	}
	if cfg.ExtractiveMaxChars <= 0 {
		cfg.ExtractiveMaxChars = DefaultExtractiveMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder:  embedder,
		store:     store,
		generator: generator,
		history:   history,
		cfg:       cfg,
		lambda:    lambda,
		logger:    logger,
	}
}

// Answer answers q. It never fails: retrieval problems produce the
// NoRelevantInformation answer and chat model problems the extractive one.
func (e *Engine) Answer(ctx context.Context, q Query) *Answer {
	start := time.Now()
	ans := e.answer(ctx, q)
	e.logger.Info("Answered query",
		"mode", ans.Mode,
		"passages", len(ans.Passages),
		"citations", len(ans.Citations),
		"focused", ans.Focused,
		"duration", time.Since(start),
	)
	e.record(q.Question, ans)
	return ans
}

func (e *Engine) answer(ctx context.Context, q Query) *Answer {
	ans := &Answer{Text: NoRelevantInformation, Mode: ModeNone, Scope: distinct(q.DocIDs)}
	if strings.TrimSpace(q.Question) == "" {
		return ans
	}

	vectors := e.queryVectors(ctx, q.Question)
	if len(vectors) == 0 {
		return ans
	}

	if len(ans.Scope) == 0 {
		docID, ok := e.focus(ctx, vectors)
		if !ok {
			return ans
		}
		ans.Scope, ans.Focused = []string{docID}, true
	}

	topK := q.TopK
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	passages, err := storage.SearchMMR(ctx, e.store, storage.SearchRequest{
		Vectors: vectors,
		K:       topK,
		DocIDs:  ans.Scope,
	}, max(e.cfg.FetchK, topK), e.lambda)
	if err != nil {
		e.logger.Warn("Search failed", "error", err)
		return ans
	}
	passages = relevant(passages)
	if len(passages) == 0 {
		return ans
	}

	sort.SliceStable(passages, func(i, j int) bool { return passages[i].Score > passages[j].Score })
	ans.Passages = passages
	ans.Citations = citations(passages)

	if e.generator != nil {
		text, err := e.generator.Answer(ctx, q.Question, joinPassages(passages), q.History)
		if err == nil {
			ans.Text, ans.Mode = text, ModeLLM
			return ans
		}
		ans.LLMFailure = embedding.Failure(err)
		e.logger.Warn("Chat model failed, answering extractively",
			"failure", string(ans.LLMFailure),
			"error", err)
	}

	ans.Text = truncateWords(joinPassages(passages), e.cfg.ExtractiveMaxChars)
	ans.Mode = ModeExtractive
	return ans
}

// queryVectors embeds question in every space present in the store. Spaces
// whose provider fails are skipped; their chunks are not searched.
func (e *Engine) queryVectors(ctx context.Context, question string) map[string][]float32 {
	spaces, err := e.store.Spaces(ctx)
	if err != nil {
		e.logger.Warn("Failed to list embedding spaces", "error", err)
		return nil
	}

	vectors := make(map[string][]float32, len(spaces))
	for _, space := range spaces {
		vecs, err := e.embedder.EmbedIn(ctx, space, []string{question})
		if err != nil || len(vecs) != 1 {
			e.logger.Warn("Skipping embedding space for query", "space", space, "error", err)
			continue
		}
		vectors[space] = vecs[0]
	}
	return vectors
}

// focus returns the document owning the chunk most similar to the query.
// A best score of zero or less is no match.
func (e *Engine) focus(ctx context.Context, vectors map[string][]float32) (string, bool) {
	best, err := e.store.Search(ctx, storage.SearchRequest{Vectors: vectors, K: 1})
	if err != nil {
		e.logger.Warn("Search failed", "error", err)
		return "", false
	}
	best = relevant(best)
	if len(best) == 0 {
		return "", false
	}
	return best[0].Chunk.DocID, true
}

// relevant drops hits that share nothing with the query, such as every hit
// of a zero query vector.
func relevant(hits []storage.ScoredChunk) []storage.ScoredChunk {
	out := hits[:0]
	for _, h := range hits {
		if h.Score > 0 {
			out = append(out, h)
		}
	}
	return out
}

func (e *Engine) record(question string, ans *Answer) {
	if e.history == nil {
		return
	}
	cites := make([]string, len(ans.Citations))
	for i, c := range ans.Citations {
		cites[i] = c.String()
	}
	err := e.history.Append(history.Event{
		Type:      history.EventQuery,
		Time:      time.Now().UTC(),
		DocIDs:    ans.Scope,
		Question:  question,
		Citations: cites,
		Mode:      string(ans.Mode),
	})
	if err != nil {
		e.logger.Warn("Failed to record query history", "error", err)
	}
}

// citations lists the distinct documents of passages by first appearance.
func citations(passages []storage.ScoredChunk) []Citation {
	seen := map[string]bool{}
	var out []Citation
	for _, p := range passages {
		if seen[p.Chunk.DocID] {
			continue
		}
		seen[p.Chunk.DocID] = true
		out = append(out, Citation{DocID: p.Chunk.DocID, Source: p.Chunk.Source})
	}
	return out
}

func joinPassages(passages []storage.ScoredChunk) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = strings.TrimSpace(p.Chunk.Text)
	}
	return strings.Join(texts, "\n\n")
}

// truncateWords shortens s to at most limit runes, ellipsis included, cutting
// at the last word boundary. A single word longer than limit is cut mid-word.
func truncateWords(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	cut, n := 0, 0
	for i := range s {
		if n == limit-1 {
			cut = i
			break
		}
		n++
	}

	head := s[:cut]
	next, _ := utf8.DecodeRuneInString(s[cut:])
	if i := strings.LastIndexFunc(head, unicode.IsSpace); i > 0 && !unicode.IsSpace(next) {
		head = head[:i]
	}
	return strings.TrimRightFunc(head, unicode.IsSpace) + "…"
}

func distinct(ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
