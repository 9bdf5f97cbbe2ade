package storage

import (
	"context"
	"math"
)

const (
	DefaultMMRFetchK = 20
	DefaultMMRLambda = 0.5
)

// SearchMMR fetches max(fetchK, req.K) candidates and re-ranks them with maximal
// marginal relevance, returning at most req.K hits in selection order.
// Scores stay the plain relevance scores.
func SearchMMR(ctx context.Context, store VectorStore, req SearchRequest, fetchK int, lambda float64) ([]ScoredChunk, error) {
	if req.K <= 0 {
		return nil, nil
	}
	fetch := req
	fetch.K = max(fetchK, req.K)

	candidates, err := store.Search(ctx, fetch)
	if err != nil {
		return nil, err
	}
	return MMR(candidates, req.K, lambda), nil
}

// MMR picks k candidates greedily, each maximising
// lambda*relevance - (1-lambda)*max similarity to the already selected ones.
// Candidates are expected in relevance order; lambda is clamped to [0, 1].
func MMR(candidates []ScoredChunk, k int, lambda float64) []ScoredChunk {
	lambda = min(max(lambda, 0), 1)
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	remaining := make([]ScoredChunk, len(candidates))
	copy(remaining, candidates)
	selected := make([]ScoredChunk, 0, min(k, len(candidates)))

	for len(selected) < k && len(remaining) > 0 {
		best, bestScore := 0, math.Inf(-1)
		for i, c := range remaining {
			var maxSim float64
			for _, s := range selected {
				maxSim = max(maxSim, similarity(c.Chunk, s.Chunk))
			}
			score := lambda*c.Score - (1-lambda)*maxSim
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return selected
}

// similarity is the cosine similarity of two chunks' vectors, 0 across spaces.
func similarity(a, b Chunk) float64 {
	if a.Space != b.Space {
		return 0
	}
	return cosineSimilarity(a.Vector, b.Vector)
}

// cosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
