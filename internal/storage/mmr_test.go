package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMMR_PrefersDiverseResults(t *testing.T) {
	dup1 := ScoredChunk{Chunk: newChunk("d", 0, "dup1", 1, 0, 0), Score: 0.95}
	dup2 := ScoredChunk{Chunk: newChunk("d", 1, "dup2", 1, 0, 0), Score: 0.94}
	other := ScoredChunk{Chunk: newChunk("d", 2, "other", 0, 1, 0), Score: 0.80}

	got := MMR([]ScoredChunk{dup1, dup2, other}, 2, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, "dup1", got[0].Chunk.Text)
	assert.Equal(t, "other", got[1].Chunk.Text)

	// lambda 1 is pure relevance
	got = MMR([]ScoredChunk{dup1, dup2, other}, 2, 1)
	assert.Equal(t, "dup2", got[1].Chunk.Text)
}

func TestMMR_Edges(t *testing.T) {
	c := ScoredChunk{Chunk: newChunk("d", 0, "x", 1, 0, 0), Score: 1}
	assert.Nil(t, MMR(nil, 3, 0.5))
	assert.Nil(t, MMR([]ScoredChunk{c}, 0, 0.5))
	assert.Len(t, MMR([]ScoredChunk{c}, 5, 7), 1)
}

func TestMMR_CrossSpaceSimilarityIsZero(t *testing.T) {
	a := newChunk("d", 0, "a", 1, 0, 0)
	b := newChunk("d", 1, "b", 1, 0, 0)
	b.Space = "other/3"
	assert.Zero(t, similarity(a, b))
	assert.InDelta(t, 1.0, similarity(a, a), 1e-9)
}

func TestSearchMMR_FetchesAtLeastK(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	var chunks []Chunk
	for i := 0; i < 6; i++ {
		chunks = append(chunks, newChunk("d", i, "x", 1, float32(i)/10, 0))
	}
	require.NoError(t, s.Upsert(ctx, chunks))

	req := query(1, 0, 0)
	req.K = 4
	hits, err := SearchMMR(ctx, s, req, 2, 0.5)
	require.NoError(t, err)
	assert.Len(t, hits, 4)

	empty, _ := openTemp(t)
	hits, err = SearchMMR(ctx, empty, req, 20, 0.5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 1}))
}
