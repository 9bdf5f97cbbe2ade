package chunker

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct rebuilds the input by dropping each segment's overlap with its predecessor.
func reconstruct(segs []Segment) string {
	var b strings.Builder
	prevEnd := 0
	for _, s := range segs {
		b.WriteString(s.Text[prevEnd-s.Start:])
		prevEnd = s.End
	}
	return b.String()
}

func TestSplit_SkyAndGrass(t *testing.T) {
	text := "The sky is blue. Grass is green."
	c := New(WithChunkSize(20), WithOverlap(5))

	segs := c.Split(text)
	require.GreaterOrEqual(t, len(segs), 2)

	for i, s := range segs {
		assert.LessOrEqual(t, len(s.Text), 20, "segment %d too long", i)
		assert.Equal(t, i, s.Index)
		if i > 0 {
			overlap := segs[i-1].End - s.Start
			assert.GreaterOrEqual(t, overlap, 0)
			assert.LessOrEqual(t, overlap, 5)
			assert.True(t, strings.HasSuffix(segs[i-1].Text, s.Text[:overlap]))
		}
	}
	assert.Equal(t, "The sky is blue. ", segs[0].Text)
	assert.Equal(t, text, reconstruct(segs))
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	c := New()
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t \n\n  "))
}

func TestSplit_ShortTextIsSingleSegment(t *testing.T) {
	c := New()
	segs := c.Split("Paris is the capital of France.")
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].Start)
	assert.Equal(t, "Paris is the capital of France.", segs[0].Text)
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("alpha ", 10) // 60 bytes
	para2 := strings.Repeat("beta ", 10)
	text := para1 + "\n\n" + para2
	c := New(WithChunkSize(80), WithOverlap(10))

	segs := c.Split(text)
	require.GreaterOrEqual(t, len(segs), 2)
	assert.True(t, strings.HasSuffix(segs[0].Text, "\n\n"), "first segment should end at the paragraph break: %q", segs[0].Text)
	assert.Equal(t, text, reconstruct(segs))
}

func TestSplit_DoesNotBreakWords(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	c := New(WithChunkSize(50), WithOverlap(10))

	segs := c.Split(text)
	for i, s := range segs {
		if s.End < len(text) {
			assert.True(t, strings.HasSuffix(s.Text, " "), "segment %d ends mid-word: %q", i, s.Text)
		}
		if i > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:s.Start])
			assert.Equal(t, ' ', prev, "segment %d starts mid-word: %q", i, s.Text)
		}
	}
	assert.Equal(t, text, reconstruct(segs))
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 130)
	c := New(WithChunkSize(50), WithOverlap(10))

	segs := c.Split(text)
	require.Len(t, segs, 3)
	for _, s := range segs {
		assert.LessOrEqual(t, len(s.Text), 50)
	}
	assert.Equal(t, text, reconstruct(segs))
}

func TestSplit_MultibyteRunesStayWhole(t *testing.T) {
	text := strings.Repeat("日本語のテキスト", 30)
	c := New(WithChunkSize(40), WithOverlap(8))

	segs := c.Split(text)
	for _, s := range segs {
		assert.True(t, utf8.ValidString(s.Text), "invalid utf-8 in %q", s.Text)
		assert.LessOrEqual(t, len(s.Text), 40)
	}
	assert.Equal(t, text, reconstruct(segs))
}

func TestSplit_CoverageAndBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	words := []string{"a", "rag", "vector", "index", "chunk", "é", "über", "\n", "\n\n", ".", "!", "?", "  "}

	for iter := 0; iter < 200; iter++ {
		var b strings.Builder
		n := 1 + rng.IntN(300)
		for i := 0; i < n; i++ {
			b.WriteString(words[rng.IntN(len(words))])
			if rng.IntN(3) > 0 {
				b.WriteByte(' ')
			}
		}
		text := b.String()
		if strings.TrimSpace(text) == "" {
			continue
		}

		size := 8 + rng.IntN(120)
		overlap := rng.IntN(size)
		c := New(WithChunkSize(size), WithOverlap(overlap))

		segs := c.Split(text)
		require.NotEmpty(t, segs)
		require.Equal(t, text, reconstruct(segs), "size=%d overlap=%d", size, overlap)
		for i, s := range segs {
			require.LessOrEqual(t, len(s.Text), size)
			require.Equal(t, text[s.Start:s.End], s.Text)
			if i > 0 {
				require.Greater(t, s.Start, segs[i-1].Start)
				require.LessOrEqual(t, segs[i-1].End-s.Start, c.Overlap())
				require.GreaterOrEqual(t, segs[i-1].End-s.Start, 0)
			}
		}
	}
}

func TestSegments_Restartable(t *testing.T) {
	c := New(WithChunkSize(30), WithOverlap(5))
	seq := c.Segments("one two three four five six seven eight nine ten eleven twelve")

	var first, second []Segment
	for s := range seq {
		first = append(first, s)
	}
	for s := range seq {
		second = append(second, s)
	}
	assert.Equal(t, first, second)
}

func TestNew_ClampsOverlap(t *testing.T) {
	c := New(WithChunkSize(40), WithOverlap(40))
	assert.Equal(t, 10, c.Overlap())

	d := New(WithChunkSize(-1), WithOverlap(-5))
	assert.Equal(t, DefaultChunkSize, d.ChunkSize())
	assert.Equal(t, DefaultChunkOverlap, d.Overlap())
}

func TestSplit_TinyChunkSizeStillBoundsSegments(t *testing.T) {
	c := New(WithChunkSize(1), WithOverlap(0))
	require.Equal(t, MinChunkSize, c.ChunkSize())

	text := "a€😀 b"
	segs := c.Split(text)
	require.NotEmpty(t, segs)
	assert.Equal(t, text, reconstruct(segs))
	for _, s := range segs {
		assert.LessOrEqual(t, len(s.Text), c.ChunkSize())
		assert.True(t, utf8.ValidString(s.Text))
	}
}
