// Package chunker splits raw document text into overlapping, bounded segments.
package chunker

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the default maximum segment length in bytes.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the default maximum overlap between consecutive segments.
	DefaultChunkOverlap = 50

	// MinChunkSize fits any UTF-8 encoded rune, so segments never exceed the chunk size.
	MinChunkSize = utf8.UTFMax
)

// separators are tried in order when looking for a split point inside a window.
// Paragraphs first, then lines, then sentence ends, then words.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Segment is a contiguous slice of the input text.
type Segment struct {
	Index int    // Position in the segment sequence (0, 1, 2...)
	Start int    // Byte offset of the first byte in the input
	End   int    // Byte offset one past the last byte in the input
	Text  string // Input[Start:End]
}

// Chunker splits text into segments of at most chunkSize bytes, where each
// segment after the first re-reads up to overlap bytes of its predecessor.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum segment length in bytes. Positive sizes
// below MinChunkSize are raised to it.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = max(size, MinChunkSize)
		}
	}
}

// WithOverlap sets the maximum overlap between consecutive segments.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker. Defaults to DefaultChunkSize and DefaultChunkOverlap.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for forward progress
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// ChunkSize returns the configured maximum segment length.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured maximum overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns all segments of text. Empty or whitespace-only text yields nil.
func (c *Chunker) Split(text string) []Segment {
	var out []Segment
	for seg := range c.Segments(text) {
		out = append(out, seg)
	}
	return out
}

// Segments returns a restartable sequence over the segments of text.
//
// Dropping the first prev.End-seg.Start bytes of every segment after the
// first and concatenating the results reproduces text exactly.
func (c *Chunker) Segments(text string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		start, index := 0, 0
		for start < len(text) {
			end := c.cut(text, start)
			if !yield(Segment{Index: index, Start: start, End: end, Text: text[start:end]}) {
				return
			}
			if end == len(text) {
				return
			}
			start = c.nextStart(text, start, end)
			index++
		}
	}
}

// cut picks the end offset of the segment beginning at start.
func (c *Chunker) cut(text string, start int) int {
	limit := start + c.chunkSize
	if limit >= len(text) {
		return len(text)
	}
	for !utf8.RuneStart(text[limit]) {
		limit--
	}

	// The split must leave the next segment starting after this one.
	minEnd := start + c.overlap + 1
	window := text[start:limit]
	for _, sep := range separators {
		i := strings.LastIndex(window, sep)
		if i < 0 {
			continue
		}
		if end := start + i + len(sep); end >= minEnd {
			return end
		}
	}
	return limit
}

// nextStart returns the start of the segment following [start, end): the
// earliest word start within the last overlap bytes, or end if there is none.
func (c *Chunker) nextStart(text string, start, end int) int {
	from := end - c.overlap
	if from <= start {
		from = start + 1
	}
	for p := from; p < end; p++ {
		if isWordStart(text, p) {
			return p
		}
	}
	return end
}

func isWordStart(text string, p int) bool {
	if p <= 0 || p >= len(text) || !utf8.RuneStart(text[p]) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[p:])
	if unicode.IsSpace(r) {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:p])
	return unicode.IsSpace(prev)
}
