package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultLocalDimension is the local vector size. Larger than the vocabulary of a
// typical chunk so that hash collisions stay rare.
const DefaultLocalDimension = 512

// Local is a deterministic bag-of-words hashing embedder. It needs no network
// and never fails, so it serves every call the hosted provider cannot.
type Local struct {
	dim int
}

// NewLocal creates a local embedder with the given dimension (DefaultLocalDimension if <= 0).
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = DefaultLocalDimension
	}
	return &Local{dim: dim}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Space() string { return fmt.Sprintf("local/hash-%d", l.dim) }

func (l *Local) Dimension() int { return l.dim }

// Embed hashes each token into a bucket, counts occurrences and L2-normalises.
// Texts without content words map to the zero vector.
func (l *Local) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = l.embedOne(t)
	}
	return out, nil
}

func (l *Local) embedOne(text string) []float32 {
	vec := make([]float32, l.dim)
	for _, w := range Tokenize(text) {
		if stopWords[w] {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(l.dim)] += 1.0
	}

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq > 0 {
		norm := float32(1.0 / math.Sqrt(sumSq))
		for j, v := range vec {
			vec[j] = v * norm
		}
	}
	return vec
}

// Tokenize splits text on anything that is not a letter or number and lower-cases the pieces.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

var stopWords = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "we": true, "our": true, "ours": true, "ourselves": true,
	"you": true, "your": true, "yours": true, "yourself": true, "yourselves": true, "he": true, "him": true,
	"his": true, "himself": true, "she": true, "her": true, "hers": true, "herself": true, "it": true, "its": true,
	"itself": true, "they": true, "them": true, "their": true, "theirs": true, "themselves": true, "what": true,
	"which": true, "who": true, "whom": true, "this": true, "that": true, "these": true, "those": true, "am": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "having": true, "do": true, "does": true, "did": true, "doing": true, "a": true,
	"an": true, "the": true, "and": true, "but": true, "if": true, "or": true, "because": true, "as": true,
	"until": true, "while": true, "of": true, "at": true, "by": true, "for": true, "with": true, "about": true,
	"against": true, "between": true, "into": true, "through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "to": true, "from": true, "up": true, "down": true, "in": true, "out": true,
	"on": true, "off": true, "over": true, "under": true, "again": true, "further": true, "then": true, "once": true,
	"here": true, "there": true, "when": true, "where": true, "why": true, "how": true, "all": true, "any": true,
	"both": true, "each": true, "few": true, "more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "nor": true, "not": true, "only": true, "own": true, "same": true, "so": true, "than": true,
	"too": true, "very": true, "s": true, "t": true, "can": true, "will": true, "just": true, "don": true,
	"should": true, "now": true,
}
