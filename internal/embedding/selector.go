package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownSpace is returned by EmbedIn when no configured provider produces the requested space.
var ErrUnknownSpace = errors.New("unknown embedding space")

// Result is the outcome of a Selector.Embed call.
type Result struct {
	Vectors  [][]float32
	Space    string // Space of Vectors
	Provider string // Name of the provider that produced Vectors

	// Downgraded is set when the hosted provider was tried and failed, and
	// Failure says why. The local provider then served the call.
	Downgraded bool
	Failure    FailureKind
}

// Selector chooses between a hosted and a local provider on every call.
// Hosted is preferred when configured; a failed hosted call is served by local
// for that call only, and the next call tries hosted again.
type Selector struct {
	hosted Provider
	local  Provider
	logger *slog.Logger
}

// NewSelector creates a selector. hosted may be nil when no credential is configured.
func NewSelector(hosted, local Provider, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	if local == nil {
		local = NewLocal(0)
	}
	return &Selector{hosted: hosted, local: local, logger: logger}
}

// Hosted returns the hosted provider, or nil.
func (s *Selector) Hosted() Provider { return s.hosted }

// Local returns the local provider.
func (s *Selector) Local() Provider { return s.local }

// Embed embeds texts with the preferred provider, downgrading to local on hosted failure.
func (s *Selector) Embed(ctx context.Context, texts []string) Result {
	if s.hosted != nil {
		vectors, err := s.hosted.Embed(ctx, texts)
		if err == nil {
			return Result{Vectors: vectors, Space: s.hosted.Space(), Provider: s.hosted.Name()}
		}

		kind := Failure(err)
		s.logger.Warn("hosted embedding failed, using local embeddings for this call",
			"provider", s.hosted.Name(),
			"failure", string(kind),
			"texts", len(texts),
			"error", err)

		res := s.embedLocal(ctx, texts)
		res.Downgraded = true
		res.Failure = kind
		return res
	}
	return s.embedLocal(ctx, texts)
}

func (s *Selector) embedLocal(ctx context.Context, texts []string) Result {
	// Local never fails
	vectors, _ := s.local.Embed(ctx, texts)
	return Result{Vectors: vectors, Space: s.local.Space(), Provider: s.local.Name()}
}

// EmbedIn embeds texts with the provider that owns space. There is no fallback:
// vectors from another space would not be comparable with the stored ones.
func (s *Selector) EmbedIn(ctx context.Context, space string, texts []string) ([][]float32, error) {
	switch {
	case s.hosted != nil && space == s.hosted.Space():
		return s.hosted.Embed(ctx, texts)
	case space == s.local.Space():
		return s.local.Embed(ctx, texts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpace, space)
	}
}
