package loader

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/bull/docqa/internal/github"
)

// ErrGitHubDisabled is returned when no GitHub fetcher is configured.
var ErrGitHubDisabled = errors.New("github loader not configured")

// LoadGitHub loads "owner/repo/path". A directory yields one document per text file.
// Files without extractable text are skipped and logged.
func (l *Loader) LoadGitHub(ctx context.Context, reference string) ([]Document, error) {
	if l.github == nil {
		return nil, ErrGitHubDisabled
	}
	ref, err := github.ParseRef(reference)
	if err != nil {
		return nil, err
	}

	refs, err := l.github.List(ctx, ref)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, r := range refs {
		fetched, err := l.github.Fetch(ctx, r)
		if err != nil {
			return nil, err
		}

		doc, err := l.loadBytes([]byte(fetched.Content), r.String(), path.Ext(r.Path))
		if errors.Is(err, ErrNoExtractableText) {
			l.logger.Warn("skipping file without text", "source", r.String())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r, err)
		}
		doc.Kind = KindGitHub
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoExtractableText, ref)
	}
	return docs, nil
}
