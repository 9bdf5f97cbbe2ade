package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidRef is returned for references that are not "owner/repo[/path]".
var ErrInvalidRef = errors.New("invalid github reference")

// textExtensions are the file types the fetcher lists from directories.
var textExtensions = []string{".md", ".markdown", ".txt", ".rst"}

// Ref points at a file or directory in a repository.
type Ref struct {
	Owner string
	Repo  string
	Path  string // Empty for the repository root
}

// ParseRef parses "owner/repo/path/to/file.md", with an optional "github:" prefix.
func ParseRef(s string) (Ref, error) {
	s = strings.Trim(strings.TrimPrefix(strings.TrimSpace(s), "github:"), "/")
	parts := strings.SplitN(s, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	ref := Ref{Owner: parts[0], Repo: parts[1]}
	if len(parts) == 3 {
		ref.Path = parts[2]
	}
	return ref, nil
}

// String renders the reference as a source descriptor.
func (r Ref) String() string {
	return "github:" + path.Join(r.Owner, r.Repo, r.Path)
}

// FetchedDoc represents a file fetched from GitHub
type FetchedDoc struct {
	Ref     Ref
	Content string // Full file content
	SHA     string // File's Git blob SHA
	URL     string // GitHub HTML URL
}

// Fetcher handles fetching documents from GitHub repositories
type Fetcher struct {
	client *Client
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// List returns every text file under ref. A file reference lists itself.
func (f *Fetcher) List(ctx context.Context, ref Ref) ([]Ref, error) {
	fileContent, dirContents, _, err := f.client.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ref.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", ref, err)
	}
	if fileContent != nil {
		return []Ref{ref}, nil
	}

	var refs []Ref
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}
		child := Ref{Owner: ref.Owner, Repo: ref.Repo, Path: path.Join(ref.Path, *item.Name)}

		switch *item.Type {
		case "file":
			if isTextFile(*item.Name) {
				refs = append(refs, child)
			}
		case "dir":
			sub, err := f.List(ctx, child)
			if err != nil {
				return nil, err
			}
			refs = append(refs, sub...)
		}
	}
	return refs, nil
}

func isTextFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range textExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Fetch fetches the content of a single file.
func (f *Fetcher) Fetch(ctx context.Context, ref Ref) (*FetchedDoc, error) {
	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ref.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", ref, err)
	}
	if fileContent == nil || fileContent.Content == nil {
		return nil, fmt.Errorf("no file content returned for %s", ref)
	}

	// The contents API returns base64 with embedded newlines
	raw := strings.ReplaceAll(*fileContent.Content, "\n", "")
	content, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", ref, err)
	}

	return &FetchedDoc{
		Ref:     ref,
		Content: string(content),
		SHA:     fileContent.GetSHA(),
		URL:     fileContent.GetHTMLURL(),
	}, nil
}
