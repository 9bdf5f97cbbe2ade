// Package loader turns files, web pages, GitHub files and raw text into
// plain-text documents ready for ingestion.
package loader

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bull/docqa/internal/github"
	"github.com/bull/docqa/internal/markdown"
)

// ErrNoExtractableText is returned when a source yields no text after extraction.
var ErrNoExtractableText = errors.New("no extractable text")

// Document kinds.
const (
	KindPDF      = "pdf"
	KindWebpage  = "webpage"
	KindMarkdown = "markdown"
	KindFile     = "file"
	KindGitHub   = "github"
	KindText     = "text"
)

// Document is loaded text with its source descriptor.
type Document struct {
	Text   string
	Source string // Filename, URL, github:owner/repo/path or "text"
	Kind   string
	Title  string
}

const (
	// DefaultHTTPTimeout bounds a web page download.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxDownloadBytes caps web and GitHub downloads.
	MaxDownloadBytes = 20 << 20

	userAgent = "Mozilla/5.0 (compatible; docqa/1.0; +https://github.com/bull/docqa)"
)

// Loader holds the clients the individual loaders need.
type Loader struct {
	markdown *markdown.Extractor
	http     *http.Client
	github   *github.Fetcher
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for web pages.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.http = c }
}

// WithGitHub enables GitHub sources.
func WithGitHub(f *github.Fetcher) Option {
	return func(l *Loader) { l.github = f }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		markdown: markdown.NewExtractor(),
		http:     &http.Client{Timeout: DefaultHTTPTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var (
	multiSpaces   = regexp.MustCompile(`[ \t]+\n`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Normalize converts CRLF and CR line endings to LF, strips trailing spaces
// and collapses runs of blank lines.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiSpaces.ReplaceAllString(text, "\n")
	text = multiNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// finish normalises the document text and rejects empty results.
func finish(doc Document) (Document, error) {
	doc.Text = Normalize(doc.Text)
	if doc.Text == "" {
		return Document{}, ErrNoExtractableText
	}
	return doc, nil
}

// FromText wraps raw text. An empty source defaults to "text".
func FromText(text, source string) (Document, error) {
	if source == "" {
		source = KindText
	}
	return finish(Document{Text: text, Source: source, Kind: KindText})
}
