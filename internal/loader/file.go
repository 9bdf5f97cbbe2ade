package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// LoadFile reads a local file, choosing the extractor by extension:
// .pdf, .md/.markdown, .html/.htm, anything else as UTF-8 text.
func (l *Loader) LoadFile(_ context.Context, path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return l.loadBytes(data, filepath.Base(path), filepath.Ext(path))
}

// loadBytes extracts text from data according to ext.
func (l *Loader) loadBytes(data []byte, source, ext string) (Document, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err := extractPDF(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return Document{}, err
		}
		return finish(Document{Text: text, Source: source, Kind: KindPDF})

	case ".md", ".markdown":
		md, err := l.markdown.Extract(data)
		if err != nil {
			return Document{}, err
		}
		return finish(Document{Text: md.Text, Source: source, Kind: KindMarkdown, Title: md.Title})

	case ".html", ".htm":
		text, title, err := extractHTML(bytes.NewReader(data))
		if err != nil {
			return Document{}, err
		}
		return finish(Document{Text: text, Source: source, Kind: KindWebpage, Title: title})

	default:
		if !utf8.Valid(data) {
			return Document{}, fmt.Errorf("%w: %s is not UTF-8 text", ErrNoExtractableText, source)
		}
		return finish(Document{Text: string(data), Source: source, Kind: KindFile})
	}
}
