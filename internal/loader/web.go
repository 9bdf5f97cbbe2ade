package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
)

// LoadURL downloads a web page and extracts its text. HTML is stripped of
// scripts and styles; PDF and plain-text responses go through the file extractors.
func (l *Loader) LoadURL(ctx context.Context, rawURL string) (Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Document{}, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Document{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := l.http.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, fmt.Errorf("fetch %s: unexpected status %s", u, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes))
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", u, err)
	}

	source := u.String()
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "application/pdf":
		return l.loadBytes(data, source, ".pdf")
	case "text/plain":
		return l.loadBytes(data, source, ".txt")
	case "text/markdown":
		return l.loadBytes(data, source, ".md")
	}

	// Servers often mislabel files; trust the extension for known binary types
	if path.Ext(u.Path) == ".pdf" && bytes.HasPrefix(data, []byte("%PDF")) {
		return l.loadBytes(data, source, ".pdf")
	}

	text, title, err := extractHTML(bytes.NewReader(data))
	if err != nil {
		return Document{}, err
	}
	l.logger.Debug("web page loaded", "url", source, "title", title, "bytes", len(data))
	return finish(Document{Text: text, Source: source, Kind: KindWebpage, Title: title})
}
