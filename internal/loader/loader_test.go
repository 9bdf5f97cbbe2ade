package loader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/github"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\nb\n\nc", Normalize("a\r\nb  \r\n\r\n\r\n\r\nc\r\n"))
	assert.Equal(t, "x\ny", Normalize("x\ry"))
	assert.Empty(t, Normalize(" \n\t\n"))
}

func TestFromText(t *testing.T) {
	doc, err := FromText("  Paris is the capital of France.\r\n", "")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", doc.Text)
	assert.Equal(t, "text", doc.Source)
	assert.Equal(t, KindText, doc.Kind)

	_, err = FromText(" \n ", "notes")
	assert.ErrorIs(t, err, ErrNoExtractableText)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_ByExtension(t *testing.T) {
	l := New()
	ctx := context.Background()

	doc, err := l.LoadFile(ctx, writeFile(t, "guide.md", "# Guide\n\nUse **bold** words."))
	require.NoError(t, err)
	assert.Equal(t, KindMarkdown, doc.Kind)
	assert.Equal(t, "Guide", doc.Title)
	assert.Equal(t, "guide.md", doc.Source)
	assert.Equal(t, "Guide\n\nUse bold words.", doc.Text)

	doc, err = l.LoadFile(ctx, writeFile(t, "page.html",
		`<html><head><title>Page</title><style>p{}</style></head><body><p>Hello</p><script>var x;</script><p>World</p></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, KindWebpage, doc.Kind)
	assert.Equal(t, "Page", doc.Title)
	assert.Equal(t, "Hello\n\nWorld", doc.Text)

	doc, err = l.LoadFile(ctx, writeFile(t, "notes.txt", "line one\r\nline two"))
	require.NoError(t, err)
	assert.Equal(t, KindFile, doc.Kind)
	assert.Equal(t, "line one\nline two", doc.Text)
}

func TestLoadFile_Failures(t *testing.T) {
	l := New()
	ctx := context.Background()

	_, err := l.LoadFile(ctx, writeFile(t, "empty.txt", "   \n"))
	assert.ErrorIs(t, err, ErrNoExtractableText)

	_, err = l.LoadFile(ctx, writeFile(t, "binary.bin", string([]byte{0xff, 0xfe, 0x00, 0x81})))
	assert.ErrorIs(t, err, ErrNoExtractableText)

	_, err = l.LoadFile(ctx, writeFile(t, "broken.pdf", "not a pdf at all"))
	assert.Error(t, err)

	_, err = l.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "docqa")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!doctype html><html><head><title> The   Article </title></head>
<body><noscript>enable js</noscript><h1>Heading</h1><div>First
line</div><ul><li>one</li><li>two</li></ul></body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("just text"))
	})
	mux.HandleFunc("/blank", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><script>only()</script></body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := New()
	ctx := context.Background()

	doc, err := l.LoadURL(ctx, srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, KindWebpage, doc.Kind)
	assert.Equal(t, "The Article", doc.Title)
	assert.Equal(t, srv.URL+"/article", doc.Source)
	assert.Equal(t, "Heading\n\nFirst line\n\none\n\ntwo", doc.Text)
	assert.NotContains(t, doc.Text, "enable js")

	doc, err = l.LoadURL(ctx, srv.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "just text", doc.Text)

	_, err = l.LoadURL(ctx, srv.URL+"/blank")
	assert.ErrorIs(t, err, ErrNoExtractableText)

	_, err = l.LoadURL(ctx, srv.URL+"/missing")
	assert.Error(t, err)

	_, err = l.LoadURL(ctx, "ftp://example.com/file")
	assert.Error(t, err)
}

func TestLoadGitHub(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/contents/docs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"type": "file", "name": "a.md", "path": "docs/a.md"},
			{"type": "file", "name": "empty.txt", "path": "docs/empty.txt"},
		})
	})
	serveFile := func(p, content string) {
		mux.HandleFunc("/repos/o/r/contents/"+p, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type": "file", "name": filepath.Base(p), "path": p, "sha": "x",
				"encoding": "base64", "content": base64.StdEncoding.EncodeToString([]byte(content)),
			})
		})
	}
	serveFile("docs/a.md", "# A\n\nAlpha text.")
	serveFile("docs/empty.txt", "  ")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := github.NewClient("")
	require.NoError(t, err)
	client, err = client.WithBaseURL(srv.URL)
	require.NoError(t, err)

	l := New(WithGitHub(github.NewFetcher(client)))
	docs, err := l.LoadGitHub(context.Background(), "o/r/docs")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "github:o/r/docs/a.md", docs[0].Source)
	assert.Equal(t, KindGitHub, docs[0].Kind)
	assert.Equal(t, "A\n\nAlpha text.", docs[0].Text)

	_, err = New().LoadGitHub(context.Background(), "o/r/docs")
	assert.ErrorIs(t, err, ErrGitHubDisabled)
}
