package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VECTOR_STORE_PATH", filepath.Join(dir, "vector_store.idx"))
	t.Setenv("METADATA_PATH", filepath.Join(dir, "metadata.json"))
	t.Setenv("VECTOR_BACKEND", "file")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("LOG_LEVEL", "ERROR")
	return dir
}

// run executes the CLI with fresh flag values and returns its stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	ingestSource, askSources, askTopK, askPassages = "", nil, 0, false
	historyType, historyClear, resetYes = "", false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

var docIDPattern = regexp.MustCompile(`doc_id: (\S+)`)

func TestCLI_IngestAskScoped(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "ingest", "text", "Paris is the capital of France.", "--source", "a.txt")
	require.NoError(t, err)
	require.Contains(t, out, "Ingested a.txt")

	out, err = run(t, "Tokyo is the capital of Japan.", "ingest", "text", "--source", "b.txt")
	require.NoError(t, err)
	m := docIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2)
	b := m[1]

	out, err = run(t, "", "ask", "What is the capital of France?", "--source", b)
	require.NoError(t, err)
	assert.Contains(t, out, "Tokyo is the capital of Japan.")
	assert.NotContains(t, out, "Paris")
	assert.Contains(t, out, "Mode: extractive")
	assert.Contains(t, out, "b.txt ("+b+")")

	out, err = run(t, "", "ask", "What", "is", "the", "capital", "of", "France?")
	require.NoError(t, err)
	assert.Contains(t, out, "Paris is the capital of France.")

	out, err = run(t, "", "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, b)

	out, err = run(t, "", "history", "--type", "query")
	require.NoError(t, err)
	assert.Contains(t, out, `"What is the capital of France?" [extractive]`)
	assert.NotContains(t, out, "ingest ")
}

func TestCLI_IngestEmptyText(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "   ", "ingest", "text")
	assert.ErrorContains(t, err, "nothing was ingested")
}

func TestCLI_ResetRequiresConfirmation(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "", "ingest", "text", "Paris is the capital of France.")
	require.NoError(t, err)

	_, err = run(t, "", "reset")
	assert.Error(t, err)

	out, err := run(t, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Index cleared.")

	out, err = run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 0")
	assert.Contains(t, out, "Hosted answers:    disabled")
}

func TestCLI_HistoryRejectsUnknownType(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "", "history", "--type", "bogus")
	assert.Error(t, err)
}
