package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.DefaultTopK)
	assert.Equal(t, 20, cfg.MMRFetchK)
	assert.InDelta(t, 0.5, cfg.MMRLambda, 1e-9)
	assert.Equal(t, "data/vector_store.idx", cfg.VectorStorePath)
	assert.Equal(t, "data/metadata.json", cfg.MetadataPath)
	assert.Equal(t, 30*time.Second, cfg.HostedTimeout)
	assert.Equal(t, config.BackendFile, cfg.VectorBackend)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "200")
	t.Setenv("CHUNK_OVERLAP", "20")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("HOSTED_TIMEOUT", "5s")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.ChunkSize)
	assert.Equal(t, 20, cfg.ChunkOverlap)
	assert.True(t, cfg.HostedLLM())
	assert.False(t, cfg.HostedEmbeddings())
	assert.Equal(t, 5*time.Second, cfg.HostedTimeout)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("METADATA_PATH=from-file.json\n"), 0o644))
	defer os.Unsetenv("METADATA_PATH")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file.json", cfg.MetadataPath)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"overlap not below size", "CHUNK_OVERLAP", "500"},
		{"zero top k", "DEFAULT_TOP_K", "0"},
		{"lambda out of range", "MMR_LAMBDA", "1.5"},
		{"unknown backend", "VECTOR_BACKEND", "sqlite"},
		{"unparsable int", "CHUNK_SIZE", "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.Load()
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestValidate_Ranges(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.MMRLambda = 0
	assert.NoError(t, cfg.Validate(), "pure diversity is a valid weight")

	cfg.ChunkSize, cfg.ChunkOverlap = 3, 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)

	cfg.ChunkSize = 4
	assert.NoError(t, cfg.Validate())
}
