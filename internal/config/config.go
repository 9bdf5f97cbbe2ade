// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrInvalidConfig is returned when a setting is missing or out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	BackendFile   = "file"
	BackendQdrant = "qdrant"
)

type Config struct {
	// Chunking
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"50"`

	// Persistence
	VectorStorePath string `envconfig:"VECTOR_STORE_PATH" default:"data/vector_store.idx"`
	MetadataPath    string `envconfig:"METADATA_PATH" default:"data/metadata.json"`

	// Retrieval
	DefaultTopK        int     `envconfig:"DEFAULT_TOP_K" default:"4"`
	MMRFetchK          int     `envconfig:"MMR_FETCH_K" default:"20"`
	MMRLambda          float64 `envconfig:"MMR_LAMBDA" default:"0.5"`
	ExtractiveMaxChars int     `envconfig:"EXTRACTIVE_MAX_CHARS" default:"800"`

	// Embeddings
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingBatchSize int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"500"`
	LocalEmbeddingDim  int    `envconfig:"LOCAL_EMBEDDING_DIM" default:"512"`

	// Answer generation
	GroqAPIKey string `envconfig:"GROQ_API_KEY"`
	LLMBaseURL string `envconfig:"LLM_BASE_URL" default:"https://api.groq.com/openai/v1"`
	LLMModel   string `envconfig:"LLM_MODEL" default:"llama-3.1-8b-instant"`

	HostedTimeout time.Duration `envconfig:"HOSTED_TIMEOUT" default:"30s"`

	// Vector backend
	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"file"`
	QdrantHost       string `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort       int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"chunks"`

	GitHubToken string `envconfig:"GITHUB_TOKEN"`

	// Server
	LogLevel   string `envconfig:"LOG_LEVEL" default:"INFO"`
	Port       string `envconfig:"PORT" default:"8080"`
	ServerMode bool   `envconfig:"SERVER_MODE" default:"false"`
}

// Load reads .env (if present) and the process environment, then validates the result.
func Load() (*Config, error) {
	// Ignore errors, env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks ranges and required combinations.
func (c *Config) Validate() error {
	if c.ChunkSize < utf8.UTFMax {
		return fmt.Errorf("%w: CHUNK_SIZE must be at least %d", ErrInvalidConfig, utf8.UTFMax)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidConfig)
	}
	if c.DefaultTopK <= 0 {
		return fmt.Errorf("%w: DEFAULT_TOP_K must be positive", ErrInvalidConfig)
	}
	if c.MMRFetchK <= 0 {
		return fmt.Errorf("%w: MMR_FETCH_K must be positive", ErrInvalidConfig)
	}
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("%w: MMR_LAMBDA must be in [0, 1]", ErrInvalidConfig)
	}
	if c.ExtractiveMaxChars <= 0 {
		return fmt.Errorf("%w: EXTRACTIVE_MAX_CHARS must be positive", ErrInvalidConfig)
	}
	if c.LocalEmbeddingDim <= 0 {
		return fmt.Errorf("%w: LOCAL_EMBEDDING_DIM must be positive", ErrInvalidConfig)
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("%w: EMBEDDING_BATCH_SIZE must be positive", ErrInvalidConfig)
	}
	if c.HostedTimeout <= 0 {
		return fmt.Errorf("%w: HOSTED_TIMEOUT must be positive", ErrInvalidConfig)
	}
	switch c.VectorBackend {
	case BackendFile:
		if c.VectorStorePath == "" {
			return fmt.Errorf("%w: VECTOR_STORE_PATH", ErrInvalidConfig)
		}
	case BackendQdrant:
		if c.QdrantHost == "" || c.QdrantCollection == "" {
			return fmt.Errorf("%w: QDRANT_HOST and QDRANT_COLLECTION", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: VECTOR_BACKEND must be %q or %q", ErrInvalidConfig, BackendFile, BackendQdrant)
	}
	return nil
}

// HostedEmbeddings reports whether a hosted embedding credential is configured.
func (c *Config) HostedEmbeddings() bool { return c.OpenAIAPIKey != "" }

// HostedLLM reports whether a hosted LLM credential is configured.
func (c *Config) HostedLLM() bool { return c.GroqAPIKey != "" }
