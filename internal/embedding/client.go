package embedding

import (
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientConfig describes an OpenAI-compatible endpoint.
type ClientConfig struct {
	APIKey  string
	BaseURL string // Empty means the OpenAI default
	Timeout time.Duration
}

// NewClient creates an OpenAI-compatible client. Retries are disabled: a failing
// hosted call is reported to the caller, which decides whether to fall back.
// Returns ErrProviderUnavailable when no API key is configured.
func NewClient(cfg ClientConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrProviderUnavailable
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	client := openai.NewClient(opts...)
	return &client, nil
}
