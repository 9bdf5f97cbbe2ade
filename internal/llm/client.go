// Package llm answers questions from retrieved context with a hosted chat model.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bull/docqa/internal/embedding"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "llama-3.1-8b-instant"

	// DefaultMaxTokens is the maximum context length before truncation (in tokens).
	DefaultMaxTokens = 6000
)

const systemPrompt = `You answer questions about the user's documents.
Use only the context below. If the context does not contain the answer, say that you don't know.
Keep the answer short and factual.

Context:
%s`

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one earlier message of the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Config configures a Client.
type Config struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client produces answers with an OpenAI-compatible chat completion endpoint.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a chat client. client is built with embedding.NewClient against
// the chat endpoint's base URL.
func New(client *openai.Client, cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = embedding.DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Model returns the configured chat model.
func (c *Client) Model() string { return c.model }

// Answer asks the model to answer question from the retrieved passages, after
// the earlier turns. Errors use the provider taxonomy of package embedding.
// An empty completion is an error.
func (c *Client) Answer(ctx context.Context, question, passages string, history []Turn) (string, error) {
	if c.client == nil {
		return "", embedding.ErrProviderUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    c.messages(question, passages, history),
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", embedding.ClassifyAPIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", embedding.ErrProviderError)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: empty completion", embedding.ErrProviderError)
	}
	return answer, nil
}

func (c *Client) messages(question, passages string, history []Turn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	msgs = append(msgs, openai.SystemMessage(fmt.Sprintf(systemPrompt, c.truncateContent(passages))))
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		switch t.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	return append(msgs, openai.UserMessage(question))
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (c *Client) truncateContent(content string) string {
	maxChars := c.maxTokens * 4
	if len(content) <= maxChars {
		return content
	}

	c.logger.Warn("truncating context",
		"from_chars", len(content),
		"to_chars", maxChars,
		"max_tokens", c.maxTokens)

	for maxChars > 0 && !utf8.RuneStart(content[maxChars]) {
		maxChars--
	}
	return content[:maxChars]
}
