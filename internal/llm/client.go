// Package llm wraps the OpenAI-compatible completion and embedding APIs
// behind small interfaces the rest of the server depends on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/termbase/mcp-server/internal/config"
)

// ErrNotConfigured indicates that no API key was provided for the model client.
var ErrNotConfigured = errors.New("llm api key not configured")

// Rate limiter defaults: bursts of a few requests are fine, sustained
// throughput is capped by the configured requests per minute.
const defaultBurst = 5

// Client generates a free-text completion for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder produces a vector embedding for a single text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// OpenAIClient is the production Client and Embedder backed by an
// OpenAI-compatible API via langchaingo. A single rate limiter covers both
// completion and embedding calls.
type OpenAIClient struct {
	model       *openai.LLM
	embedder    *embeddings.EmbedderImpl
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
}

// NewOpenAIClient creates a client from the resolved LLM settings.
// Returns ErrNotConfigured if the API key is missing.
func NewOpenAIClient(settings config.LLMSettings) (*OpenAIClient, error) {
	if settings.APIKey == "" {
		return nil, ErrNotConfigured
	}

	opts := []openai.Option{
		openai.WithToken(settings.APIKey),
		openai.WithModel(settings.Model),
		openai.WithEmbeddingModel(settings.EmbeddingModel),
	}
	if settings.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(settings.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(model)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	rpm := settings.RequestsPerMinute
	if rpm <= 0 {
		rpm = 50
	}

	return &OpenAIClient{
		model:       model,
		embedder:    embedder,
		temperature: settings.Temperature,
		maxTokens:   settings.MaxTokens,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), defaultBurst),
	}, nil
}

// Generate returns the model completion for prompt, trimmed of surrounding
// whitespace.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	completion, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}

	return strings.TrimSpace(completion), nil
}

// EmbedText returns the embedding vector for text.
func (c *OpenAIClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}

	return vector, nil
}
