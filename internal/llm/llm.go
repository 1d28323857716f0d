// Package llm wraps the external text-generation and embedding
// collaborators. Callers build prompts with the helpers in prompts.go
// and treat every returned error as retryable.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Client generates natural-language text for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder converts text to vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Options selects and configures a provider.
type Options struct {
	Provider       string
	APIKey         string
	SummaryModel   string
	EmbeddingModel string
	BaseURL        string
	Dimension      int
}

// NewClient creates the summarization client for the configured
// provider.
func NewClient(ctx context.Context, opts Options) (Client, error) {
	switch provider(opts.Provider) {
	case "gemini":
		return NewGeminiClient(ctx, opts.APIKey, opts.SummaryModel)
	case "openai":
		return NewOpenAIClient(opts.APIKey, opts.SummaryModel, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", opts.Provider)
	}
}

// NewEmbedder creates the embedding client for the configured provider.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	switch provider(opts.Provider) {
	case "gemini":
		return NewGeminiEmbedder(ctx, opts.APIKey, opts.EmbeddingModel, opts.Dimension)
	case "openai":
		return NewOpenAIEmbedder(opts.APIKey, opts.EmbeddingModel, opts.Dimension, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", opts.Provider)
	}
}

func provider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "gemini"
	}
	return p
}
