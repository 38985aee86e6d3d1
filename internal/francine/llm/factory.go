package llm

import (
	"context"

	"github.com/tansive/francine/internal/francine/config"
)

// Backend bundles the configured completion client with its embedder. The
// embedder falls back to Ollama for providers without an embedding API.
type Backend struct {
	Client   Client
	Embedder Embedder
	Provider string
	Model    string
}

// NewFromConfig builds the backend selected by [llm] in the configuration.
func NewFromConfig(ctx context.Context, c config.LLMConfig) (*Backend, error) {
	timeout := config.MustDuration(c.Timeout)
	ollama := NewOllama(OllamaOptions{
		Host:       c.OllamaHost,
		Model:      c.Model,
		EmbedModel: c.EmbedModel,
		Timeout:    timeout,
		Retries:    c.MaxRetries,
	})

	b := &Backend{Provider: c.Provider, Model: c.Model}
	switch c.Provider {
	case "", "ollama":
		b.Client, b.Embedder = ollama, ollama
	case "openai":
		if c.APIKey == "" {
			return nil, ErrMissingAPIKey.Msg("OPENAI_API_KEY is not set")
		}
		client := NewOpenAI(c.APIKey, c.Model, "", c.MaxTokens)
		b.Client, b.Embedder = client, client
	case "anthropic":
		if c.APIKey == "" {
			return nil, ErrMissingAPIKey.Msg("ANTHROPIC_API_KEY is not set")
		}
		b.Client = NewAnthropic(c.APIKey, c.Model, c.MaxTokens)
		b.Embedder = NewOllama(OllamaOptions{Host: c.OllamaHost, EmbedModel: c.EmbedModel, Timeout: timeout, Retries: c.MaxRetries})
	case "gemini":
		if c.APIKey == "" {
			return nil, ErrMissingAPIKey.Msg("GEMINI_API_KEY is not set")
		}
		client, err := NewGemini(ctx, c.APIKey, c.Model, "", c.MaxTokens)
		if err != nil {
			return nil, err
		}
		b.Client, b.Embedder = client, client
	default:
		return nil, ErrUnknownProvider.Msg("unknown llm provider: " + c.Provider)
	}
	return b, nil
}
