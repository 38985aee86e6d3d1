package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/tansive/francine/internal/common/httpclient"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "gemma3:12b-it-q4_K_M"
	DefaultEmbedModel  = "minilm:latest"
)

// Ollama talks to a local Ollama server over /api/generate and
// /api/embeddings.
type Ollama struct {
	http       *httpclient.HTTPClient
	model      string
	embedModel string
	attempts   uint
	delay      time.Duration
}

// OllamaOptions configures NewOllama. Zero values take the defaults.
type OllamaOptions struct {
	Host       string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

func NewOllama(opts OllamaOptions) *Ollama {
	if opts.Host == "" {
		opts.Host = DefaultOllamaHost
	}
	if opts.Model == "" {
		opts.Model = DefaultOllamaModel
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = DefaultEmbedModel
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Ollama{
		http:       httpclient.NewClient(httpclient.StaticConfig{ServerURL: opts.Host}, httpclient.ClientOptions{Timeout: opts.Timeout}),
		model:      opts.Model,
		embedModel: opts.EmbedModel,
		attempts:   uint(opts.Retries) + 1,
		delay:      opts.RetryDelay,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Complete posts a non-streaming generate request and returns the response
// field.
func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(generateRequest{Model: o.model, Prompt: prompt, Stream: false})
	data, err := o.post(ctx, "/api/generate", body)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("model", o.model).Msg("error communicating with ollama generate api")
		return settle(ctx, "", err)
	}
	response := gjson.GetBytes(data, "response")
	if !gjson.ValidBytes(data) || !response.Exists() {
		log.Ctx(ctx).Error().Str("model", o.model).Msg("ollama response was not valid JSON")
		return InvalidResponse, nil
	}
	return response.String(), nil
}

// Embed returns the embedding vector for text.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(embeddingsRequest{Model: o.embedModel, Prompt: text})
	data, err := o.post(ctx, "/api/embeddings", body)
	if err != nil {
		return nil, ErrLLMError.MsgErr("ollama embeddings request failed", err)
	}
	values := gjson.GetBytes(data, "embedding").Array()
	if len(values) == 0 {
		return nil, ErrEmptyEmbedding.Msg("ollama returned no embedding for model " + o.embedModel)
	}
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v.Float())
	}
	return vec, nil
}

func (o *Ollama) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var data []byte
	err := retry.Do(func() error {
		var err error
		data, err = o.http.PostJSON(ctx, path, body)
		if err == nil {
			return nil
		}
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && !httpErr.Retryable() {
			return retry.Unrecoverable(err)
		}
		return err
	},
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.Delay(o.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	return data, err
}
