package llm

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Gemini completes prompts and embeds text with the Gemini API.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
	maxTokens  int32
}

func NewGemini(ctx context.Context, apiKey, model, embedModel string, maxTokens int64) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, ErrLLMError.MsgErr("unable to create gemini client", err)
	}
	if embedModel == "" {
		embedModel = "text-embedding-004"
	}
	return &Gemini{client: client, model: model, embedModel: embedModel, maxTokens: int32(maxTokens)}, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = g.maxTokens
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("model", g.model).Msg("gemini completion failed")
		return settle(ctx, "", err)
	}
	text := resp.Text()
	if text == "" {
		return InvalidResponse, nil
	}
	return text, nil
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return nil, ErrLLMError.MsgErr("gemini embeddings request failed", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyEmbedding.Msg("gemini returned no embedding")
	}
	return resp.Embeddings[0].Values, nil
}
