package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// OpenAI completes prompts with the chat completions API and embeds with the
// embeddings API.
type OpenAI struct {
	client     *openai.Client
	model      string
	embedModel string
	maxTokens  int64
}

func NewOpenAI(apiKey, model, embedModel string, maxTokens int64, opts ...option.RequestOption) *OpenAI {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	if embedModel == "" {
		embedModel = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	return &OpenAI{client: &client, model: model, embedModel: embedModel, maxTokens: maxTokens}
}

func (c *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.model),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.maxTokens)
	}
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("model", c.model).Msg("openai completion failed")
		return settle(ctx, "", err)
	}
	if len(completion.Choices) == 0 {
		return InvalidResponse, nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, ErrLLMError.MsgErr("openai embeddings request failed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding.Msg("openai returned no embedding")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
