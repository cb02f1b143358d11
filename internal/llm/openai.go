package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace"

	animaotel "github.com/timmeromberg/anima-sub000/internal/otel"
)

var tracer = animaotel.Tracer("anima/llm")

// Default models when the caller does not choose.
const (
	DefaultOpenAIModel          = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel = string(openai.SmallEmbedding3)
)

// OpenAIProvider implements Provider on the OpenAI chat and embeddings APIs.
type OpenAIProvider struct {
	client         *openai.Client
	model          string
	embeddingModel string
}

// NewOpenAIProvider creates an OpenAI provider with the given API key.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w: missing API key", ErrProviderNotAvailable)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client:         openai.NewClient(apiKey),
		model:          model,
		embeddingModel: DefaultOpenAIEmbeddingModel,
	}, nil
}

// NewOpenAIProviderWithBaseURL creates a provider pointed at a custom base
// URL, used by tests to target a mock server. baseURL is scheme+host without
// the /v1 path.
func NewOpenAIProviderWithBaseURL(apiKey, model, baseURL string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(config),
		model:          model,
		embeddingModel: DefaultOpenAIEmbeddingModel,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Generate sends a single-turn chat completion request.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "gen_ai.generate",
		trace.WithAttributes(
			animaotel.GenAISystem.String("openai"),
			animaotel.GenAIRequestModel.String(p.model),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, TimeoutLLMCall)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("openai api call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api call: no choices returned")
	}

	span.SetAttributes(
		animaotel.GenAIUsageInputTokens.Int(resp.Usage.PromptTokens),
		animaotel.GenAIUsageOutputTokens.Int(resp.Usage.CompletionTokens),
		animaotel.GenAIResponseFinishReason.String(string(resp.Choices[0].FinishReason)),
	)
	recordUsageMetrics(ctx, p.Name(), p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

// Similarity embeds both texts and returns their cosine similarity.
func (p *OpenAIProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	ctx, span := tracer.Start(ctx, "gen_ai.similarity",
		trace.WithAttributes(
			animaotel.GenAISystem.String("openai"),
			animaotel.GenAIRequestModel.String(p.embeddingModel),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, TimeoutLLMCall)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: []string{a, b},
	})
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("openai embeddings call: %w", err)
	}
	if len(resp.Data) < 2 {
		return 0, fmt.Errorf("openai embeddings call: expected 2 embeddings, got %d", len(resp.Data))
	}

	va := make([]float64, len(resp.Data[0].Embedding))
	for i, f := range resp.Data[0].Embedding {
		va[i] = float64(f)
	}
	vb := make([]float64, len(resp.Data[1].Embedding))
	for i, f := range resp.Data[1].Embedding {
		vb[i] = float64(f)
	}
	return cosineSimilarity(va, vb), nil
}
