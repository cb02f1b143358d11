package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	animaotel "github.com/timmeromberg/anima-sub000/internal/otel"
)

// DefaultOllamaModel is used when no model is configured.
const DefaultOllamaModel = "llama3.2"

// OllamaProvider implements Provider for local Ollama models.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaProvider creates an Ollama provider pointing at the given base URL.
// If baseURL is empty, defaults to http://localhost:11434.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Generate sends a chat request to the local Ollama instance.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "gen_ai.generate",
		trace.WithAttributes(
			animaotel.GenAISystem.String("ollama"),
			animaotel.GenAIRequestModel.String(p.model),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, TimeoutLLMCall)
	defer cancel()

	var apiResp ollamaChatResponse
	err := p.post(ctx, "/api/chat", ollamaChatRequest{
		Model:    p.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}, &apiResp)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	// Ollama doesn't return token counts; estimate from content length
	inTokens, outTokens := len(prompt)/4, len(apiResp.Message.Content)/4
	span.SetAttributes(animaotel.LLMUsageAttributes(inTokens, outTokens)...)
	recordUsageMetrics(ctx, p.Name(), p.model, inTokens, outTokens)

	return apiResp.Message.Content, nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Similarity embeds both texts via /api/embeddings and compares them.
func (p *OllamaProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	ctx, span := tracer.Start(ctx, "gen_ai.similarity",
		trace.WithAttributes(
			animaotel.GenAISystem.String("ollama"),
			animaotel.GenAIRequestModel.String(p.model),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, TimeoutLLMCall)
	defer cancel()

	va, err := p.embed(ctx, a)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	vb, err := p.embed(ctx, b)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return cosineSimilarity(va, vb), nil
}

func (p *OllamaProvider) embed(ctx context.Context, text string) ([]float64, error) {
	var resp ollamaEmbedResponse
	err := p.post(ctx, "/api/embeddings", ollamaEmbedRequest{Model: p.model, Prompt: text}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

func (p *OllamaProvider) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshalling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama api call: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decoding ollama response: %w", err)
	}
	return nil
}
