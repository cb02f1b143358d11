package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMUsageAttributes(t *testing.T) {
	tests := []struct {
		name         string
		inputTokens  int
		outputTokens int
	}{
		{"typical usage", 150, 300},
		{"zero tokens", 0, 0},
		{"large request", 128000, 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := LLMUsageAttributes(tt.inputTokens, tt.outputTokens)
			require.Len(t, attrs, 2)

			assert.Equal(t, "gen_ai.usage.input_tokens", string(attrs[0].Key))
			assert.Equal(t, int64(tt.inputTokens), attrs[0].Value.AsInt64())

			assert.Equal(t, "gen_ai.usage.output_tokens", string(attrs[1].Key))
			assert.Equal(t, int64(tt.outputTokens), attrs[1].Value.AsInt64())
		})
	}
}

func TestGenAIAttributeKeys(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		wantName string
	}{
		{"system", string(GenAISystem), "gen_ai.system"},
		{"request model", string(GenAIRequestModel), "gen_ai.request.model"},
		{"usage input tokens", string(GenAIUsageInputTokens), "gen_ai.usage.input_tokens"},
		{"usage output tokens", string(GenAIUsageOutputTokens), "gen_ai.usage.output_tokens"},
		{"response finish reason", string(GenAIResponseFinishReason), "gen_ai.response.finish_reason"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.key)
		})
	}
}
