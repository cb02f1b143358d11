// Package llm defines the semantic adapter used by the generate and
// similarity builtins and by the semantic text operations.
package llm

import (
	"context"
	"errors"
	"math"
	"time"
)

// TimeoutLLMCall bounds every provider call.
const TimeoutLLMCall = 60 * time.Second

// ErrProviderNotAvailable is returned when a provider cannot be constructed,
// for example when no API key is configured.
var ErrProviderNotAvailable = errors.New("provider not available")

// Provider is the adapter the interpreter speaks to. Generate produces text
// from a prompt; Similarity reports semantic closeness of two texts in
// [0, 1].
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "ollama").
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// cosineSimilarity maps embedding distance into [0, 1]. Orthogonal or
// degenerate vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
