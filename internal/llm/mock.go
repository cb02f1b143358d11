package llm

import (
	"context"
	"strings"
)

// MockProvider is a deterministic Provider for tests and offline runs.
// Generate answers from the canned Responses map (matched by substring) and
// falls back to echoing the prompt; Similarity is keyword overlap.
type MockProvider struct {
	// Responses maps a prompt substring to a canned reply.
	Responses map[string]string
	// Calls records every prompt passed to Generate.
	Calls []string
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Responses: make(map[string]string)}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Generate(_ context.Context, prompt string) (string, error) {
	m.Calls = append(m.Calls, prompt)
	for needle, reply := range m.Responses {
		if strings.Contains(prompt, needle) {
			return reply, nil
		}
	}
	return "mock: " + prompt, nil
}

func (m *MockProvider) Similarity(_ context.Context, a, b string) (float64, error) {
	wordsA := tokenSet(a)
	wordsB := tokenSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0, nil
	}
	overlap := 0
	for w := range wordsA {
		if wordsB[w] {
			overlap++
		}
	}
	denom := len(wordsA)
	if len(wordsB) > denom {
		denom = len(wordsB)
	}
	return float64(overlap) / float64(denom), nil
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[strings.Trim(w, ".,;:!?\"'()")] = true
	}
	return out
}
