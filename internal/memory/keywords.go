package memory

import "strings"

// keywordSimilarity computes a simple keyword overlap ratio between two texts.
func keywordSimilarity(a, b string) float64 {
	wordsA := extractKeywordSet(a)
	wordsB := extractKeywordSet(b)

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	overlap := 0
	for w := range wordsA {
		if wordsB[w] {
			overlap++
		}
	}

	denominator := len(wordsA)
	if len(wordsB) < denominator {
		denominator = len(wordsB)
	}
	return float64(overlap) / float64(denominator)
}

// extractKeywordSet returns unique non-stopword tokens.
func extractKeywordSet(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}|")
		if len(w) >= 3 && !stopWords[w] {
			words[w] = true
		}
	}
	return words
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "have": true, "this": true, "that": true, "with": true,
	"from": true, "they": true, "been": true, "said": true, "each": true,
	"which": true, "their": true, "will": true, "other": true, "about": true,
	"many": true, "then": true, "them": true, "these": true, "some": true,
	"would": true, "make": true, "like": true, "into": true, "time": true,
}
