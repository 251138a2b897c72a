// Package tokens implements a deterministic, stateless word-count-based
// estimator that serves as the budget currency for context assembly.
// It does not attempt to match any real tokenizer.
package tokens

import "strings"

// Estimate approximates tokens(text) = round(word_count(text) * 1.3).
func Estimate(text string) int {
	words := strings.Fields(text)
	return int(round(float64(len(words)) * 1.3))
}

func round(f float64) float64 {
	if f < 0 {
		return float64(int(f - 0.5))
	}
	return float64(int(f + 0.5))
}
