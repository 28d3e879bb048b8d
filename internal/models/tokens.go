package models

import "strings"

// EstimateTokens estimates the provider token count of text from its
// whitespace word count scaled by 4/3 (roughly 0.75 words per token for
// English legal prose). Deterministic and provider-independent; used for
// context budgeting and pre-truncation, not billing.
func EstimateTokens(text string) int {
	return estimateForWords(len(strings.Fields(text)))
}

func estimateForWords(words int) int {
	if words == 0 {
		return 0
	}
	return (words*4 + 2) / 3
}

// TruncateToTokens returns text cut at the last word boundary whose token
// estimate fits maxTokens. Returns text unchanged when it already fits, and
// empty when not even a single word fits the budget.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if EstimateTokens(text) <= maxTokens {
		return text
	}
	words := strings.Fields(text)
	keep := maxTokens * 3 / 4
	if keep > len(words) {
		keep = len(words)
	}
	for keep > 0 && estimateForWords(keep) > maxTokens {
		keep--
	}
	return strings.Join(words[:keep], " ")
}
