package models

import "time"

// RetrievedPassage is a per-query candidate resolved from the vector index.
// Ephemeral: created per request and discarded after the response.
type RetrievedPassage struct {
	ChunkID        string  `json:"chunk_id"`
	Text           string  `json:"text"`
	SourceCitation string  `json:"source_citation"`
	Score          float64 `json:"similarity_score"` // normalized 0-1
	KeywordScore   float64 `json:"keyword_score,omitempty"`
	Rank           int     `json:"rank"`
}

// PromptContext is the ordered passage selection handed to the generator,
// together with its token budget accounting. Invariant: TokensUsed never
// exceeds TokenBudget.
type PromptContext struct {
	Passages    []RetrievedPassage `json:"passages"`
	TokenBudget int                `json:"token_budget"`
	TokensUsed  int                `json:"tokens_used"`
	// Truncated notes which passage, if any, was cut to fit the budget.
	Truncated string `json:"truncated,omitempty"`
}

// Empty reports whether the context carries no passages.
func (p *PromptContext) Empty() bool { return len(p.Passages) == 0 }

// AnswerResult is the outcome of one ask request. Degraded marks answers
// produced under a fallback policy (extractive excerpt, model-knowledge-only,
// or static fallback) so callers can render a disclosure.
type AnswerResult struct {
	RequestID         string        `json:"request_id"`
	AnswerText        string        `json:"answer_text"`
	CitedChunkIDs     []string      `json:"cited_chunk_ids"`
	RetrievalLatency  time.Duration `json:"retrieval_latency_ms"`
	GenerationLatency time.Duration `json:"generation_latency_ms"`
	Degraded          bool          `json:"degraded"`
	DegradedReason    string        `json:"degraded_reason,omitempty"`
}
