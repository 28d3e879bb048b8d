// Package embedding provides text embedding via an OpenAI-compatible
// provider, with caching and a deterministic mock for tests.
package embedding

import "context"

// BatchResult carries embeddings for one batch call. Vectors preserves the
// order and length of the input texts. Truncated[i] is true when texts[i]
// exceeded the provider token limit and was cut deterministically before
// embedding.
type BatchResult struct {
	Vectors   [][]float32
	Truncated []bool
}

// AnyTruncated reports whether any input text was truncated.
func (r *BatchResult) AnyTruncated() bool {
	for _, t := range r.Truncated {
		if t {
			return true
		}
	}
	return false
}

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) (*BatchResult, error)
	Dimensions() int
	Model() string
	// Ping checks provider reachability; used by the health aggregator.
	Ping(ctx context.Context) error
	Close() error
}
