// Package vectorindex provides the vector index client: approximate
// nearest-neighbor query and upsert against a provider, plus an in-memory
// implementation for tests and small corpora.
package vectorindex

import (
	"context"
	"sort"
)

// Hit is a single similarity hit. Score is normalized 0-1.
type Hit struct {
	ChunkID string
	Score   float64
}

// VectorIndex defines vector storage and similarity query. Query results are
// sorted descending by score with ties broken by chunk id ascending, so that
// identical inputs always produce identical orderings.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, filters map[string]string) ([]Hit, error)
	// Upsert stores a vector under chunkID. Ingestion path only; never called
	// at request time.
	Upsert(ctx context.Context, chunkID string, vector []float32, metadata map[string]string) error
	// Ping checks index reachability; used by the health aggregator.
	Ping(ctx context.Context) error
	Close() error
}

// sortHits orders hits descending by score, ties by chunk id ascending.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}
