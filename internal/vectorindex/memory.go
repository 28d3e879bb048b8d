package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/lexforge/lexrag/internal/faults"
)

// MemoryIndex is an in-memory vector index using brute-force inner product
// search. Suitable for tests and small statute corpora.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	metadata   []map[string]string
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Upsert stores or replaces the vector for chunkID.
func (m *MemoryIndex) Upsert(ctx context.Context, chunkID string, vector []float32, metadata map[string]string) error {
	if len(vector) != m.dimensions {
		return faults.Wrapf("vector_index", faults.ErrInvalidInput, "vector dimension %d, index expects %d", len(vector), m.dimensions)
	}
	vec := make([]float32, m.dimensions)
	copy(vec, vector)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range m.ids {
		if id == chunkID {
			m.vectors[i] = vec
			m.metadata[i] = metadata
			return nil
		}
	}
	m.ids = append(m.ids, chunkID)
	m.vectors = append(m.vectors, vec)
	m.metadata = append(m.metadata, metadata)
	return nil
}

// Query returns the top-k entries by inner product (cosine similarity for
// normalized vectors), clamped to 0-1, sorted descending with deterministic
// chunk-id tie-break. Filters must all match the entry's metadata.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filters map[string]string) ([]Hit, error) {
	if len(vector) != m.dimensions {
		return nil, faults.Wrapf("vector_index", faults.ErrInvalidInput, "query dimension %d, index expects %d", len(vector), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(m.ids))
	for i, vec := range m.vectors {
		if !matchesFilters(m.metadata[i], filters) {
			continue
		}
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(vector[j] * vec[j])
		}
		hits = append(hits, Hit{ChunkID: m.ids[i], Score: math.Max(0, math.Min(1, dot))})
	}
	sortHits(hits)
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// Ping always succeeds for the in-memory index.
func (m *MemoryIndex) Ping(ctx context.Context) error { return nil }

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error { return nil }

func matchesFilters(metadata, filters map[string]string) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
