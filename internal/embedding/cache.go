package embedding

import (
	"container/list"
	"context"
	"sync"
)

// cache is an LRU cache for embeddings keyed by text. Query texts repeat
// heavily in a legal Q&A workload, so caching saves provider round-trips.
type cache struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

func newCache(capacity int) *cache {
	return &cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (c *cache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

func (c *cache) set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.entries[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// CachedEmbedder wraps an Embedder with an LRU cache. Cache hits bypass the
// provider entirely; misses are fetched in one batched call.
type CachedEmbedder struct {
	inner Embedder
	cache *cache
}

// NewCachedEmbedder wraps inner with a cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	if capacity <= 0 {
		capacity = 10000
	}
	return &CachedEmbedder{inner: inner, cache: newCache(capacity)}
}

// Embed returns the cached embedding for text or fetches and caches it.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.get(text); ok {
		return v, nil
	}
	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.set(text, v)
	return v, nil
}

// EmbedBatch serves cached texts locally and fetches the rest in one call.
// Truncation flags come from the provider for fetched texts; cached entries
// were stored post-truncation and are reported as not truncated.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	out := &BatchResult{
		Vectors:   make([][]float32, len(texts)),
		Truncated: make([]bool, len(texts)),
	}
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := e.cache.get(t); ok {
			out.Vectors[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := e.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, idx := range missingIdx {
		out.Vectors[idx] = fetched.Vectors[j]
		out.Truncated[idx] = fetched.Truncated[j]
		e.cache.set(texts[idx], fetched.Vectors[j])
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimensionality.
func (e *CachedEmbedder) Dimensions() int { return e.inner.Dimensions() }

// Model returns the wrapped embedder's model identifier.
func (e *CachedEmbedder) Model() string { return e.inner.Model() }

// Ping delegates to the wrapped embedder.
func (e *CachedEmbedder) Ping(ctx context.Context) error { return e.inner.Ping(ctx) }

// Close delegates to the wrapped embedder.
func (e *CachedEmbedder) Close() error { return e.inner.Close() }
