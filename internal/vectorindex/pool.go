package vectorindex

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lexforge/lexrag/internal/faults"
)

// Pooled bounds concurrent calls against an index with a weighted semaphore.
// A request that cannot check out a slot within the checkout timeout fails
// with ErrPoolExhausted instead of queueing indefinitely.
type Pooled struct {
	inner   VectorIndex
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewPooled wraps inner with a pool of size slots and the given checkout timeout.
func NewPooled(inner VectorIndex, size int, timeout time.Duration) *Pooled {
	if size <= 0 {
		size = 8
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Pooled{inner: inner, sem: semaphore.NewWeighted(int64(size)), timeout: timeout}
}

func (p *Pooled) acquire(ctx context.Context) (release func(), err error) {
	checkout, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.sem.Acquire(checkout, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, faults.Wrapf(componentName, faults.ErrPoolExhausted, "no free slot after %s", p.timeout)
	}
	return func() { p.sem.Release(1) }, nil
}

// Query checks out a pool slot and delegates.
func (p *Pooled) Query(ctx context.Context, vector []float32, topK int, filters map[string]string) ([]Hit, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.inner.Query(ctx, vector, topK, filters)
}

// Upsert checks out a pool slot and delegates.
func (p *Pooled) Upsert(ctx context.Context, chunkID string, vector []float32, metadata map[string]string) error {
	release, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return p.inner.Upsert(ctx, chunkID, vector, metadata)
}

// Ping bypasses the pool so health checks observe the provider even under load.
func (p *Pooled) Ping(ctx context.Context) error { return p.inner.Ping(ctx) }

// Close closes the wrapped index.
func (p *Pooled) Close() error { return p.inner.Close() }
