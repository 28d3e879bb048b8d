// Package docstore persists canonical statute chunks keyed by stable id.
// The request path is read-only; writes happen only during ingestion.
package docstore

import (
	"context"

	"github.com/lexforge/lexrag/internal/models"
)

// GetManyResult carries resolved chunks in request order plus the ids that
// were not found. Missing ids are recorded, never silently substituted.
type GetManyResult struct {
	Chunks  []*models.Chunk
	Missing []string
}

// Store defines chunk persistence. Get and GetMany are idempotent and safe
// for concurrent callers.
type Store interface {
	Get(ctx context.Context, id string) (*models.Chunk, error)
	GetMany(ctx context.Context, ids []string) (*GetManyResult, error)

	// Ingestion path
	Put(ctx context.Context, chunk *models.Chunk) error
	PutBatch(ctx context.Context, chunks []*models.Chunk) error
	DeleteByAct(ctx context.Context, act string) error

	Count(ctx context.Context) (int64, error)
	// Ping checks store reachability; used by the health aggregator.
	Ping(ctx context.Context) error
	Close() error
}
