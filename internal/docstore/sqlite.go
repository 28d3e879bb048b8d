package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/models"
)

const componentName = "document_store"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		source_citation TEXT NOT NULL,
		act TEXT,
		section TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_act ON chunks(act);
	CREATE INDEX IF NOT EXISTS idx_chunks_citation ON chunks(source_citation);
	`
	_, err := db.Exec(schema)
	return err
}

// Put inserts or replaces a chunk. Chunks are immutable once ingested;
// replace only happens when an act is re-ingested.
func (s *SQLiteStore) Put(ctx context.Context, chunk *models.Chunk) error {
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, text, source_citation, act, section, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.Text, chunk.SourceCitation, chunk.Act, chunk.Section, chunk.CreatedAt,
	)
	if err != nil {
		return faults.Wrap(componentName, err)
	}
	return nil
}

// PutBatch inserts chunks in one transaction.
func (s *SQLiteStore) PutBatch(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return faults.Wrap(componentName, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, text, source_citation, act, section, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return faults.Wrap(componentName, err)
	}
	defer stmt.Close()
	now := time.Now()
	for _, chunk := range chunks {
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.Text, chunk.SourceCitation, chunk.Act, chunk.Section, chunk.CreatedAt); err != nil {
			_ = tx.Rollback()
			return faults.Wrap(componentName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return faults.Wrap(componentName, err)
	}
	return nil
}

// Get returns a chunk by id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Chunk, error) {
	var chunk models.Chunk
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, source_citation, act, section, created_at FROM chunks WHERE id = ?`, id,
	).Scan(&chunk.ID, &chunk.Text, &chunk.SourceCitation, &chunk.Act, &chunk.Section, &chunk.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.Wrapf(componentName, faults.ErrNotFound, "chunk %s", id)
	}
	if err != nil {
		return nil, faults.Wrap(componentName, err)
	}
	return &chunk, nil
}

// GetMany resolves ids in order, omitting and recording the ones not found.
func (s *SQLiteStore) GetMany(ctx context.Context, ids []string) (*GetManyResult, error) {
	out := &GetManyResult{Chunks: make([]*models.Chunk, 0, len(ids))}
	for _, id := range ids {
		chunk, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, faults.ErrNotFound) {
				out.Missing = append(out.Missing, id)
				continue
			}
			return nil, err
		}
		out.Chunks = append(out.Chunks, chunk)
	}
	return out, nil
}

// DeleteByAct removes all chunks for an act. Used when an act is re-ingested.
func (s *SQLiteStore) DeleteByAct(ctx context.Context, act string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE act = ?`, act); err != nil {
		return faults.Wrap(componentName, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, faults.Wrap(componentName, err)
	}
	return n, nil
}

// Ping checks database reachability.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return faults.Wrap(componentName, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
