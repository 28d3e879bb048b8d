package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	chunk := &models.Chunk{
		ID:             "lim-act:s3",
		Text:           "three years from cause of action",
		SourceCitation: "Limitation Act, Section 3",
		Act:            "limitation act",
		Section:        "3",
	}
	if err := store.Put(ctx, chunk); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "lim-act:s3")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != chunk.Text || got.SourceCitation != chunk.SourceCitation {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should be set on put")
	}
}

func TestGet_notFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if faults.Component(err) != "document_store" {
		t.Errorf("failure should be attributed to document_store, got %q", faults.Component(err))
	}
}

func TestGetMany_recordsMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, id := range []string{"c1", "c3"} {
		if err := store.Put(ctx, &models.Chunk{ID: id, Text: "t", SourceCitation: "s"}); err != nil {
			t.Fatal(err)
		}
	}

	res, err := store.GetMany(ctx, []string{"c1", "c2", "c3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Chunks) != 2 || res.Chunks[0].ID != "c1" || res.Chunks[1].ID != "c3" {
		t.Errorf("chunks should preserve request order omitting missing, got %+v", res.Chunks)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "c2" {
		t.Errorf("missing ids should be recorded, got %v", res.Missing)
	}
}

func TestPutBatch_andCount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	chunks := []*models.Chunk{
		{ID: "a", Text: "ta", SourceCitation: "sa"},
		{ID: "b", Text: "tb", SourceCitation: "sb"},
	}
	if err := store.PutBatch(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 chunks, got %d", n)
	}
}

func TestDeleteByAct(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_ = store.Put(ctx, &models.Chunk{ID: "a", Text: "t", SourceCitation: "s", Act: "contract act"})
	_ = store.Put(ctx, &models.Chunk{ID: "b", Text: "t", SourceCitation: "s", Act: "limitation act"})
	if err := store.DeleteByAct(ctx, "contract act"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, faults.ErrNotFound) {
		t.Error("chunks of the deleted act should be gone")
	}
	if _, err := store.Get(ctx, "b"); err != nil {
		t.Error("other acts should be untouched")
	}
}

func TestGet_concurrentReaders(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_ = store.Put(ctx, &models.Chunk{ID: "c1", Text: "t", SourceCitation: "s"})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Get(ctx, "c1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent read failed: %v", err)
	}
}
