package keyword

import (
	"context"
	"testing"

	"github.com/lexforge/lexrag/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewMemOnlyIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndexAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	chunks := []*models.Chunk{
		{ID: "c1", Text: "the period of limitation for a suit is three years", SourceCitation: "Limitation Act, Section 3", Act: "limitation act"},
		{ID: "c2", Text: "an agreement enforceable by law is a contract", SourceCitation: "Contract Act, Section 2", Act: "contract act"},
	}
	for _, c := range chunks {
		if err := idx.Index(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	results, err := idx.Search(ctx, "limitation period", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].ChunkID != "c1" {
		t.Errorf("expected c1 first, got %s", results[0].ChunkID)
	}
	if results[0].Score <= 0 {
		t.Errorf("expected positive score, got %f", results[0].Score)
	}
}

func TestSearch_matchesCitation(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_ = idx.Index(ctx, &models.Chunk{ID: "c1", Text: "whoever commits theft shall be punished", SourceCitation: "Penal Code, Section 379", Act: "penal code"})

	results, err := idx.Search(ctx, "penal code", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "c1" {
		t.Errorf("citation text should be searchable, got %+v", results)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_ = idx.Index(ctx, &models.Chunk{ID: "c1", Text: "three years from cause of action", SourceCitation: "s"})
	if err := idx.Delete(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "cause of action", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("deleted chunk should not match, got %+v", results)
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected empty index, got %d docs", n)
	}
}
