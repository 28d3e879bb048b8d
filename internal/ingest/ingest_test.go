package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/lexforge/lexrag/internal/docstore"
	"github.com/lexforge/lexrag/internal/embedding"
	"github.com/lexforge/lexrag/internal/extract"
	"github.com/lexforge/lexrag/internal/keyword"
	"github.com/lexforge/lexrag/internal/vectorindex"
)

func newTestPipeline(t *testing.T) (*Pipeline, docstore.Store, *vectorindex.MemoryIndex, *keyword.BleveIndex) {
	t.Helper()
	store, err := docstore.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	idx, err := vectorindex.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewMemOnlyIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })

	p := NewPipeline(
		extract.NewExtractor(),
		NewChunker(300, 30),
		embedding.NewMockEmbedder(8),
		store,
		idx,
		kw,
		zap.NewNop(),
	)
	return p, store, idx, kw
}

const statuteText = `Section 2. In this Act, agreement means every promise forming consideration.
Section 3. Every suit instituted after the prescribed period shall be dismissed.`

func TestIngestText(t *testing.T) {
	ctx := context.Background()
	p, store, idx, kw := newTestPipeline(t)

	n, err := p.IngestText(ctx, "Limitation Act 1963", statuteText)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 chunks, got %d", n)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("store should hold 2 chunks, got %d", count)
	}
	if idx.Size() != 2 {
		t.Errorf("vector index should hold 2 vectors, got %d", idx.Size())
	}
	docs, err := kw.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if docs != 2 {
		t.Errorf("keyword index should hold 2 chunks, got %d", docs)
	}

	chunk, err := store.Get(ctx, "limitation-act-1963:s3")
	if err != nil {
		t.Fatal(err)
	}
	if chunk.SourceCitation != "Limitation Act 1963, Section 3" {
		t.Errorf("unexpected citation %q", chunk.SourceCitation)
	}
}

func TestIngestText_reingestReplaces(t *testing.T) {
	ctx := context.Background()
	p, store, _, _ := newTestPipeline(t)

	if _, err := p.IngestText(ctx, "Test Act", "Section 1. Old text.\nSection 2. Second."); err != nil {
		t.Fatal(err)
	}
	if _, err := p.IngestText(ctx, "Test Act", "Section 1. New text."); err != nil {
		t.Fatal(err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("re-ingest should replace the act's chunks, got %d", count)
	}
	chunk, err := store.Get(ctx, "test-act:s1")
	if err != nil {
		t.Fatal(err)
	}
	if chunk.Text != "Section 1. New text." {
		t.Errorf("chunk text should be refreshed, got %q", chunk.Text)
	}
}

func TestIngestText_emptyIsNoop(t *testing.T) {
	ctx := context.Background()
	p, store, _, _ := newTestPipeline(t)

	n, err := p.IngestText(ctx, "Empty Act", "   ")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 chunks, got %d", n)
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("nothing should be stored, got %d", count)
	}
}

func TestIngestFile_andDir(t *testing.T) {
	ctx := context.Background()
	p, store, _, _ := newTestPipeline(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "contract_act.txt"), []byte(statuteText), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.dat"), []byte("binary"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, chunks, err := p.IngestDir(ctx, dir, []string{".txt"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if files != 1 || chunks != 2 {
		t.Errorf("expected 1 file / 2 chunks, got %d / %d", files, chunks)
	}

	chunk, err := store.Get(ctx, "contract-act:s2")
	if err != nil {
		t.Fatal(err)
	}
	if chunk.Act != "contract act" {
		t.Errorf("act should derive from file name, got %q", chunk.Act)
	}
}

func TestActName(t *testing.T) {
	if got := actName("/corpus/limitation_act_1963.pdf"); got != "Limitation Act 1963" {
		t.Errorf("got %q", got)
	}
	if got := actName("hindu-marriage-act.txt"); got != "Hindu Marriage Act" {
		t.Errorf("got %q", got)
	}
}
