// Package ingest loads statute documents into the document store, vector
// index and keyword index.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lexforge/lexrag/internal/docstore"
	"github.com/lexforge/lexrag/internal/embedding"
	"github.com/lexforge/lexrag/internal/extract"
	"github.com/lexforge/lexrag/internal/keyword"
	"github.com/lexforge/lexrag/internal/vectorindex"
)

// Pipeline runs extract, chunk, embed and index for statute files.
type Pipeline struct {
	extractor *extract.Extractor
	chunker   *Chunker
	embedder  embedding.Embedder
	store     docstore.Store
	index     vectorindex.VectorIndex
	keyword   *keyword.BleveIndex
	log       *zap.Logger
}

// NewPipeline creates an ingestion pipeline. kw may be nil when keyword
// search is disabled.
func NewPipeline(
	extractor *extract.Extractor,
	chunker *Chunker,
	embedder embedding.Embedder,
	store docstore.Store,
	index vectorindex.VectorIndex,
	kw *keyword.BleveIndex,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		index:     index,
		keyword:   kw,
		log:       log,
	}
}

// IngestFile ingests one statute file. The act name is derived from the file
// name. Returns the number of chunks indexed.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (int, error) {
	text, err := p.extractor.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", path, err)
	}
	return p.IngestText(ctx, actName(path), text)
}

// IngestText ingests statute text under the given act name. Existing chunks
// of the same act are deleted from the document store first, and chunk ids
// are deterministic, so re-ingesting an act replaces its content.
func (p *Pipeline) IngestText(ctx context.Context, act, text string) (int, error) {
	chunks := p.chunker.Chunk(act, text)
	if len(chunks) == 0 {
		p.log.Warn("no text extracted, skipping", zap.String("act", act))
		return 0, nil
	}

	if err := p.store.DeleteByAct(ctx, strings.ToLower(act)); err != nil {
		return 0, fmt.Errorf("clear act %q: %w", act, err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	batch, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %q: %w", act, err)
	}
	if batch.AnyTruncated() {
		p.log.Warn("some chunks exceeded the embedding token limit and were truncated",
			zap.String("act", act))
	}

	if err := p.store.PutBatch(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store %q: %w", act, err)
	}
	for i, c := range chunks {
		metadata := map[string]string{"act": c.Act}
		if c.Section != "" {
			metadata["section"] = c.Section
		}
		if err := p.index.Upsert(ctx, c.ID, batch.Vectors[i], metadata); err != nil {
			return 0, fmt.Errorf("index vector %s: %w", c.ID, err)
		}
		if p.keyword != nil {
			if err := p.keyword.Index(ctx, c); err != nil {
				return 0, fmt.Errorf("index keywords %s: %w", c.ID, err)
			}
		}
	}

	p.log.Info("act ingested", zap.String("act", act), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// IngestDir walks root and ingests every file whose extension is in exts
// (lowercase, with leading dot). A file that fails is logged and skipped so
// one bad document does not abort a corpus load. Returns files and chunks
// ingested.
func (p *Pipeline) IngestDir(ctx context.Context, root string, exts []string, recursive bool) (int, int, error) {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	files, chunks := 0, 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		n, err := p.IngestFile(ctx, path)
		if err != nil {
			p.log.Error("ingest failed, skipping file", zap.String("path", path), zap.Error(err))
			return nil
		}
		files++
		chunks += n
		return ctx.Err()
	})
	if err != nil {
		return files, chunks, err
	}
	return files, chunks, nil
}

// actName derives a human-readable act title from a file path:
// "corpus/limitation_act_1963.pdf" becomes "Limitation Act 1963".
func actName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
