// Package keyword provides a Bleve index over statute chunks for lexical search.
package keyword

import (
	"context"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/models"
)

const componentName = "keyword_index"

// Result is a single lexical match.
type Result struct {
	ChunkID string
	Score   float64
}

// chunkDoc is the shape Bleve indexes for each chunk.
type chunkDoc struct {
	Text     string `json:"text"`
	Citation string `json:"citation"`
	Act      string `json:"act"`
}

// BleveIndex is a lexical index over statute chunks.
type BleveIndex struct {
	index bleve.Index
}

func chunkMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): statutory terms like
	// "limitation" must match exactly, and English stemming mangles act names.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("citation", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("act", keywordFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	return im
}

// NewBleveIndex creates or opens a Bleve index at path.
// If the path already exists the index is opened and reused, so unchanged
// corpora are not re-indexed. Remove the directory to force a full rebuild
// after a mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, faults.Wrap(componentName, openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, chunkMapping())
	if err != nil {
		return nil, faults.Wrap(componentName, err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemOnlyIndex creates an in-memory index, used in tests and for small corpora.
func NewMemOnlyIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(chunkMapping())
	if err != nil {
		return nil, faults.Wrap(componentName, err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a chunk by its id.
func (b *BleveIndex) Index(ctx context.Context, chunk *models.Chunk) error {
	doc := chunkDoc{Text: chunk.Text, Citation: chunk.SourceCitation, Act: chunk.Act}
	if err := b.index.Index(chunk.ID, doc); err != nil {
		return faults.Wrap(componentName, err)
	}
	return nil
}

// Search runs a match query over text and citation and returns up to limit results
// ordered by Bleve score descending.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, faults.Wrap(componentName, err)
	}
	out := make([]Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Result{ChunkID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a chunk from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	if err := b.index.Delete(id); err != nil {
		return faults.Wrap(componentName, err)
	}
	return nil
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
