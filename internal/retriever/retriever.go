// Package retriever turns a legal question into ranked, score-filtered passages.
package retriever

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lexforge/lexrag/internal/docstore"
	"github.com/lexforge/lexrag/internal/embedding"
	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/keyword"
	"github.com/lexforge/lexrag/internal/models"
	"github.com/lexforge/lexrag/internal/vectorindex"
)

const componentName = "retriever"

// Options tune retrieval behavior.
type Options struct {
	// TopKFetch is how many candidates to pull from the vector index before
	// filtering; TopKSelect is how many survive into the final ranking.
	TopKFetch  int
	TopKSelect int

	// MinScore drops candidates below this similarity.
	MinScore float64

	// KeywordWeight blends lexical scores into the ranking when > 0.
	KeywordWeight float64
}

// Retriever embeds a query, fetches nearest chunks, resolves their text and
// returns them ranked. An optional keyword index blends lexical relevance
// into the vector score.
type Retriever struct {
	embedder embedding.Embedder
	index    vectorindex.VectorIndex
	store    docstore.Store
	keyword  *keyword.BleveIndex
	opts     Options
	log      *zap.Logger
}

// New creates a Retriever. kw may be nil to disable the lexical blend.
func New(embedder embedding.Embedder, index vectorindex.VectorIndex, store docstore.Store, kw *keyword.BleveIndex, opts Options, log *zap.Logger) *Retriever {
	if opts.TopKFetch <= 0 {
		opts.TopKFetch = 20
	}
	if opts.TopKSelect <= 0 {
		opts.TopKSelect = 5
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		keyword:  kw,
		opts:     opts,
		log:      log,
	}
}

// Retrieve returns up to TopKSelect passages for the query, ordered by
// descending score with chunk id as the deterministic tiebreak. Candidates
// scoring below MinScore are dropped; an empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, q *models.AskQuery) ([]models.RetrievedPassage, error) {
	if err := q.Validate(); err != nil {
		return nil, faults.Wrapf(componentName, faults.ErrInvalidInput, "%v", err)
	}
	text := preprocess(q.Query)

	var (
		hits     []vectorindex.Hit
		kwScores map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector, err := r.embedder.Embed(gctx, text)
		if err != nil {
			if errors.Is(err, faults.ErrInvalidInput) {
				// A provider 400 is a caller problem, not a retrieval outage.
				return err
			}
			return faults.WrapAs(componentName, faults.ErrRetrievalFailed, err)
		}
		hits, err = r.queryIndex(gctx, vector, q.Options.Filters)
		return err
	})
	if r.keyword != nil && r.opts.KeywordWeight > 0 {
		g.Go(func() error {
			results, err := r.keyword.Search(gctx, text, r.opts.TopKFetch)
			if err != nil {
				// Lexical blend is best-effort; vector results alone still answer.
				r.log.Warn("keyword search failed, continuing vector-only", zap.Error(err))
				return nil
			}
			kwScores = normalizeKeywordScores(results)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(kwScores) > 0 {
		w := r.opts.KeywordWeight
		for i, h := range hits {
			hits[i].Score = (1-w)*h.Score + w*kwScores[h.ChunkID]
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	resolved, err := r.store.GetMany(ctx, ids)
	if err != nil {
		return nil, faults.WrapAs(componentName, faults.ErrRetrievalFailed, err)
	}
	if len(resolved.Missing) > 0 {
		// Index and store drifted; skip the orphans rather than fail the query.
		r.log.Warn("index returned chunks missing from store",
			zap.Strings("missing", resolved.Missing))
	}

	byID := make(map[string]*models.Chunk, len(resolved.Chunks))
	for _, c := range resolved.Chunks {
		byID[c.ID] = c
	}

	passages := make([]models.RetrievedPassage, 0, r.opts.TopKSelect)
	limit := r.opts.TopKSelect
	if q.Options.TopK > 0 {
		limit = q.Options.TopK
	}
	for _, h := range hits {
		if h.Score < r.opts.MinScore {
			continue
		}
		chunk, ok := byID[h.ChunkID]
		if !ok {
			continue
		}
		passages = append(passages, models.RetrievedPassage{
			ChunkID:        chunk.ID,
			Text:           chunk.Text,
			SourceCitation: chunk.SourceCitation,
			Score:          h.Score,
			KeywordScore:   kwScores[h.ChunkID],
			Rank:           len(passages) + 1,
		})
		if len(passages) == limit {
			break
		}
	}
	return passages, nil
}

// queryIndex queries the vector index, retrying an unavailable index exactly
// once before giving up. Only the exhausted retry becomes ErrRetrievalFailed;
// non-transient errors (pool exhaustion, invalid input, cancellation) keep
// their own identity so callers can branch on them.
func (r *Retriever) queryIndex(ctx context.Context, vector []float32, filters map[string]string) ([]vectorindex.Hit, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		hits, err := r.index.Query(ctx, vector, r.opts.TopKFetch, filters)
		if err == nil {
			return hits, nil
		}
		if !faults.Transient(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		r.log.Warn("vector index unavailable, retrying once", zap.Error(err))
	}
	return nil, faults.WrapAs(componentName, faults.ErrRetrievalFailed, lastErr)
}

// normalizeKeywordScores scales Bleve scores into [0,1] by the best hit so
// they blend with cosine similarities.
func normalizeKeywordScores(results []keyword.Result) map[string]float64 {
	if len(results) == 0 {
		return nil
	}
	max := results[0].Score
	for _, res := range results {
		if res.Score > max {
			max = res.Score
		}
	}
	if max <= 0 {
		return nil
	}
	out := make(map[string]float64, len(results))
	for _, res := range results {
		out[res.ChunkID] = res.Score / max
	}
	return out
}
