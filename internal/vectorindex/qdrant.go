package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lexforge/lexrag/internal/faults"
)

const componentName = "vector_index"

// QdrantIndex is a REST client to Qdrant. Point ids are UUIDv5 hashes of the
// chunk id (Qdrant requires UUID or integer ids); the canonical chunk id
// travels in the payload.
type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	URL        string
	APIKeyEnv  string
	Collection string
	Timeout    time.Duration
}

// NewQdrantIndex creates a Qdrant client. The API key env var may be unset
// for unauthenticated local deployments.
func NewQdrantIndex(cfg QdrantConfig) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantIndex{
		url:        cfg.URL,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection with cosine distance if missing.
// Qdrant returns 200 for an existing collection with the same schema.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return faults.Wrapf(componentName, faults.ErrInvalidInput, "invalid dimension %d", dimensions)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s", q.url, q.collection), body)
}

// Upsert stores the vector for chunkID with its metadata payload.
func (q *QdrantIndex) Upsert(ctx context.Context, chunkID string, vector []float32, metadata map[string]string) error {
	payload := map[string]any{"chunk_id": chunkID}
	for k, v := range metadata {
		payload[k] = v
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":      uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String(),
			"vector":  vector,
			"payload": payload,
		}},
	}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection), body)
}

// Query runs a similarity search and returns hits sorted descending by score
// with deterministic chunk-id tie-break.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, topK int, filters map[string]string) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if len(filters) > 0 {
		must := make([]map[string]any, 0, len(filters))
		for k, v := range filters {
			must = append(must, map[string]any{"key": k, "match": map[string]any{"value": v}})
		}
		req["filter"] = map[string]any{"must": must}
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, ok := r.Payload["chunk_id"].(string)
		if !ok || id == "" {
			continue
		}
		hits = append(hits, Hit{ChunkID: id, Score: r.Score})
	}
	// Qdrant sorts by score but makes no ordering promise for equal scores.
	sortHits(hits)
	return hits, nil
}

// Ping checks connectivity by fetching collection info.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", q.url, q.collection), nil)
	if err != nil {
		return faults.Wrap(componentName, err)
	}
	q.setHeaders(req)
	resp, err := q.client.Do(req)
	if err != nil {
		return faults.Wrapf(componentName, faults.ErrIndexUnavailable, "qdrant ping: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return faults.Wrapf(componentName, faults.ErrIndexUnavailable, "qdrant ping status %s", resp.Status)
	}
	return nil
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (q *QdrantIndex) Close() error { return nil }

func (q *QdrantIndex) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
}

func (q *QdrantIndex) putJSON(ctx context.Context, url string, body any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return faults.Wrap(componentName, err)
	}
	q.setHeaders(req)
	resp, err := q.client.Do(req)
	if err != nil {
		return faults.Wrapf(componentName, faults.ErrIndexUnavailable, "qdrant PUT: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return faults.Wrapf(componentName, faults.ErrIndexUnavailable, "qdrant PUT %s status %s", url, resp.Status)
	}
	return nil
}

func (q *QdrantIndex) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return faults.Wrap(componentName, err)
	}
	q.setHeaders(req)
	resp, err := q.client.Do(req)
	if err != nil {
		return faults.Wrapf(componentName, faults.ErrIndexUnavailable, "qdrant POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return faults.Wrapf(componentName, faults.ErrIndexUnavailable, "qdrant POST %s status %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
