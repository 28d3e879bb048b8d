package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/models"
)

const componentName = "embedder"

// Client is an OpenAI-compatible embeddings client. Inputs larger than the
// configured batch size are split transparently; texts over the provider
// token limit are truncated deterministically at a word boundary and flagged
// in the batch result. Transient provider failures are retried exactly once.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxTokens  int
	batchSize  int
	client     *http.Client
}

// Config configures the embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Dimensions int
	MaxTokens  int
	BatchSize  int
	Timeout    time.Duration
}

// NewClient creates an embeddings client using the provided configuration.
// The API key is read from the environment variable named by APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxTokens:  cfg.MaxTokens,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: t},
	}, nil
}

// Model returns the provider model identifier embedded vectors are tagged with.
func (c *Client) Model() string { return c.model }

// Dimensions returns the configured dimensionality of the embedding vectors.
func (c *Client) Dimensions() int { return c.dimensions }

// Embed returns an embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res.Vectors[0], nil
}

// EmbedBatch embeds texts preserving input order and length. Batches of more
// than the provider batch size are split into sequential calls.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	if len(texts) == 0 {
		return &BatchResult{}, nil
	}
	out := &BatchResult{
		Vectors:   make([][]float32, 0, len(texts)),
		Truncated: make([]bool, 0, len(texts)),
	}
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, truncated, err := c.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out.Vectors = append(out.Vectors, vectors...)
		out.Truncated = append(out.Truncated, truncated...)
	}
	return out, nil
}

// Ping issues a one-token embed to check provider reachability.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Embed(ctx, "ping")
	return err
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (c *Client) Close() error { return nil }

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// embedOnce embeds one provider-sized batch, retrying a transient failure
// exactly once.
func (c *Client) embedOnce(ctx context.Context, texts []string) ([][]float32, []bool, error) {
	inputs := make([]string, len(texts))
	truncated := make([]bool, len(texts))
	for i, t := range texts {
		cut := models.TruncateToTokens(t, c.maxTokens)
		inputs[i] = cut
		truncated[i] = cut != t
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		vectors, err := c.post(ctx, inputs)
		if err == nil {
			return vectors, truncated, nil
		}
		if !faults.Transient(err) || ctx.Err() != nil {
			return nil, nil, err
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

func (c *Client) post(ctx context.Context, inputs []string) ([][]float32, error) {
	body, _ := json.Marshal(embedRequest{Input: inputs, Model: c.model})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, faults.Wrap(componentName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, faults.Wrapf(componentName, faults.ErrProviderUnavailable, "embeddings request: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, faults.Wrapf(componentName, faults.ErrProviderUnavailable, "embeddings status %s", resp.Status)
	case resp.StatusCode >= 400:
		return nil, faults.Wrapf(componentName, faults.ErrInvalidInput, "embeddings status %s", resp.Status)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, faults.Wrapf(componentName, faults.ErrProviderUnavailable, "decode embeddings: %v", err)
	}
	if len(out.Data) != len(inputs) {
		return nil, faults.Wrapf(componentName, faults.ErrProviderUnavailable, "embeddings returned %d vectors for %d inputs", len(out.Data), len(inputs))
	}
	// Providers may return data out of order; the index field restores input order.
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, faults.Wrapf(componentName, faults.ErrProviderUnavailable, "empty embedding at index %d", i)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
