package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/models"
)

const componentName = "generator"

// Client is an OpenAI-compatible chat-completion client. Each call is bounded
// by the configured timeout; exceeding it surfaces as a generation timeout so
// the caller can apply its retry policy.
type Client struct {
	baseURL           string
	apiKey            string
	model             string
	temperature       float64
	timeout           time.Duration
	allowEmptyContext bool
	client            *http.Client
}

// Config configures the chat-completion client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Temperature       float64
	Timeout           time.Duration
	AllowEmptyContext bool
}

// NewClient creates a chat-completion client using the provided configuration.
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
		cfg.Model = "gpt-4o-mini"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL:           cfg.BaseURL,
		apiKey:            key,
		model:             cfg.Model,
		temperature:       cfg.Temperature,
		timeout:           t,
		allowEmptyContext: cfg.AllowEmptyContext,
		client:            &http.Client{},
	}, nil
}

// Model returns the provider model identifier.
func (c *Client) Model() string { return c.model }

// Generate produces an answer for the query grounded in the prompt context.
// An empty context is rejected unless the client was configured to allow
// answering from model knowledge; ungrounded answers carry the disclaimer.
func (c *Client) Generate(ctx context.Context, query string, pc *models.PromptContext) (string, error) {
	empty := pc == nil || pc.Empty()
	if empty && !c.allowEmptyContext {
		return "", faults.Wrapf(componentName, faults.ErrEmptyContext, "no passages to ground the answer")
	}

	system, user := buildMessages(query, pc)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answer, err := c.complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	if empty {
		answer = WithDisclaimer(answer)
	}
	return answer, nil
}

// Ping issues a minimal completion to check provider reachability.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.complete(ctx, "Reply with the single word pong.", "ping")
	return err
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (c *Client) Close() error { return nil }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, _ := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", faults.Wrap(componentName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", faults.Wrapf(componentName, faults.ErrGenerationTimeout, "completion exceeded %s", c.timeout)
		}
		return "", faults.Wrapf(componentName, faults.ErrGenerationProvider, "completion request: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", faults.Wrapf(componentName, faults.ErrGenerationProvider, "completion status %s", resp.Status)
	case resp.StatusCode >= 400:
		return "", faults.Wrapf(componentName, faults.ErrInvalidInput, "completion status %s", resp.Status)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", faults.Wrapf(componentName, faults.ErrGenerationProvider, "decode completion: %v", err)
	}
	if len(out.Choices) == 0 {
		return "", faults.Wrapf(componentName, faults.ErrGenerationProvider, "completion returned no choices")
	}
	answer := strings.TrimSpace(out.Choices[0].Message.Content)
	if answer == "" {
		return "", faults.Wrapf(componentName, faults.ErrGenerationProvider, "completion returned empty answer")
	}
	return answer, nil
}
