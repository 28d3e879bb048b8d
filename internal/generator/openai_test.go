package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/models"
)

const testKeyEnv = "TEST_GEN_KEY"

func newTestClient(t *testing.T, serverURL string, cfg Config) *Client {
	t.Helper()
	t.Setenv(testKeyEnv, "test-key")
	cfg.BaseURL = serverURL
	cfg.APIKeyEnv = testKeyEnv
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func chatServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": answer}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func somePassages() *models.PromptContext {
	return &models.PromptContext{
		Passages: []models.RetrievedPassage{
			{ChunkID: "c1", Text: "three years from cause of action", SourceCitation: "Limitation Act, Section 3", Rank: 1},
		},
		TokenBudget: 100,
		TokensUsed:  10,
	}
}

func TestGenerate(t *testing.T) {
	srv := chatServer(t, "The limitation period is three years [1].")
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	answer, err := c.Generate(context.Background(), "what is the limitation period?", somePassages())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer, "three years") {
		t.Errorf("unexpected answer %q", answer)
	}
	if strings.Contains(answer, "not legal advice") {
		t.Error("grounded answers should not carry the disclaimer")
	}
}

func TestGenerate_emptyContextRejectedByDefault(t *testing.T) {
	srv := chatServer(t, "anything")
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	_, err := c.Generate(context.Background(), "q", &models.PromptContext{})
	if !errors.Is(err, faults.ErrEmptyContext) {
		t.Fatalf("expected ErrEmptyContext, got %v", err)
	}
	if faults.Component(err) != "generator" {
		t.Errorf("failure should be attributed to generator, got %q", faults.Component(err))
	}
}

func TestGenerate_emptyContextAllowedGetsDisclaimer(t *testing.T) {
	srv := chatServer(t, "Limitation periods are generally three years.")
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{AllowEmptyContext: true})
	answer, err := c.Generate(context.Background(), "q", &models.PromptContext{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer, "not legal advice") {
		t.Errorf("ungrounded answer should carry the disclaimer, got %q", answer)
	}
}

func TestGenerate_timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{Timeout: 20 * time.Millisecond})
	_, err := c.Generate(context.Background(), "q", somePassages())
	if !errors.Is(err, faults.ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
}

func TestGenerate_providerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	_, err := c.Generate(context.Background(), "q", somePassages())
	if !errors.Is(err, faults.ErrGenerationProvider) {
		t.Fatalf("expected ErrGenerationProvider, got %v", err)
	}
}

func TestGenerate_emptyAnswerIsProviderError(t *testing.T) {
	srv := chatServer(t, "   ")
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	_, err := c.Generate(context.Background(), "q", somePassages())
	if !errors.Is(err, faults.ErrGenerationProvider) {
		t.Fatalf("expected ErrGenerationProvider for blank answer, got %v", err)
	}
}

func TestNewClient_missingKey(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	if _, err := NewClient(Config{APIKeyEnv: testKeyEnv}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestBuildMessages_numbersPassages(t *testing.T) {
	pc := &models.PromptContext{
		Passages: []models.RetrievedPassage{
			{ChunkID: "c1", Text: "alpha", SourceCitation: "Act A, s.1"},
			{ChunkID: "c2", Text: "beta", SourceCitation: "Act B, s.2"},
		},
	}
	_, user := buildMessages("my question", pc)
	if !strings.Contains(user, "[1] (Act A, s.1)") || !strings.Contains(user, "[2] (Act B, s.2)") {
		t.Errorf("passages should be numbered with citations, got %q", user)
	}
	if !strings.Contains(user, "Question: my question") {
		t.Errorf("query missing from user message: %q", user)
	}
}
