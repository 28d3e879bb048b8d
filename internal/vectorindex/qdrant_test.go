package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lexforge/lexrag/internal/faults"
)

func TestQdrantIndex_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/statutes/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["with_payload"] != true {
			t.Error("search should request payloads")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.71, "payload": map[string]any{"chunk_id": "c2"}},
				{"score": 0.92, "payload": map[string]any{"chunk_id": "c1"}},
				{"score": 0.71, "payload": map[string]any{"chunk_id": "c0"}},
			},
		})
	}))
	defer srv.Close()

	q := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "statutes"})
	hits, err := q.Query(context.Background(), []float32{1, 0}, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"c1", "c0", "c2"} // 0.92, then 0.71 tie broken by id
	for i, id := range want {
		if hits[i].ChunkID != id {
			t.Errorf("rank %d: got %s, want %s", i, hits[i].ChunkID, id)
		}
	}
}

func TestQdrantIndex_QueryFilters(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	}))
	defer srv.Close()

	q := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "statutes"})
	_, err := q.Query(context.Background(), []float32{1}, 5, map[string]string{"act": "limitation act"})
	if err != nil {
		t.Fatal(err)
	}
	if captured["filter"] == nil {
		t.Error("filters should be forwarded to qdrant")
	}
}

func TestQdrantIndex_unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	srv.Close() // closed server = connection refused

	q := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "statutes"})
	_, err := q.Query(context.Background(), []float32{1}, 5, nil)
	if !errors.Is(err, faults.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if faults.Component(err) != "vector_index" {
		t.Errorf("failure should be attributed to vector_index, got %q", faults.Component(err))
	}
}

func TestQdrantIndex_Upsert(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("upsert should PUT, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
	}))
	defer srv.Close()

	q := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "statutes"})
	err := q.Upsert(context.Background(), "lim-act:s3", []float32{0.1, 0.2}, map[string]string{"act": "limitation act"})
	if err != nil {
		t.Fatal(err)
	}
	points := captured["points"].([]any)
	point := points[0].(map[string]any)
	payload := point["payload"].(map[string]any)
	if payload["chunk_id"] != "lim-act:s3" {
		t.Errorf("payload should carry the chunk id, got %v", payload["chunk_id"])
	}
	if point["id"] == "lim-act:s3" {
		t.Error("point id should be a UUID derived from the chunk id, not the raw id")
	}
}
