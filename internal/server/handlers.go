package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/models"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var query models.AskQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("query", query.Query))
	result, err := s.orchestrator.Ask(r.Context(), &query)
	if err != nil {
		s.logger.Error("ask failed",
			zap.String("component", faults.Component(err)), zap.Error(err))
		s.respondError(w, statusFor(err), publicMessage(err))
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type ingestRequest struct {
	Act  string `json:"act"`
	Text string `json:"text"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		s.respondError(w, http.StatusNotImplemented, "ingestion disabled")
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Act == "" || req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "act and text are required")
		return
	}
	chunks, err := s.ingestor.IngestText(r.Context(), req.Act, req.Text)
	if err != nil {
		s.logger.Error("ingest failed", zap.String("act", req.Act), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"act": req.Act, "chunks": chunks})
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chunk, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "chunk not found")
		return
	}
	s.respondJSON(w, http.StatusOK, chunk)
}

// handleHealth is the lightweight liveness check; it never probes providers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.health.Alive() {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports the full component health plus corpus counts.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := s.health.Report()
	chunks, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		chunks = -1
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"overall":    report.Overall,
		"components": report.Components,
		"chunks":     chunks,
	})
}

// statusFor maps pipeline failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, faults.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, faults.ErrPoolExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, faults.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps provider internals out of responses: caller errors pass
// through, everything else collapses to a generic failure.
func publicMessage(err error) string {
	if errors.Is(err, faults.ErrInvalidInput) {
		return err.Error()
	}
	if errors.Is(err, faults.ErrPoolExhausted) {
		return "service is busy, retry shortly"
	}
	return "unable to answer the question right now"
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
