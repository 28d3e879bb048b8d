// Package server provides the HTTP API over the ask pipeline.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lexforge/lexrag/internal/config"
	"github.com/lexforge/lexrag/internal/docstore"
	"github.com/lexforge/lexrag/internal/health"
	"github.com/lexforge/lexrag/internal/ingest"
	"github.com/lexforge/lexrag/internal/rag"
)

// Server is the HTTP server for the lexrag API.
type Server struct {
	orchestrator *rag.Orchestrator
	ingestor     *ingest.Pipeline
	store        docstore.Store
	health       *health.Aggregator
	config       *config.ServerConfig
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. ingestor may be nil
// to disable the ingest endpoint.
func NewServer(
	orchestrator *rag.Orchestrator,
	ingestor *ingest.Pipeline,
	store docstore.Store,
	healthAgg *health.Aggregator,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		ingestor:     ingestor,
		store:        store,
		health:       healthAgg,
		config:       cfg,
		logger:       logger,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/ingest", s.handleIngest)
	r.Get("/api/v1/chunks/{id}", s.handleGetChunk)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
