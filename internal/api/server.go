// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes the pipeline over HTTP: upload a document for
// conversion, harvest tables from a converted document, download artifacts,
// and inspect the job ledger.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/marker-pipeline/internal/pipeline"
	"github.com/pdiddy/marker-pipeline/internal/store"
	"github.com/pdiddy/marker-pipeline/internal/tables"
	"github.com/pdiddy/marker-pipeline/pkg/types"
)

// Server handles the HTTP surface of the pipeline.
type Server struct {
	cfg       types.PipelineConfig
	pipe      *pipeline.Pipeline
	extractor *tables.Extractor
	ledger    *store.Store
	logger    *slog.Logger
}

// NewServer wires the pipeline, extractor and ledger into an HTTP server.
func NewServer(cfg types.PipelineConfig, pipe *pipeline.Pipeline, ledger *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		pipe:      pipe,
		extractor: tables.NewExtractor(logger),
		ledger:    ledger,
		logger:    logger,
	}
}

// Router builds the chi router for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/upload", s.handleUpload)
	r.Post("/filter_tables", s.handleFilterTables)
	r.Get("/download/*", s.handleDownload)
	r.Get("/jobs", s.handleJobs)

	return r
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start).Round(time.Millisecond))
	})
}
