// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/marker-pipeline/internal/pipeline"
	"github.com/pdiddy/marker-pipeline/internal/tables"
	"github.com/pdiddy/marker-pipeline/pkg/types"
)

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Status            string  `json:"status"`
	Filename          string  `json:"filename"`
	MarkdownPath      string  `json:"markdown_path"`
	ProcessingSeconds float64 `json:"processing_time_seconds"`
}

// TablesResponse is returned by POST /filter_tables.
type TablesResponse struct {
	Status       string   `json:"status"`
	Document     string   `json:"document"`
	MarkdownPath string   `json:"markdown_path"`
	TableCount   int      `json:"tables_count"`
	Folder       string   `json:"folder"`
	Files        []string `json:"files"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" required")
		return
	}
	defer file.Close()

	start := time.Now()

	savedPath, err := s.pipe.SaveUpload(file, header.Filename)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info("saved upload", "path", savedPath)

	mdPath, err := s.pipe.Process(r.Context(), savedPath)
	elapsed := time.Since(start)

	document := strings.TrimSuffix(filepath.Base(savedPath), filepath.Ext(savedPath))
	job := types.Job{
		Document:   document,
		InputPath:  savedPath,
		Duration:   elapsed,
		TableCount: -1,
	}
	if err != nil {
		job.Status = types.JobFailed
		job.Error = err.Error()
	} else {
		job.Status = types.JobDone
		job.MarkdownPath = mdPath
	}
	if lerr := s.ledger.Record(r.Context(), job); lerr != nil {
		s.logger.Error("recording job failed", "error", lerr)
	}

	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Status:            "success",
		Filename:          filepath.Base(savedPath),
		MarkdownPath:      mdPath,
		ProcessingSeconds: roundSeconds(elapsed),
	})
}

func (s *Server) handleFilterTables(w http.ResponseWriter, r *http.Request) {
	document := r.URL.Query().Get("document")
	if document == "" {
		writeError(w, http.StatusBadRequest, "query parameter \"document\" required")
		return
	}

	batchSize := s.cfg.Tables.BatchSize
	if v := r.URL.Query().Get("batch_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "batch_size must be a positive integer")
			return
		}
		batchSize = n
	}
	storeInFilters := r.URL.Query().Get("store_in_filters") == "true"

	mdPath, err := tables.LocateMarkdown(s.cfg.OutputsPath(), document)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	data, err := os.ReadFile(mdPath)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	extracted := s.extractor.Extract(string(data))

	destDir := filepath.Join(filepath.Dir(mdPath), "tables_"+document)
	if storeInFilters {
		destDir = filepath.Join(s.cfg.FiltersPath(), document)
	}

	files, err := tables.Export(extracted, destDir, batchSize)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if len(files) > 0 {
		if err := tables.WriteManifest(destDir, document, files, len(extracted), batchSize); err != nil {
			s.logger.Error("writing manifest failed", "error", err)
		}
	}

	if err := s.ledger.SetTableCount(r.Context(), document, len(extracted)); err != nil {
		s.logger.Error("updating table count failed", "error", err)
	}

	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, TablesResponse{
		Status:       "success",
		Document:     document,
		MarkdownPath: mdPath,
		TableCount:   len(extracted),
		Folder:       destDir,
		Files:        files,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if rel == "" {
		writeError(w, http.StatusBadRequest, "artifact path required")
		return
	}

	root := s.cfg.OutputsPath()
	path := filepath.Join(root, filepath.FromSlash(rel))

	// Keep requests inside the outputs root.
	absRoot, _ := filepath.Abs(root)
	absPath, _ := filepath.Abs(path)
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		writeError(w, http.StatusBadRequest, "invalid artifact path")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	jobs, err := s.ledger.List(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []types.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// writeFailure maps pipeline errors onto HTTP statuses: bad uploads are the
// caller's fault, missing artifacts are 404, everything else (gate timeout,
// conversion failure) is a server-side 500.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrUnsupportedType):
		status = http.StatusBadRequest
	case errors.Is(err, tables.ErrArtifactNotFound), errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	}
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000.0
}
