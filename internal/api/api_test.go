// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/marker-pipeline/internal/pipeline"
	"github.com/pdiddy/marker-pipeline/internal/store"
	"github.com/pdiddy/marker-pipeline/pkg/types"
)

// fakeConverter writes canned markdown for any input.
type fakeConverter struct {
	fail bool
}

func (f *fakeConverter) Run(ctx context.Context, inputPath, outputDir string) (string, error) {
	if f.fail {
		return "", &failError{}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	md := filepath.Join(outputDir, stem+".md")
	return md, os.WriteFile(md, []byte("| a | b |\n|---|---|\n| 1 | 2 |\n"), 0o644)
}

type failError struct{}

func (*failError) Error() string { return "conversion failed: tool exited with error" }

func newTestServer(t *testing.T, conv pipeline.Converter) (*Server, types.PipelineConfig) {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.DataDir = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger, err := store.Open(cfg.DataDir)
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	pipe := pipeline.New(cfg, conv, logger)
	return NewServer(cfg, pipe, ledger, logger), cfg
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	srv, _ := newTestServer(t, &fakeConverter{})
	router := srv.Router()

	body, ctype := multipartBody(t, "scan.png", "image bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "scan.png", resp.Filename)
	assert.FileExists(t, resp.MarkdownPath)
}

func TestUploadUnsupportedType(t *testing.T) {
	srv, _ := newTestServer(t, &fakeConverter{})
	router := srv.Router()

	body, ctype := multipartBody(t, "notes.docx", "doc bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadConversionFailureRecorded(t *testing.T) {
	srv, _ := newTestServer(t, &fakeConverter{fail: true})
	router := srv.Router()

	body, ctype := multipartBody(t, "scan.png", "image bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	job, err := srv.ledger.Get(context.Background(), "scan")
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, job.Status)
	assert.Contains(t, job.Error, "tool exited with error")
}

func TestFilterTables(t *testing.T) {
	srv, cfg := newTestServer(t, &fakeConverter{})
	router := srv.Router()

	md := filepath.Join(cfg.OutputsPath(), "report", "report.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(md), 0o755))
	require.NoError(t, os.WriteFile(md, []byte("| a | b |\n|---|---|\n| 1 | 2 |\n"), 0o644))

	req := httptest.NewRequest(http.MethodPost, "/filter_tables?document=report&batch_size=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TablesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TableCount)
	require.Len(t, resp.Files, 1)
	assert.FileExists(t, resp.Files[0])
	assert.FileExists(t, filepath.Join(resp.Folder, "manifest.yaml"))
}

func TestFilterTablesStoreInFilters(t *testing.T) {
	srv, cfg := newTestServer(t, &fakeConverter{})
	router := srv.Router()

	md := filepath.Join(cfg.OutputsPath(), "report.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(md), 0o755))
	require.NoError(t, os.WriteFile(md, []byte("| a |\n| 1 |\n"), 0o644))

	req := httptest.NewRequest(http.MethodPost, "/filter_tables?document=report&store_in_filters=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TablesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, filepath.Join(cfg.FiltersPath(), "report"), resp.Folder)
}

func TestFilterTablesMissingDocument(t *testing.T) {
	srv, _ := newTestServer(t, &fakeConverter{})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/filter_tables?document=ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilterTablesNoTables(t *testing.T) {
	srv, cfg := newTestServer(t, &fakeConverter{})
	router := srv.Router()

	md := filepath.Join(cfg.OutputsPath(), "plain.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(md), 0o755))
	require.NoError(t, os.WriteFile(md, []byte("no tables here\n"), 0o644))

	req := httptest.NewRequest(http.MethodPost, "/filter_tables?document=plain", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TablesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.TableCount)
	assert.Empty(t, resp.Files)
}

func TestDownload(t *testing.T) {
	srv, cfg := newTestServer(t, &fakeConverter{})
	router := srv.Router()

	md := filepath.Join(cfg.OutputsPath(), "report", "report.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(md), 0o755))
	require.NoError(t, os.WriteFile(md, []byte("# report"), 0o644))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/download/report/report.md", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "# report", rec.Body.String())
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/download/ghost.md", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("escape attempt", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/download/..%2F..%2Fetc%2Fpasswd", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.NotEqual(t, http.StatusOK, rec.Code)
	})
}

func TestJobs(t *testing.T) {
	srv, _ := newTestServer(t, &fakeConverter{})
	router := srv.Router()

	require.NoError(t, srv.ledger.Record(context.Background(), types.Job{
		Document: "report", InputPath: "report.pdf", Status: types.JobDone, TableCount: -1,
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []types.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "report", jobs[0].Document)
}
