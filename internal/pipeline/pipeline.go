// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the document flow: persist the upload, split
// PDFs into pages, run each piece through the gated conversion runner, and
// merge the page markdowns into one document artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/marker-pipeline/internal/runner"
	"github.com/pdiddy/marker-pipeline/internal/split"
	"github.com/pdiddy/marker-pipeline/pkg/types"
)

// ErrUnsupportedType reports an upload with an extension the pipeline does
// not accept.
var ErrUnsupportedType = errors.New("unsupported file type")

// Converter runs one gated conversion job. Satisfied by *runner.Runner.
type Converter interface {
	Run(ctx context.Context, inputPath, outputDir string) (string, error)
}

// splitFunc breaks a PDF into per-page files. Swappable for tests.
type splitFunc func(inputPath, outDir string) ([]string, error)

// Pipeline wires uploads, splitting and conversion together.
type Pipeline struct {
	cfg    types.PipelineConfig
	conv   Converter
	split  splitFunc
	logger *slog.Logger

	// KeepPages leaves split page files on disk after a PDF run.
	KeepPages bool
}

// New creates a Pipeline over the given converter.
func New(cfg types.PipelineConfig, conv Converter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, conv: conv, split: split.Pages, logger: logger}
}

// SaveUpload persists an uploaded file into the uploads directory and returns
// the stored path. Disallowed extensions are rejected with
// ErrUnsupportedType before anything is written.
func (p *Pipeline) SaveUpload(r io.Reader, filename string) (string, error) {
	name := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !runner.AllowedExtensions[ext] {
		return "", fmt.Errorf("%q: %w", name, ErrUnsupportedType)
	}

	dir := p.cfg.UploadsPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating uploads directory: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("writing upload %s: %w", path, err)
	}
	return path, f.Close()
}

// Process converts a saved upload and returns the path of the final markdown
// artifact under outputs/<stem>/. Images convert directly; PDFs are split
// into pages, each page converted in sequence (each run independently
// gated), and the page markdowns merged.
func (p *Pipeline) Process(ctx context.Context, savedPath string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(savedPath), filepath.Ext(savedPath))
	outDir := filepath.Join(p.cfg.OutputsPath(), stem)

	if strings.ToLower(filepath.Ext(savedPath)) != ".pdf" {
		p.logger.Info("processing image upload", "input", savedPath)
		return p.conv.Run(ctx, savedPath, outDir)
	}

	p.logger.Info("processing PDF upload", "input", savedPath)
	pagesDir := filepath.Join(p.cfg.PagesPath(), stem)
	pages, err := p.split(savedPath, pagesDir)
	if err != nil {
		return "", fmt.Errorf("splitting %s: %w", savedPath, err)
	}
	if !p.KeepPages {
		defer os.RemoveAll(pagesDir)
	}

	pageMDs := make([]string, 0, len(pages))
	for _, page := range pages {
		md, err := p.conv.Run(ctx, page, outDir)
		if err != nil {
			return "", err
		}
		pageMDs = append(pageMDs, md)
	}

	return mergePages(outDir, stem, pageMDs)
}

// mergePages concatenates per-page markdown files into <outDir>/<stem>.md
// with page markers between them.
func mergePages(outDir, stem string, pageMDs []string) (string, error) {
	var b strings.Builder
	for i, md := range pageMDs {
		data, err := os.ReadFile(md)
		if err != nil {
			return "", fmt.Errorf("reading page markdown %s: %w", md, err)
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "<!-- page %d -->\n\n", i+1)
		b.Write(data)
	}

	merged := filepath.Join(outDir, stem+".md")
	if err := os.WriteFile(merged, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing merged markdown: %w", err)
	}
	return merged, nil
}
