// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package split breaks a multi-page PDF into single-page PDFs so each page
// can be pushed through the conversion tool independently.
package split

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Pages splits the PDF at inputPath into one file per page under outDir and
// returns the page files in page order. outDir is created if absent.
func Pages(inputPath, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating pages directory %s: %w", outDir, err)
	}

	if err := api.SplitFile(inputPath, outDir, 1, nil); err != nil {
		return nil, fmt.Errorf("splitting %s: %w", inputPath, err)
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	pages, err := collectPages(outDir, stem)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("splitting %s produced no pages", inputPath)
	}
	return pages, nil
}

// collectPages lists <stem>_<n>.pdf files under dir sorted by page number.
// pdfcpu names split output <stem>_<page>.pdf.
func collectPages(dir, stem string) ([]string, error) {
	re, err := regexp.Compile("^" + regexp.QuoteMeta(stem) + `_(\d+)\.pdf$`)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading pages directory %s: %w", dir, err)
	}

	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(dir, entry.Name())})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}
