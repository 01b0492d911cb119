// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// mdTokenRE matches path-shaped .md tokens in the tool's captured streams.
var mdTokenRE = regexp.MustCompile(`[A-Za-z0-9_:\\/.\- ]+\.md`)

// candidate is one possible location of the tool's output.
type candidate struct {
	path    string
	modTime int64
}

// discoverOutput locates the markdown the conversion tool actually produced
// when it is not at the canonical path. The tool may rename its output, nest
// it one directory deeper, or write relative to its own working directory, so
// the search is deliberately tolerant: glob for the input stem in a ranked
// set of directories, mine the captured streams for .md paths, and pick the
// most recently modified survivor. The search is read-only.
func discoverOutput(stem, outputDir, inputDir, workDir, stdout, stderr string) (string, error) {
	var paths []string

	pattern := stem + "*"
	for _, dir := range []string{outputDir, inputDir, workDir} {
		if dir == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		paths = append(paths, matches...)
	}

	// The streams are the tool's only self-report of where output went.
	for _, tok := range mdTokenRE.FindAllString(stdout+"\n"+stderr, -1) {
		p := strings.TrimSpace(tok)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			paths = append(paths, p)
		}
	}

	candidates := dedupeByAbsPath(paths)
	if len(candidates) == 0 {
		return "", fmt.Errorf("no output candidates for %q", stem)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})

	chosen := candidates[0].path
	info, err := os.Stat(chosen)
	if err != nil {
		return "", fmt.Errorf("stat discovered candidate %s: %w", chosen, err)
	}

	// A directory candidate means the tool created a per-document folder;
	// the markdown lives one level inside.
	if info.IsDir() {
		inner, err := filepath.Glob(filepath.Join(chosen, "*.md"))
		if err != nil || len(inner) == 0 {
			return "", fmt.Errorf("discovered directory %s contains no markdown", chosen)
		}
		sort.Strings(inner)
		return inner[0], nil
	}

	if filepath.Ext(chosen) != ".md" {
		return "", fmt.Errorf("discovered candidate %s is not markdown", chosen)
	}
	return chosen, nil
}

// dedupeByAbsPath collapses duplicate paths by resolved absolute path and
// attaches each survivor's modification time. Paths that vanished between
// globbing and stat rank last.
func dedupeByAbsPath(paths []string) []candidate {
	seen := make(map[string]bool)
	var out []candidate
	for _, p := range paths {
		key := p
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if resolved, err := filepath.EvalSymlinks(key); err == nil {
			key = resolved
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		c := candidate{path: p}
		if info, err := os.Stat(p); err == nil {
			c.modTime = info.ModTime().UnixNano()
		}
		out = append(out, c)
	}
	return out
}
