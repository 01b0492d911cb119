// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tables recovers structured tabular data from markdown produced by
// the conversion tool. The markup is ad hoc and frequently malformed, so
// parsing is two-stage (block segmentation, then row tokenization) with
// explicit skip-on-failure semantics: a block that does not parse is dropped
// with a warning and never aborts the document.
package tables

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// separatorRE matches the markdown header/body divider line: optional
// pipe/whitespace/colon prefix followed by three or more dashes. Such a line
// carries no data.
var separatorRE = regexp.MustCompile(`^\s*\|?\s*:?-{3,}`)

// Table is a rectangular grid of named columns and ordered rows recovered
// from one pipe-delimited block. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Extractor scans markdown text for pipe-delimited table blocks.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger falls back to the default.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract returns all parseable tables in document order. Extraction is pure
// with respect to its input: the same text always yields the same tables.
func (e *Extractor) Extract(markdown string) []Table {
	var tables []Table
	for i, block := range segmentBlocks(markdown) {
		table, err := parseBlock(block)
		if err != nil {
			e.logger.Warn("skipping unparseable table block", "block", i+1, "error", err)
			continue
		}
		if table != nil {
			tables = append(tables, *table)
		}
	}
	return tables
}

// isTableLine reports whether a line has the pipe-table shape: starts and
// ends with a pipe, trailing whitespace allowed.
func isTableLine(line string) bool {
	trimmed := strings.TrimRight(line, " \t\r")
	return len(trimmed) >= 2 && strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
}

// segmentBlocks splits the document into maximal runs of consecutive
// pipe-table lines.
func segmentBlocks(markdown string) [][]string {
	var blocks [][]string
	var current []string

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, current)
			current = nil
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		if isTableLine(line) {
			current = append(current, line)
		} else {
			flush()
		}
	}
	flush()
	return blocks
}

// splitCells tokenizes one table line into cells. The outer empty fields
// produced by the leading and trailing pipes are discarded; inner cells are
// kept verbatim (trimming happens later so empty-cell detection sees the
// trimmed form).
func splitCells(line string) []string {
	trimmed := strings.TrimRight(line, " \t\r")
	fields := strings.Split(trimmed, "|")
	if len(fields) < 3 {
		return nil
	}
	return fields[1 : len(fields)-1]
}

// parseBlock converts one block into a Table. A nil table with nil error
// means the block was empty after stripping separators. The header heuristic
// repairs the multi-row-header artifact the conversion tool sometimes emits:
// when at least half of the first row's cells are empty, the second row is
// the real header.
func parseBlock(block []string) (*Table, error) {
	var lines []string
	for _, line := range block {
		if separatorRE.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	header := splitCells(lines[0])
	if header == nil {
		return nil, fmt.Errorf("header row has no cells")
	}
	dataStart := 1

	if countEmpty(header)*2 >= len(header) && len(lines) > 1 {
		header = splitCells(lines[1])
		if header == nil {
			return nil, fmt.Errorf("promoted header row has no cells")
		}
		dataStart = 2
	}

	rows := make([][]string, 0, len(lines)-dataStart)
	for _, line := range lines[dataStart:] {
		cells := splitCells(line)
		if len(cells) != len(header) {
			return nil, fmt.Errorf("row has %d cells, header has %d", len(cells), len(header))
		}
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}

	return tidy(header, rows), nil
}

func countEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) == "" {
			n++
		}
	}
	return n
}

// tidy trims column names, drops columns with no value in any row, and names
// any surviving unnamed column col_N so the result always has non-empty
// column names. A table with zero data rows keeps its named columns.
func tidy(header []string, rows [][]string) *Table {
	keep := make([]bool, len(header))
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if len(rows) == 0 {
			keep[i] = header[i] != ""
			continue
		}
		for _, row := range rows {
			if row[i] != "" {
				keep[i] = true
				break
			}
		}
	}

	t := &Table{}
	for i, name := range header {
		if !keep[i] {
			continue
		}
		if name == "" {
			name = fmt.Sprintf("col_%d", i+1)
		}
		t.Columns = append(t.Columns, name)
	}
	for _, row := range rows {
		out := make([]string, 0, len(t.Columns))
		for i, cell := range row {
			if keep[i] {
				out = append(out, cell)
			}
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}
