// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func makeTables(n int) []Table {
	out := make([]Table, n)
	for i := range out {
		out[i] = Table{
			Columns: []string{"id", "value"},
			Rows:    [][]string{{fmt.Sprintf("%d", i), "x"}},
		}
	}
	return out
}

func TestExportBatching(t *testing.T) {
	tests := []struct {
		name      string
		tables    int
		batchSize int
		wantFiles int
	}{
		{"65 tables batch 30 gives 3 files", 65, 30, 3},
		{"exact multiple", 60, 30, 2},
		{"single batch", 5, 30, 1},
		{"legacy one per file", 4, 1, 4},
		{"zero batch size treated as 1", 2, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			paths, err := Export(makeTables(tt.tables), dir, tt.batchSize)
			require.NoError(t, err)
			require.Len(t, paths, tt.wantFiles)

			for i, p := range paths {
				assert.Equal(t, filepath.Join(dir, fmt.Sprintf("tables_%d.csv", i+1)), p)
			}
		})
	}
}

func TestExportBatchSizes(t *testing.T) {
	dir := t.TempDir()
	paths, err := Export(makeTables(65), dir, 30)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	// Each table contributes one header record and one data record. The
	// blank separator lines between tables are skipped by the csv reader.
	wantTables := []int{30, 30, 5}
	for i, p := range paths {
		f, err := os.Open(p)
		require.NoError(t, err)
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		f.Close()
		require.NoError(t, err)

		assert.Len(t, records, wantTables[i]*2, "artifact %d", i+1)
	}
}

func TestExportPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	paths, err := Export(makeTables(3), dir, 2)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	// The last artifact holds the third table.
	require.GreaterOrEqual(t, len(records), 2)
	assert.Equal(t, []string{"2", "x"}, records[1])
}

func TestExportEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dest")
	paths, err := Export(nil, dir, 30)
	require.NoError(t, err)
	assert.Empty(t, paths)

	// The destination is created but contains nothing.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	artifacts := []string{filepath.Join(dir, "tables_1.csv"), filepath.Join(dir, "tables_2.csv")}

	require.NoError(t, WriteManifest(dir, "invoice-2024", artifacts, 42, 30))

	data, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, "invoice-2024", m.Document)
	assert.Equal(t, 42, m.TableCount)
	assert.Equal(t, []string{"tables_1.csv", "tables_2.csv"}, m.Artifacts)
}
