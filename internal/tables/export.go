// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// Manifest describes one export run. It is written next to the artifacts so
// downstream consumers can enumerate them without listing the directory.
type Manifest struct {
	Document   string    `yaml:"document"`
	TableCount int       `yaml:"table_count"`
	BatchSize  int       `yaml:"batch_size"`
	Artifacts  []string  `yaml:"artifacts"`
	ExportedAt time.Time `yaml:"exported_at"`
}

// Export partitions tables into contiguous batches of at most batchSize and
// writes each batch as one CSV artifact named tables_<i>.csv (1-based) under
// destDir, preserving extraction order. Tables within a batch are separated
// by a blank record. batchSize 1 is the legacy one-table-per-file mode.
// An empty input writes nothing and returns no paths.
func Export(tables []Table, destDir string, batchSize int) ([]string, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory %s: %w", destDir, err)
	}
	if len(tables) == 0 {
		return nil, nil
	}

	var paths []string
	for start, idx := 0, 1; start < len(tables); start, idx = start+batchSize, idx+1 {
		end := start + batchSize
		if end > len(tables) {
			end = len(tables)
		}

		path := filepath.Join(destDir, fmt.Sprintf("tables_%d.csv", idx))
		if err := writeBatch(path, tables[start:end]); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeBatch serializes one batch of tables into a single CSV file.
func writeBatch(path string, batch []Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i, table := range batch {
		if i > 0 {
			// Blank record between tables in the same artifact.
			if err := w.Write([]string{""}); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
		}
		if err := w.Write(table.Columns); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		for _, row := range table.Rows {
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// WriteManifest records the export run as manifest.yaml in destDir.
func WriteManifest(destDir, document string, artifacts []string, tableCount, batchSize int) error {
	m := Manifest{
		Document:   document,
		TableCount: tableCount,
		BatchSize:  batchSize,
		Artifacts:  make([]string, 0, len(artifacts)),
		ExportedAt: time.Now().UTC(),
	}
	for _, a := range artifacts {
		m.Artifacts = append(m.Artifacts, filepath.Base(a))
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(destDir, "manifest.yaml"), data, 0o644)
}
