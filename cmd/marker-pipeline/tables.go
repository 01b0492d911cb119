// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marker-pipeline/internal/tables"
)

var tablesCmd = &cobra.Command{
	Use:   "tables <document>",
	Short: "Harvest tables from a converted document's markdown",
	Long: `Tables locates the markdown artifact for a previously converted document,
recovers all pipe-delimited tables from it, and exports them as batched CSV
artifacts. Unparseable table blocks are skipped with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: runTables,
}

func init() {
	tablesCmd.Flags().Int("batch-size", 0, "tables per exported artifact (default from config)")
	tablesCmd.Flags().Bool("filters", false, "export under the filters root instead of the document folder")

	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	document := args[0]

	cfg := loadConfig()
	logger := newLogger()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if batchSize <= 0 {
		batchSize = cfg.Tables.BatchSize
	}

	mdPath, err := tables.LocateMarkdown(cfg.OutputsPath(), document)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(mdPath)
	if err != nil {
		return fmt.Errorf("reading markdown %s: %w", mdPath, err)
	}

	extracted := tables.NewExtractor(logger).Extract(string(data))

	destDir := filepath.Join(filepath.Dir(mdPath), "tables_"+document)
	if useFilters, _ := cmd.Flags().GetBool("filters"); useFilters {
		destDir = filepath.Join(cfg.FiltersPath(), document)
	}

	files, err := tables.Export(extracted, destDir, batchSize)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		if err := tables.WriteManifest(destDir, document, files, len(extracted), batchSize); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stdout, "Extracted %d table(s) from %s\n", len(extracted), mdPath)
	for _, f := range files {
		fmt.Fprintf(os.Stdout, "  %s\n", f)
	}
	return nil
}
