// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marker-pipeline/internal/gpu"
	"github.com/pdiddy/marker-pipeline/internal/pipeline"
	"github.com/pdiddy/marker-pipeline/internal/runner"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert documents to markdown through the gated runner",
	Long: `Convert pushes each file through the external conversion tool. PDFs are
split into pages and merged after conversion; images convert directly. Every
job waits for the GPU gate before launching.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().Bool("keep-pages", false, "keep split PDF page files after conversion")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more input files (.pdf or image)")
	}

	cfg := loadConfig()
	logger := newLogger()

	gate := gpu.NewGate(gpu.NewOracle(logger), cfg.Gate, logger)
	conv := runner.New(cfg.Runner, gate, logger)
	pipe := pipeline.New(cfg, conv, logger)
	pipe.KeepPages, _ = cmd.Flags().GetBool("keep-pages")

	failed := 0
	for _, input := range args {
		md, err := pipe.Process(context.Background(), input)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed:    %s (%v)\n", input, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "converted: %s -> %s\n", input, md)
	}

	fmt.Fprintf(os.Stdout, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		len(args)-failed, failed, len(args))
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed conversion", failed)
	}
	return nil
}
