// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marker-pipeline/internal/api"
	"github.com/pdiddy/marker-pipeline/internal/gpu"
	"github.com/pdiddy/marker-pipeline/internal/pipeline"
	"github.com/pdiddy/marker-pipeline/internal/runner"
	"github.com/pdiddy/marker-pipeline/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for uploads, table harvesting and downloads",
	Long: `Serve exposes the pipeline over HTTP: POST /upload converts a document,
POST /filter_tables harvests tables from a converted document, GET /download
fetches artifacts, and GET /jobs lists the job ledger.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (default from config)")
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	logger := newLogger()

	ledger, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer ledger.Close()

	gate := gpu.NewGate(gpu.NewOracle(logger), cfg.Gate, logger)
	conv := runner.New(cfg.Runner, gate, logger)
	pipe := pipeline.New(cfg, conv, logger)

	srv := api.NewServer(cfg, pipe, ledger, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
