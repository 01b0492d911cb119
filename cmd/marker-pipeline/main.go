// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the marker-pipeline CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/marker-pipeline/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the marker-pipeline CLI.
var rootCmd = &cobra.Command{
	Use:   "marker-pipeline",
	Short: "GPU-gated document conversion and markdown table harvesting",
	Long: `marker-pipeline converts scanned documents (PDF or image) to markdown with
an external conversion tool, launching jobs only when the shared GPU host is
in a safe thermal and memory state, then recovers tabular data from the
markdown and exports it as batched CSV artifacts.

Each stage is a subcommand: convert runs conversions, tables harvests tables
from a converted document, serve exposes both over HTTP, and jobs inspects
the job ledger.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./marker-pipeline.yaml or ~/.config/marker-pipeline/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base data directory (default: ./data)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("marker-pipeline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "marker-pipeline"))
		}
	}

	viper.SetEnvPrefix("MARKER_PIPELINE")
	viper.AutomaticEnv()

	def := types.DefaultConfig()
	viper.SetDefault("data_dir", def.DataDir)
	viper.SetDefault("gate.temp_threshold_c", def.Gate.TempThresholdC)
	viper.SetDefault("gate.min_free_memory_mb", def.Gate.MinFreeMemoryMB)
	viper.SetDefault("gate.wait_timeout", def.Gate.WaitTimeout)
	viper.SetDefault("gate.poll_interval", def.Gate.PollInterval)
	viper.SetDefault("runner.bin", def.Runner.Bin)
	viper.SetDefault("runner.extra_flags", def.Runner.ExtraFlags)
	viper.SetDefault("tables.batch_size", def.Tables.BatchSize)
	viper.SetDefault("server.host", def.Server.Host)
	viper.SetDefault("server.port", def.Server.Port)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the pipeline configuration from viper.
func loadConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		DataDir: viper.GetString("data_dir"),
		Gate: types.GateConfig{
			TempThresholdC:  viper.GetInt("gate.temp_threshold_c"),
			MinFreeMemoryMB: viper.GetInt("gate.min_free_memory_mb"),
			WaitTimeout:     viper.GetDuration("gate.wait_timeout"),
			PollInterval:    viper.GetDuration("gate.poll_interval"),
		},
		Runner: types.RunnerConfig{
			Bin:        viper.GetString("runner.bin"),
			ExtraFlags: viper.GetStringSlice("runner.extra_flags"),
		},
		Tables: types.TablesConfig{
			BatchSize: viper.GetInt("tables.batch_size"),
		},
		Server: types.ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
	}

	if dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg
}

// newLogger builds the process-wide logger honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
