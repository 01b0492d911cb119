// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"time"
)

// GateConfig holds GPU safety thresholds for the pre-launch readiness gate.
type GateConfig struct {
	// TempThresholdC is the per-device temperature ceiling in degrees Celsius.
	// A device at or above this value blocks job launch.
	TempThresholdC int `json:"temp_threshold_c" yaml:"temp_threshold_c"`

	// MinFreeMemoryMB is the minimum free VRAM each device must have.
	MinFreeMemoryMB int `json:"min_free_memory_mb" yaml:"min_free_memory_mb"`

	// WaitTimeout bounds how long a job waits for the hardware to clear.
	WaitTimeout time.Duration `json:"wait_timeout" yaml:"wait_timeout"`

	// PollInterval is the delay between readiness checks.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// RunnerConfig holds settings for the external conversion tool invocation.
type RunnerConfig struct {
	// Bin is the conversion CLI binary (e.g. "marker_single" or a full path).
	Bin string `json:"bin" yaml:"bin"`

	// ExtraFlags are additional flags passed to the tool. Any --output_dir
	// flag in this list is stripped; the runner always controls the
	// destination.
	ExtraFlags []string `json:"extra_flags" yaml:"extra_flags"`
}

// TablesConfig holds settings for table extraction and export.
type TablesConfig struct {
	// BatchSize is the maximum number of tables written into one artifact
	// (default 30).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	// DataDir is the base directory containing uploads/, outputs/, filters/
	// and pages/.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	Gate   GateConfig   `json:"gate" yaml:"gate"`
	Runner RunnerConfig `json:"runner" yaml:"runner"`
	Tables TablesConfig `json:"tables" yaml:"tables"`
	Server ServerConfig `json:"server" yaml:"server"`
}

// Subdirectories of DataDir.
const (
	UploadsDir = "uploads"
	OutputsDir = "outputs"
	FiltersDir = "filters"
	PagesDir   = "pages"
)

// UploadsPath returns the directory where raw uploads are persisted.
func (c PipelineConfig) UploadsPath() string { return filepath.Join(c.DataDir, UploadsDir) }

// OutputsPath returns the directory where conversion output lands.
func (c PipelineConfig) OutputsPath() string { return filepath.Join(c.DataDir, OutputsDir) }

// FiltersPath returns the alternate root for exported table artifacts.
func (c PipelineConfig) FiltersPath() string { return filepath.Join(c.DataDir, FiltersDir) }

// PagesPath returns the scratch directory for split PDF pages.
func (c PipelineConfig) PagesPath() string { return filepath.Join(c.DataDir, PagesDir) }

// DefaultConfig returns the stock configuration. Thresholds mirror the
// operational defaults for the shared conversion host.
func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		DataDir: "data",
		Gate: GateConfig{
			TempThresholdC:  85,
			MinFreeMemoryMB: 500,
			WaitTimeout:     600 * time.Second,
			PollInterval:    5 * time.Second,
		},
		Runner: RunnerConfig{
			Bin:        "marker_single",
			ExtraFlags: []string{"--force_ocr", "--output_format", "markdown"},
		},
		Tables: TablesConfig{
			BatchSize: 30,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
	}
}
