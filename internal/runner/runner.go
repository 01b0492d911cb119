// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner builds and executes the external document→markdown tool
// invocation and enforces its output contract. The tool's documented output
// location is not trusted: the runner declares the expected path, verifies
// it, and falls back to a read-only discovery search (discovery.go).
package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/marker-pipeline/pkg/types"
)

// AllowedExtensions lists the input types the pipeline accepts.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
	".tif":  true,
	".bmp":  true,
}

// ConversionError reports a fatal conversion failure: the tool exited
// non-zero, or no output artifact could be resolved. The captured streams are
// the only source of diagnostic detail, so they travel with the error.
type ConversionError struct {
	Input  string
	Reason string
	Stdout string
	Stderr string
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("conversion failed for %s: %s", e.Input, e.Reason)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

// gate is the pre-launch readiness check. Satisfied by *gpu.Gate.
type gate interface {
	WaitUntilReady(ctx context.Context) error
}

// executor abstracts command execution for testing.
type executor interface {
	RunCapture(ctx context.Context, name string, args []string) (stdout, stderr string, err error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) RunCapture(ctx context.Context, name string, args []string) (string, string, error) {
	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Runner executes conversion jobs one at a time. It does not parallelize;
// concurrent callers contend on the shared hardware through the gate, which
// is advisory rather than an exclusion lock.
type Runner struct {
	cfg    types.RunnerConfig
	gate   gate
	exec   executor
	logger *slog.Logger
}

// New creates a Runner that launches cfg.Bin behind the given gate.
func New(cfg types.RunnerConfig, g gate, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, gate: g, exec: &osExecutor{}, logger: logger}
}

// Run converts inputPath into markdown under outputDir and returns the path
// of the produced markdown file. Steps execute strictly in the order
// gate → launch → contract check → discovery. Gate failures propagate
// unchanged; everything else fatal is a *ConversionError.
func (r *Runner) Run(ctx context.Context, inputPath, outputDir string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input %s: %w", inputPath, err)
	}
	ext := strings.ToLower(filepath.Ext(inputPath))
	if !AllowedExtensions[ext] {
		return "", fmt.Errorf("input %s: unrecognized extension %q", inputPath, ext)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	if err := r.gate.WaitUntilReady(ctx); err != nil {
		return "", err
	}

	args := buildArgs(inputPath, outputDir, r.cfg.ExtraFlags)

	r.logger.Info("starting conversion", "input", inputPath, "cmd", r.cfg.Bin+" "+strings.Join(args, " "))
	start := time.Now()
	stdout, stderr, err := r.exec.RunCapture(ctx, r.cfg.Bin, args)
	duration := time.Since(start)
	r.logger.Info("conversion finished", "input", inputPath, "duration", duration.Round(time.Millisecond), "ok", err == nil)
	r.logger.Debug("conversion streams", "stdout", stdout, "stderr", stderr)

	if err != nil {
		return "", &ConversionError{
			Input:  inputPath,
			Reason: fmt.Sprintf("tool exited with error (%v)", err),
			Stdout: stdout,
			Stderr: stderr,
		}
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	canonical := filepath.Join(outputDir, stem+".md")
	if _, err := os.Stat(canonical); err == nil {
		return canonical, nil
	}

	r.logger.Debug("canonical output missing, running discovery", "expected", canonical)
	wd, _ := os.Getwd()
	found, derr := discoverOutput(stem, outputDir, filepath.Dir(inputPath), wd, stdout, stderr)
	if derr != nil {
		return "", &ConversionError{
			Input:  inputPath,
			Reason: "output not found",
			Stdout: stdout,
			Stderr: stderr,
		}
	}

	r.logger.Info("discovered conversion output", "path", found)
	return found, nil
}

// buildArgs assembles the tool invocation. The runner's output directory
// always wins: any --output_dir in the extra flags (either "--output_dir X"
// or "--output_dir=X") is stripped so the tool sees a single destination.
func buildArgs(inputPath, outputDir string, extraFlags []string) []string {
	args := []string{inputPath, "--output_dir", outputDir}
	for i := 0; i < len(extraFlags); i++ {
		flag := extraFlags[i]
		if flag == "--output_dir" {
			// Skip the flag and its value.
			if i+1 < len(extraFlags) && !strings.HasPrefix(extraFlags[i+1], "--") {
				i++
			}
			continue
		}
		if strings.HasPrefix(flag, "--output_dir=") {
			continue
		}
		args = append(args, flag)
	}
	return args
}
