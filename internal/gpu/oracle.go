// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gpu implements the hardware readiness gate that protects the shared
// GPU host from launching conversion jobs while it is hot or out of memory.
package gpu

import (
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

const binSmi = "nvidia-smi"

// Sample is one device's telemetry reading. Samples are produced fresh on
// each poll and never persisted.
type Sample struct {
	Index         int
	Temperature   int
	MemoryTotalMB int
	MemoryUsedMB  int
}

// FreeMB returns the device's free memory.
func (s Sample) FreeMB() int { return s.MemoryTotalMB - s.MemoryUsedMB }

// Oracle reports the current telemetry of all visible compute devices.
// An empty slice means there is no hardware to protect.
type Oracle interface {
	Sample() []Sample
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunCapture(name string, args ...string) (string, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunCapture(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return string(out), err
}

// smiOracle queries nvidia-smi. Absence of the binary or a failing query is
// reported as zero devices, not an error: a host without GPUs has nothing to
// gate on.
type smiOracle struct {
	exec   executor
	logger *slog.Logger
}

// NewOracle returns the production telemetry oracle.
func NewOracle(logger *slog.Logger) Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &smiOracle{exec: &osExecutor{}, logger: logger}
}

func (o *smiOracle) Sample() []Sample {
	if _, err := o.exec.LookPath(binSmi); err != nil {
		o.logger.Debug("nvidia-smi not found, skipping GPU telemetry")
		return nil
	}

	out, err := o.exec.RunCapture(binSmi,
		"--query-gpu=index,temperature.gpu,memory.total,memory.used",
		"--format=csv,noheader,nounits")
	if err != nil {
		o.logger.Debug("nvidia-smi query failed", "error", err)
		return nil
	}

	return parseSamples(out)
}

// parseSamples decodes nvidia-smi CSV rows of the form
// "index, temperature_C, memory_total_MB, memory_used_MB".
// Malformed rows are dropped.
func parseSamples(out string) []Sample {
	var samples []Sample
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 4 {
			continue
		}

		vals := make([]int, 4)
		ok := true
		for i := 0; i < 4; i++ {
			n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
			if err != nil {
				ok = false
				break
			}
			vals[i] = n
		}
		if !ok {
			continue
		}

		samples = append(samples, Sample{
			Index:         vals[0],
			Temperature:   vals[1],
			MemoryTotalMB: vals[2],
			MemoryUsedMB:  vals[3],
		})
	}
	return samples
}
