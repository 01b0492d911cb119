// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/marker-pipeline/pkg/types"
)

// TimeoutError reports that the hardware never reached a safe state within
// the configured wait window. The enclosing job is never launched.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for GPU to become available after %s", e.Elapsed.Round(time.Second))
}

// Gate decides whether it is safe to launch a new conversion job. It is
// advisory only: it performs read-only polling and holds no lock, so
// concurrent callers may both pass and both launch.
type Gate struct {
	oracle Oracle
	cfg    types.GateConfig
	logger *slog.Logger

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGate creates a gate over the given oracle with the given thresholds.
func NewGate(oracle Oracle, cfg types.GateConfig, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		oracle: oracle,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ready reports whether every sampled device is below the temperature
// threshold and has sufficient free memory. No devices means nothing to
// protect.
func (g *Gate) ready() bool {
	samples := g.oracle.Sample()
	if len(samples) == 0 {
		return true
	}

	for _, s := range samples {
		if s.Temperature >= g.cfg.TempThresholdC {
			g.logger.Debug("GPU over temperature threshold",
				"index", s.Index, "temp_c", s.Temperature, "threshold_c", g.cfg.TempThresholdC)
			return false
		}
		if s.FreeMB() < g.cfg.MinFreeMemoryMB {
			g.logger.Debug("GPU below free memory threshold",
				"index", s.Index, "free_mb", s.FreeMB(), "required_mb", g.cfg.MinFreeMemoryMB)
			return false
		}
	}
	return true
}

// WaitUntilReady blocks until all devices clear both thresholds, polling at
// the configured interval. On timeout it returns a *TimeoutError carrying the
// elapsed duration; a cancelled context returns ctx.Err().
func (g *Gate) WaitUntilReady(ctx context.Context) error {
	start := g.now()
	if g.ready() {
		return nil
	}

	g.logger.Info("waiting for GPU(s) to cool down and free memory")
	for {
		if err := g.sleep(ctx, g.cfg.PollInterval); err != nil {
			return err
		}
		if g.ready() {
			g.logger.Info("GPU(s) are ready")
			return nil
		}
		if elapsed := g.now().Sub(start); elapsed > g.cfg.WaitTimeout {
			err := &TimeoutError{Elapsed: elapsed}
			g.logger.Error("GPU gate timed out", "elapsed", elapsed)
			return err
		}
	}
}
