package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"outpost/internal/config"
	"outpost/internal/logging"
)

// AttemptError records why one backend in the chain failed.
type AttemptError struct {
	Backend string
	Err     error
}

// Failure reports that every backend in the chain was exhausted.
type Failure struct {
	Attempts []AttemptError
}

func (f *Failure) Error() string {
	parts := make([]string, 0, len(f.Attempts))
	for _, attempt := range f.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", attempt.Backend, attempt.Err))
	}
	return "all capture backends failed: " + strings.Join(parts, "; ")
}

// Chain tries each backend in order until one produces a non-empty clip.
type Chain struct {
	backends []Backend
	tempDir  string
	params   Params
	margin   time.Duration
	logger   *slog.Logger
}

// NewChain builds a chain from explicit parts; used directly by tests.
func NewChain(backends []Backend, tempDir string, params Params, margin time.Duration, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chain{
		backends: backends,
		tempDir:  tempDir,
		params:   params,
		margin:   margin,
		logger:   logging.WithComponent(logger, "capture"),
	}
}

// ChainFromConfig wires the configured backends, dimensions and timing.
func ChainFromConfig(cfg *config.Config, logger *slog.Logger) *Chain {
	params := Params{
		Duration: cfg.CaptureDuration(),
		Width:    cfg.Capture.Width,
		Height:   cfg.Capture.Height,
		FPS:      cfg.Capture.FPS,
	}
	return NewChain(FromConfig(cfg), cfg.Paths.TempDir, params, cfg.CaptureMargin(), logger)
}

// Capture records one clip and returns its raw bytes. Each backend gets the
// recording duration plus a margin before it is killed; a backend that exits
// zero but leaves no artifact (or an empty one) counts as failed. Temp files
// are removed whether the attempt succeeds or not.
func (c *Chain) Capture(ctx context.Context, tag string) ([]byte, error) {
	if len(c.backends) == 0 {
		return nil, &Failure{}
	}

	outputPath := filepath.Join(c.tempDir, fmt.Sprintf("recording_%s_%d.h264", tag, time.Now().Unix()))
	timeout := c.params.Duration + c.margin

	var attempts []AttemptError
	for _, backend := range c.backends {
		data, err := c.attempt(ctx, backend, outputPath, timeout)
		if err == nil {
			c.logger.Info("video captured",
				logging.String("backend", backend.Name()),
				logging.Int("size_bytes", len(data)))
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("capture backend failed",
			logging.String("backend", backend.Name()),
			logging.Error(err))
		attempts = append(attempts, AttemptError{Backend: backend.Name(), Err: err})
	}
	return nil, &Failure{Attempts: attempts}
}

func (c *Chain) attempt(ctx context.Context, backend Backend, outputPath string, timeout time.Duration) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer os.Remove(outputPath)

	if err := backend.Capture(attemptCtx, c.params, outputPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("no artifact written: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("artifact %s is empty", filepath.Base(outputPath))
	}
	return os.ReadFile(outputPath)
}

// Params exposes the configured recording parameters for metadata rows.
func (c *Chain) Params() Params { return c.params }
