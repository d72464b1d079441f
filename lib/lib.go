// Package lib provides compression and decompression functions for huffarc
// archives. It re-exports the core package behind a smaller surface.
package lib

import (
	"context"
	"io"

	"huffarc/pkg/config"
	"huffarc/pkg/core"
	"huffarc/pkg/progress"

	"github.com/sirupsen/logrus"
)

// Strategy re-exported from core
type Strategy = core.Strategy

// Re-export strategies
const (
	Serial     = core.Serial
	Concurrent = core.Concurrent
	Parallel   = core.Parallel
)

// Errors re-exported from core
var (
	ErrCorruptArchive = core.ErrCorruptArchive
	ErrVerifyMismatch = core.ErrVerifyMismatch
)

// Options builds core options for strategy s from cfg.
func Options(cfg config.Config, s Strategy, log logrus.FieldLogger) core.Options {
	return core.Options{
		Strategy:   s,
		Threads:    cfg.Threads,
		Processes:  cfg.Processes,
		ScratchDir: cfg.ScratchDir,
		ScratchLZ4: cfg.ScratchLZ4,
		BufferSize: int(cfg.BufferSize.Bytes()),
		Logger:     log,
	}
}

// InitProgress routes progress reports through log.
func InitProgress(log logrus.FieldLogger) {
	progress.SetLogger(log)
}

// Compress is a wrapper around core.Compress
func Compress(ctx context.Context, input, output string, opts core.Options) error {
	return core.Compress(ctx, input, output, opts)
}

// Decompress is a wrapper around core.Decompress
func Decompress(ctx context.Context, input, outputDir string, opts core.Options) error {
	return core.Decompress(ctx, input, outputDir, opts)
}

// Verify is a wrapper around core.Verify
func Verify(input, sourceDir string, opts core.Options) error {
	return core.Verify(input, sourceDir, opts)
}

// Inspect is a wrapper around core.Inspect
func Inspect(input string, w io.Writer, withTree bool) error {
	return core.Inspect(input, w, withTree)
}
