// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
)

// Environment variables read by Load.
const (
	EnvThreads    = "HUFFARC_THREADS"
	EnvProcesses  = "HUFFARC_PROCESSES"
	EnvScratchDir = "HUFFARC_SCRATCH_DIR"
	EnvScratchLZ4 = "HUFFARC_SCRATCH_LZ4"
	EnvBufferSize = "HUFFARC_BUFFER_SIZE"
	EnvLogLevel   = "HUFFARC_LOG_LEVEL"
)

type Config struct {
	Threads    int
	Processes  int
	ScratchDir string
	ScratchLZ4 bool
	BufferSize datasize.ByteSize
	LogLevel   logrus.Level
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Threads:    8,
		Processes:  16,
		ScratchLZ4: true,
		BufferSize: 64 * datasize.KB,
		LogLevel:   logrus.InfoLevel,
	}
}

// Load returns Default overridden by any HUFFARC_* variables that are set.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvThreads); ok {
		n, err := positiveInt(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvThreads, err)
		}
		cfg.Threads = n
	}
	if v, ok := lookup(EnvProcesses); ok {
		n, err := positiveInt(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvProcesses, err)
		}
		cfg.Processes = n
	}
	if v, ok := lookup(EnvScratchDir); ok {
		cfg.ScratchDir = v
	}
	if v, ok := lookup(EnvScratchLZ4); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvScratchLZ4, err)
		}
		cfg.ScratchLZ4 = b
	}
	if v, ok := lookup(EnvBufferSize); ok {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvBufferSize, err)
		}
		if size == 0 {
			return cfg, fmt.Errorf("%s: buffer size must be positive", EnvBufferSize)
		}
		cfg.BufferSize = size
	}
	if v, ok := lookup(EnvLogLevel); ok {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

// NewLogger returns a text logger on stderr at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(c.LogLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}
