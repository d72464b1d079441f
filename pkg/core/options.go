package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Strategy selects how work is scheduled. Every strategy produces the same
// archive and the same decompressed files.
type Strategy int

const (
	Serial     Strategy = iota // one goroutine, straight into the archive
	Concurrent                 // batches of goroutines
	Parallel                   // worker processes
)

// Strategies lists every strategy in the order the CLI runs them.
var Strategies = []Strategy{Serial, Concurrent, Parallel}

func (s Strategy) String() string {
	switch s {
	case Serial:
		return "serial"
	case Concurrent:
		return "concurrent"
	case Parallel:
		return "parallel"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy accepts a strategy name or its one-letter abbreviation.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "serial", "s":
		return Serial, nil
	case "concurrent", "c":
		return Concurrent, nil
	case "parallel", "p":
		return Parallel, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Default pool sizes.
const (
	DefaultThreads    = 8
	DefaultProcesses  = 16
	DefaultBufferSize = 64 * 1024
)

// Options controls a compression or decompression run.
type Options struct {
	Strategy Strategy

	// Threads is the goroutine batch size of the concurrent strategy.
	Threads int
	// Processes bounds the number of live worker processes.
	Processes int

	// ScratchDir is where per-worker temporaries are created. Empty means
	// next to the archive.
	ScratchDir string
	// ScratchLZ4 frames temporaries with LZ4.
	ScratchLZ4 bool

	// BufferSize is the size of file read buffers.
	BufferSize int

	Logger logrus.FieldLogger

	// Executable is re-executed for worker processes. Empty means the
	// running binary.
	Executable string
}

func (o Options) withDefaults() (Options, error) {
	if o.Threads <= 0 {
		o.Threads = DefaultThreads
	}
	if o.Processes <= 0 {
		o.Processes = DefaultProcesses
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Strategy == Parallel && o.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return o, fmt.Errorf("locate executable: %w", err)
		}
		o.Executable = exe
	}
	return o, nil
}
