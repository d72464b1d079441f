package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"huffarc/lib"
	"huffarc/pkg/config"
	"huffarc/pkg/core"

	"github.com/sirupsen/logrus"
)

func main() {
	// Worker processes started by the parallel strategy never reach the CLI.
	core.MaybeRunWorker()

	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	log := cfg.NewLogger()
	lib.InitProgress(log)
	log.Debugf("Available CPU cores: %d", runtime.NumCPU())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	operation := os.Args[1]
	args := os.Args[2:]
	switch operation {
	case "compress":
		err = handleCompress(ctx, cfg, log, args)
	case "decompress":
		err = handleDecompress(ctx, cfg, log, args)
	case "verify":
		err = handleVerify(cfg, log, args)
	case "inspect":
		err = handleInspect(args)
	default:
		fmt.Println("Invalid operation:", operation)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// printUsage prints the command-line usage information
func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  huffarc compress   [-s] [-c] [-p] input-dir [archive]")
	fmt.Println("  huffarc decompress [-s] [-c] [-p] archive [output-dir]")
	fmt.Println("  huffarc verify     archive source-dir")
	fmt.Println("  huffarc inspect    [-tree] archive")
	fmt.Println()
	fmt.Println("  -s serial, -c concurrent (goroutines), -p parallel (processes).")
	fmt.Println("  Without a strategy flag all three run in turn.")
}

// splitFlags separates strategy flags from positional arguments.
func splitFlags(args []string) ([]lib.Strategy, []string, error) {
	var strategies []lib.Strategy
	var rest []string
	for _, a := range args {
		if !strings.HasPrefix(a, "-") || a == "-" {
			rest = append(rest, a)
			continue
		}
		s, err := core.ParseStrategy(strings.TrimLeft(a, "-"))
		if err != nil {
			return nil, nil, err
		}
		strategies = append(strategies, s)
	}
	if len(strategies) == 0 {
		strategies = core.Strategies
	}
	return strategies, rest, nil
}

// runStrategies runs fn once per strategy. A failing strategy is reported and
// the remaining ones still run.
func runStrategies(log logrus.FieldLogger, strategies []lib.Strategy, fn func(lib.Strategy) error) error {
	failed := 0
	for _, s := range strategies {
		log.WithField("strategy", s).Info("starting")
		if err := fn(s); err != nil {
			log.WithField("strategy", s).Errorf("aborted: %v", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d strategies failed", failed, len(strategies))
	}
	return nil
}

// handleCompress handles the compression operation
func handleCompress(ctx context.Context, cfg config.Config, log *logrus.Logger, args []string) error {
	strategies, rest, err := splitFlags(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 && len(rest) != 2 {
		printUsage()
		os.Exit(1)
	}

	input := rest[0]
	output := determineOutputPath(input, rest)
	return runStrategies(log, strategies, func(s lib.Strategy) error {
		return lib.Compress(ctx, input, output, lib.Options(cfg, s, log))
	})
}

// determineOutputPath determines the output path for compression
func determineOutputPath(input string, rest []string) string {
	// If output is provided as an argument, use it
	if len(rest) == 2 {
		return rest[1]
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "output.huff"
	}
	// The filesystem root has no name of its own.
	base := filepath.Base(abs)
	if base == string(filepath.Separator) {
		return "output.huff"
	}
	return base + ".huff"
}

// handleDecompress handles the decompression operation
func handleDecompress(ctx context.Context, cfg config.Config, log *logrus.Logger, args []string) error {
	strategies, rest, err := splitFlags(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 && len(rest) != 2 {
		printUsage()
		os.Exit(1)
	}

	input := rest[0]
	outputDir := "output"
	if len(rest) == 2 {
		outputDir = rest[1]
	}
	return runStrategies(log, strategies, func(s lib.Strategy) error {
		return lib.Decompress(ctx, input, outputDir, lib.Options(cfg, s, log))
	})
}

func handleVerify(cfg config.Config, log *logrus.Logger, args []string) error {
	if len(args) != 2 {
		printUsage()
		os.Exit(1)
	}
	return lib.Verify(args[0], args[1], lib.Options(cfg, lib.Serial, log))
}

func handleInspect(args []string) error {
	withTree := false
	var rest []string
	for _, a := range args {
		if a == "-tree" {
			withTree = true
			continue
		}
		rest = append(rest, a)
	}
	if len(rest) != 1 {
		printUsage()
		os.Exit(1)
	}
	return lib.Inspect(rest[0], os.Stdout, withTree)
}
