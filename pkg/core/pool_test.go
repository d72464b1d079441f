package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestRunBatches(t *testing.T) {
	var calls, live, peak atomic.Int32
	err := runBatches(context.Background(), 10, 3, func(i int) error {
		calls.Add(1)
		n := live.Add(1)
		defer live.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if i%4 == 1 {
			return fmt.Errorf("unit %d failed", i)
		}
		return nil
	})

	if calls.Load() != 10 {
		t.Errorf("fn called %d times, want 10", calls.Load())
	}
	if peak.Load() > 3 {
		t.Errorf("%d calls ran at once, batch size is 3", peak.Load())
	}
	if err == nil {
		t.Fatal("Expected joined error but got none")
	}
	for _, want := range []string{"unit 1 failed", "unit 5 failed", "unit 9 failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestRunBatchesEmpty(t *testing.T) {
	err := runBatches(context.Background(), 0, 4, func(int) error {
		t.Error("fn called for empty range")
		return nil
	})
	if err != nil {
		t.Errorf("runBatches over nothing: %v", err)
	}
}

func TestRunProcessesStartFailure(t *testing.T) {
	opts := testOptions(Parallel)
	opts.Executable = filepath.Join(t.TempDir(), "no-such-binary")
	opts, err := opts.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults failed: %v", err)
	}

	done := 0
	tasks := []workerTask{{name: "a", args: []string{"decode"}, onDone: func() { done++ }}}
	if err := runProcesses(context.Background(), opts, tasks); err == nil {
		t.Fatal("Expected start error but got none")
	}
	if done != 0 {
		t.Errorf("onDone called %d times for a worker that never started", done)
	}
}

func TestRunWorkerErrors(t *testing.T) {
	log := quietLogger()
	archive := filepath.Join(t.TempDir(), "missing.huff")

	testCases := []struct {
		name string
		args []string
	}{
		{"No task", nil},
		{"Unknown task", []string{"shuffle"}},
		{"Unknown flag", []string{"decode", "-speed", "9"}},
		{"Missing archive", []string{"decode", "-archive", archive, "-offset", "0", "-chars", "1", "-output", archive + ".out"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := RunWorker(tc.args, log); err == nil {
				t.Errorf("Expected error but got none")
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %v, %v", s.String(), got, err)
		}
		got, err = ParseStrategy(s.String()[:1])
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %v, %v", s.String()[:1], got, err)
		}
	}
	if _, err := ParseStrategy("x"); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

func TestCancelledBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runBatches(ctx, 5, 2, func(int) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
