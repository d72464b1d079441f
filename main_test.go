package main

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"huffarc/lib"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSplitFlags(t *testing.T) {
	testCases := []struct {
		name       string
		args       []string
		strategies []lib.Strategy
		rest       []string
	}{
		{"No flags runs all", []string{"in"}, []lib.Strategy{lib.Serial, lib.Concurrent, lib.Parallel}, []string{"in"}},
		{"Single flag", []string{"-c", "in", "out.huff"}, []lib.Strategy{lib.Concurrent}, []string{"in", "out.huff"}},
		{"Flags after paths", []string{"in", "-p", "-s"}, []lib.Strategy{lib.Parallel, lib.Serial}, []string{"in"}},
		{"Long names", []string{"--serial", "in"}, []lib.Strategy{lib.Serial}, []string{"in"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			strategies, rest, err := splitFlags(tc.args)
			if err != nil {
				t.Fatalf("splitFlags failed: %v", err)
			}
			if !slices.Equal(strategies, tc.strategies) {
				t.Errorf("strategies = %v, want %v", strategies, tc.strategies)
			}
			if !slices.Equal(rest, tc.rest) {
				t.Errorf("rest = %v, want %v", rest, tc.rest)
			}
		})
	}

	if _, _, err := splitFlags([]string{"-x", "in"}); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestDetermineOutputPath(t *testing.T) {
	if got := determineOutputPath("books/", []string{"books/"}); got != "books.huff" {
		t.Errorf("default output = %q, want books.huff", got)
	}
	if got := determineOutputPath("books", []string{"books", "x.huff"}); got != "x.huff" {
		t.Errorf("explicit output = %q, want x.huff", got)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if got, want := determineOutputPath(".", []string{"."}), filepath.Base(wd)+".huff"; got != want {
		t.Errorf("output for . = %q, want %q", got, want)
	}
	if got := determineOutputPath("books/..", []string{"books/.."}); got != filepath.Base(wd)+".huff" {
		t.Errorf("output for books/.. = %q, want %q", got, filepath.Base(wd)+".huff")
	}
	root := string(filepath.Separator)
	if got := determineOutputPath(root, []string{root}); got != "output.huff" {
		t.Errorf("output for %s = %q, want output.huff", root, got)
	}
}

func TestRunStrategiesContinuesAfterFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	var ran []lib.Strategy
	err := runStrategies(log, []lib.Strategy{lib.Serial, lib.Concurrent, lib.Parallel}, func(s lib.Strategy) error {
		ran = append(ran, s)
		if s == lib.Concurrent {
			return errors.New("boom")
		}
		return nil
	})
	if err == nil || err.Error() != "1 of 3 strategies failed" {
		t.Errorf("error = %v, want 1 of 3 strategies failed", err)
	}
	if len(ran) != 3 {
		t.Errorf("ran %v, want all three strategies", ran)
	}
	var errorsLogged int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorsLogged++
		}
	}
	if errorsLogged != 1 {
		t.Errorf("%d errors logged, want 1", errorsLogged)
	}
}
