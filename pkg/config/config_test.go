package config

import (
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env(nil))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("load with empty environment = %+v, want %+v", cfg, Default())
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(env(map[string]string{
		EnvThreads:    "4",
		EnvProcesses:  "2",
		EnvScratchDir: "/tmp/scratch",
		EnvScratchLZ4: "false",
		EnvBufferSize: "1MB",
		EnvLogLevel:   "debug",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	want := Config{
		Threads:    4,
		Processes:  2,
		ScratchDir: "/tmp/scratch",
		ScratchLZ4: false,
		BufferSize: datasize.MB,
		LogLevel:   logrus.DebugLevel,
	}
	if cfg != want {
		t.Errorf("load = %+v, want %+v", cfg, want)
	}
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  string
	}{
		{"Non-numeric threads", EnvThreads, "many"},
		{"Zero processes", EnvProcesses, "0"},
		{"Bad bool", EnvScratchLZ4, "perhaps"},
		{"Bad size", EnvBufferSize, "lots"},
		{"Zero size", EnvBufferSize, "0B"},
		{"Bad level", EnvLogLevel, "loud"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := load(env(map[string]string{tc.key: tc.val})); err == nil {
				t.Errorf("Expected error for %s=%q but got none", tc.key, tc.val)
			}
		})
	}
}
