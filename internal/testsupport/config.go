package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"gazefix/internal/config"
)

// ConfigOption adjusts the config NewConfig returns.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns a config whose data, output and state directories live in
// a fresh temp dir. Recordings are read as pixel coordinates; plots and
// parameter sidecars are off unless an option enables them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		DataDir:   filepath.Join(base, "data"),
		OutputDir: filepath.Join(base, "output"),
		StateDir:  filepath.Join(base, "state"),
	}
	cfg.Tracker.Normalized = false
	cfg.Output.Plots = false
	cfg.Output.ParamsSidecar = false

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithPlots enables small overlay figures.
func WithPlots() ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Output.Plots = true
		cfg.Output.PlotWidth, cfg.Output.PlotHeight = 300, 200
	}
}

// WithWorkers sets the batch worker count.
func WithWorkers(n int) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Batch.Workers = n
	}
}

// WithStubbedBinaries puts no-op executables with the given names first on
// PATH for the rest of the test. With no names the configured classifier
// command is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, cfg *config.Config) {
		if len(names) == 0 {
			names = []string{cfg.Classifier.Command}
		}
		binDir := filepath.Join(base, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp directory backing a config from NewConfig.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
