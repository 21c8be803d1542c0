package preflight

import (
	"context"
	"path/filepath"

	"gazefix/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results are informational; a failure does not block a run.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDataDirectory(cfg.Paths.DataDir, cfg.Tracker.Extensions),
		CheckCreatableDirectory("Output directory", cfg.Paths.OutputDir),
		CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
	}
	if path := cfg.Metrics.TextfilePath; path != "" {
		results = append(results, CheckCreatableDirectory("Metrics directory", filepath.Dir(path)))
	}
	results = append(results, CheckClassifier(ctx, cfg.Classifier)...)
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
