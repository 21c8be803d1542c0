package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gazefix/internal/config"
	"gazefix/internal/testsupport"
)

// classifierStub answers --version and otherwise writes a two-fixation result
// to the path given by --output.
const classifierStub = `#!/bin/sh
out=""
while [ "$#" -gt 0 ]; do
  if [ "$1" = "--output" ]; then
    out="$2"
    shift
  fi
  shift
done
if [ -z "$out" ]; then
  echo "i2mc-stub 1.0"
  exit 0
fi
cat > "$out" <<'JSON'
{
  "fix": {
    "startT": [0, 10], "endT": [8, 20], "dur": [8, 10],
    "xpos": [900, 905], "ypos": [500, 505],
    "flankdataloss": [0, 1], "fracinterped": [0, 0.25], "cutoff": 0.4,
    "RMSxy": [0.1, 0.2], "BCEA": [0.3, 0.4], "fixRangeX": [1, 2], "fixRangeY": [3, 4]
  },
  "data": {},
  "par": {"freq": 300}
}
JSON
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	stub := filepath.Join(binDir, "i2mc-stub")
	if err := os.WriteFile(stub, []byte(classifierStub), 0o755); err != nil {
		t.Fatalf("write classifier stub: %v", err)
	}
	cfg.Classifier.Command = stub

	configPath := filepath.Join(base, "gazefix.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
output_dir = %q
state_dir = %q

[tracker]
normalized = false

[classifier]
command = %q

[output]
plots = false
params_sidecar = false

[logging]
level = "error"
`,
		cfg.Paths.DataDir,
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Classifier.Command,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func binocularRows(n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i) * 3.33, 900 + float64(i), 500, 0, 905, 505, 0}
	}
	return rows
}
