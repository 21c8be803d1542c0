package config_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"gazefix/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "gazefix")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) || !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("expected absolute paths, got %q and %q", cfg.Paths.DataDir, cfg.Paths.OutputDir)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "gazefix.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
	if cfg.TablePath() != filepath.Join(cfg.Paths.OutputDir, "allfixations.txt") {
		t.Fatalf("unexpected table path %q", cfg.TablePath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestDefaultOptionSets(t *testing.T) {
	cfg := config.Default()

	g := cfg.GazeOptions()
	if g.MissingX != -1920 || g.MissingY != -1080 {
		t.Fatalf("missing sentinels should default to negated resolution: %+v", g)
	}

	opts := cfg.ClassifierOptions()
	if opts.XRes != 1920 || opts.Freq != 300 || opts.MaxMergeDist != 30 || opts.MinFixDur != 40 {
		t.Fatalf("unexpected classifier options %+v", opts)
	}
	if want := 1920 * 0.2 * math.Sqrt2; math.Abs(opts.MaxDisp-want) > 1e-9 {
		t.Fatalf("unexpected max displacement %v", opts.MaxDisp)
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("default classifier options should validate: %v", err)
	}

	rec := cfg.RecordingOptions()
	if rec.Columns.Time != "RelTimestamp" || rec.Columns.RightValidity != "RValidity" || !rec.Normalized {
		t.Fatalf("unexpected recording options %+v", rec)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "gazefix.toml")

	type payload struct {
		Paths struct {
			DataDir   string `toml:"data_dir"`
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Tracker struct {
			ResX     float64 `toml:"res_x"`
			ResY     float64 `toml:"res_y"`
			MissingX float64 `toml:"missing_x"`
		} `toml:"tracker"`
		Classifier struct {
			MaxMergeDist float64 `toml:"max_merge_dist"`
		} `toml:"classifier"`
		Output struct {
			Delimiter string `toml:"delimiter"`
		} `toml:"output"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "in")
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Tracker.ResX = 1280
	custom.Tracker.ResY = 1024
	custom.Tracker.MissingX = -9999
	custom.Classifier.MaxMergeDist = 45
	custom.Output.Delimiter = "tab"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != custom.Paths.DataDir {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	g := cfg.GazeOptions()
	if g.ResX != 1280 || g.MissingX != -9999 || g.MissingY != -1024 {
		t.Fatalf("unexpected gaze options %+v", g)
	}
	if cfg.ClassifierOptions().MaxMergeDist != 45 {
		t.Fatalf("expected merge distance override")
	}
	if cfg.DelimiterRune() != '\t' {
		t.Fatalf("expected tab delimiter, got %q", cfg.DelimiterRune())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "gazefix.toml")
	if err := os.WriteFile(configPath, []byte("[tracker]\nresolution_x = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "gazefix.toml")
	contents := "[paths]\ndata_dir = \"/file/data\"\n[classifier]\ncommand = \"file-i2mc\"\n[logging]\nlevel = \"info\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	envData := filepath.Join(tempDir, "env-data")
	t.Setenv("GAZEFIX_DATA_DIR", envData)
	t.Setenv("GAZEFIX_CLASSIFIER_COMMAND", "env-i2mc")
	t.Setenv("GAZEFIX_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != envData {
		t.Errorf("expected data dir from env, got %q", cfg.Paths.DataDir)
	}
	if cfg.Classifier.Command != "env-i2mc" {
		t.Errorf("expected classifier command from env, got %q", cfg.Classifier.Command)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected normalized log level from env, got %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "max_merge_dist") {
		t.Fatalf("sample config missing classifier thresholds: %s", contents)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to be found")
	}
	if !strings.Contains(cfg.Paths.StateDir, "gazefix") {
		t.Fatalf("expected state dir to contain gazefix, got %q", cfg.Paths.StateDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero resolution", func(c *config.Config) { c.Tracker.ResX = 0 }},
		{"zero frequency", func(c *config.Config) { c.Tracker.Freq = 0 }},
		{"half channel", func(c *config.Config) { c.Tracker.LeftYColumn = "" }},
		{"no channels", func(c *config.Config) {
			c.Tracker.LeftXColumn, c.Tracker.LeftYColumn = "", ""
			c.Tracker.RightXColumn, c.Tracker.RightYColumn = "", ""
			c.Tracker.AverageXColumn, c.Tracker.AverageYColumn = "", ""
		}},
		{"missing command", func(c *config.Config) { c.Classifier.Command = "" }},
		{"negative merge distance", func(c *config.Config) { c.Classifier.MaxMergeDist = -1 }},
		{"bad downsample filter", func(c *config.Config) { c.Classifier.DownsampFilter = 2 }},
		{"multi-char delimiter", func(c *config.Config) { c.Output.Delimiter = ";;" }},
		{"quote delimiter", func(c *config.Config) { c.Output.Delimiter = `"` }},
		{"same dirs", func(c *config.Config) { c.Paths.OutputDir = c.Paths.DataDir }},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
