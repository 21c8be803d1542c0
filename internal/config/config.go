package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"gazefix/internal/fileutil"
	"gazefix/internal/fixation"
	"gazefix/internal/gaze"
	"gazefix/internal/recording"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories a batch reads from and writes to.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
}

// Tracker describes the recording format and the display it was captured on.
type Tracker struct {
	ResX float64 `toml:"res_x"`
	ResY float64 `toml:"res_y"`
	// MissingX and MissingY default to the negated resolution when unset.
	MissingX   *float64 `toml:"missing_x,omitempty"`
	MissingY   *float64 `toml:"missing_y,omitempty"`
	Freq       float64  `toml:"freq"`
	Normalized bool     `toml:"normalized"`
	Extensions []string `toml:"extensions"`

	TimeColumn          string `toml:"time_column"`
	LeftXColumn         string `toml:"left_x_column"`
	LeftYColumn         string `toml:"left_y_column"`
	LeftValidityColumn  string `toml:"left_validity_column"`
	RightXColumn        string `toml:"right_x_column"`
	RightYColumn        string `toml:"right_y_column"`
	RightValidityColumn string `toml:"right_validity_column"`
	AverageXColumn      string `toml:"average_x_column"`
	AverageYColumn      string `toml:"average_y_column"`
}

// Classifier configures the external fixation classifier and its thresholds.
type Classifier struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`

	ScreenSize   []float64 `toml:"screen_size"`
	DistToScreen float64   `toml:"dist_to_screen"`

	WindowTimeInterp float64 `toml:"window_time_interp"`
	EdgeSampInterp   int     `toml:"edge_samp_interp"`
	MaxDisp          float64 `toml:"max_disp"`

	WindowTime     float64   `toml:"window_time"`
	StepTime       float64   `toml:"step_time"`
	MaxErrors      int       `toml:"max_errors"`
	Downsamples    []float64 `toml:"downsamples"`
	DownsampFilter int       `toml:"downsamp_filter"`

	CutoffStd      float64 `toml:"cutoff_std"`
	OnOffsetThresh float64 `toml:"onoffset_thresh"`
	MaxMergeDist   float64 `toml:"max_merge_dist"`
	MaxMergeTime   float64 `toml:"max_merge_time"`
	MinFixDur      float64 `toml:"min_fix_dur"`
}

// Output controls what a batch writes.
type Output struct {
	TableFile     string `toml:"table_file"`
	Delimiter     string `toml:"delimiter"`
	ExportXLSX    bool   `toml:"export_xlsx"`
	Plots         bool   `toml:"plots"`
	PlotWidth     int    `toml:"plot_width"`
	PlotHeight    int    `toml:"plot_height"`
	ParamsSidecar bool   `toml:"params_sidecar"`
}

// Batch contains processing concurrency settings.
type Batch struct {
	Workers int `toml:"workers"`
}

// Metrics configures the Prometheus textfile written after each run.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for gazefix.
//
// Configuration sections by subsystem:
//   - Paths: recording root, output root, and state (database, logs, lock)
//   - Tracker: resolution, missing-data sentinels, sample rate, column names
//   - Classifier: external command plus every fixation threshold
//   - Output: table file, delimiter, workbook export, plots
//   - Batch: worker count
//   - Metrics: Prometheus textfile location
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Tracker    Tracker    `toml:"tracker"`
	Classifier Classifier `toml:"classifier"`
	Output     Output     `toml:"output"`
	Batch      Batch      `toml:"batch"`
	Metrics    Metrics    `toml:"metrics"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized, with GAZEFIX_* environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and state directories. The data
// directory must already exist and is never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the results database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "gazefix.db")
}

// LogPath returns the location of the persistent log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "gazefix.log")
}

// TablePath returns the location of the aggregated fixation table.
func (c *Config) TablePath() string {
	if filepath.IsAbs(c.Output.TableFile) {
		return c.Output.TableFile
	}
	return filepath.Join(c.Paths.OutputDir, c.Output.TableFile)
}

// DelimiterRune returns the table delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	for _, r := range c.Output.Delimiter {
		return r
	}
	return ','
}

// GazeOptions returns the validity rule parameters.
func (c *Config) GazeOptions() gaze.Options {
	return gaze.Options{
		ResX:     c.Tracker.ResX,
		ResY:     c.Tracker.ResY,
		MissingX: c.missingX(),
		MissingY: c.missingY(),
	}
}

// RecordingOptions returns the loader settings for recording files.
func (c *Config) RecordingOptions() recording.Options {
	t := c.Tracker
	return recording.Options{
		Columns: recording.Columns{
			Time:          t.TimeColumn,
			LeftX:         t.LeftXColumn,
			LeftY:         t.LeftYColumn,
			LeftValidity:  t.LeftValidityColumn,
			RightX:        t.RightXColumn,
			RightY:        t.RightYColumn,
			RightValidity: t.RightValidityColumn,
			AverageX:      t.AverageXColumn,
			AverageY:      t.AverageYColumn,
		},
		Normalized: t.Normalized,
		ResX:       t.ResX,
		ResY:       t.ResY,
	}
}

// ClassifierOptions returns the full option set handed to the classifier.
func (c *Config) ClassifierOptions() fixation.Options {
	cl := c.Classifier
	return fixation.Options{
		XRes:             c.Tracker.ResX,
		YRes:             c.Tracker.ResY,
		MissingX:         c.missingX(),
		MissingY:         c.missingY(),
		Freq:             c.Tracker.Freq,
		ScreenSize:       append([]float64(nil), cl.ScreenSize...),
		DistToScreen:     cl.DistToScreen,
		WindowTimeInterp: cl.WindowTimeInterp,
		EdgeSampInterp:   cl.EdgeSampInterp,
		MaxDisp:          cl.MaxDisp,
		WindowTime:       cl.WindowTime,
		StepTime:         cl.StepTime,
		MaxErrors:        cl.MaxErrors,
		Downsamples:      append([]float64(nil), cl.Downsamples...),
		DownsampFilter:   cl.DownsampFilter,
		CutoffStd:        cl.CutoffStd,
		OnOffsetThresh:   cl.OnOffsetThresh,
		MaxMergeDist:     cl.MaxMergeDist,
		MaxMergeTime:     cl.MaxMergeTime,
		MinFixDur:        cl.MinFixDur,
	}
}

func (c *Config) missingX() float64 {
	if c.Tracker.MissingX != nil {
		return *c.Tracker.MissingX
	}
	return -c.Tracker.ResX
}

func (c *Config) missingY() float64 {
	if c.Tracker.MissingY != nil {
		return *c.Tracker.MissingY
	}
	return -c.Tracker.ResY
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	err := fileutil.WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, sampleConfig)
		return err
	})
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
