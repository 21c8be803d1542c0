package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "GAZEFIX"

// envOverrides are the settings that may be supplied through GAZEFIX_*
// environment variables. Non-empty values replace the file values.
type envOverrides struct {
	DataDir           string `envconfig:"DATA_DIR"`
	OutputDir         string `envconfig:"OUTPUT_DIR"`
	StateDir          string `envconfig:"STATE_DIR"`
	ClassifierCommand string `envconfig:"CLASSIFIER_COMMAND"`
	LogLevel          string `envconfig:"LOG_LEVEL"`
	LogFormat         string `envconfig:"LOG_FORMAT"`
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("load environment overrides: %w", err)
	}
	override := func(dst *string, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
	}
	override(&c.Paths.DataDir, env.DataDir)
	override(&c.Paths.OutputDir, env.OutputDir)
	override(&c.Paths.StateDir, env.StateDir)
	override(&c.Classifier.Command, env.ClassifierCommand)
	override(&c.Logging.Level, env.LogLevel)
	override(&c.Logging.Format, env.LogFormat)
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTracker()
	c.normalizeClassifier()
	c.normalizeOutput()
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = defaultWorkers
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracker() {
	t := &c.Tracker
	for _, col := range []*string{
		&t.TimeColumn, &t.LeftXColumn, &t.LeftYColumn, &t.LeftValidityColumn,
		&t.RightXColumn, &t.RightYColumn, &t.RightValidityColumn,
		&t.AverageXColumn, &t.AverageYColumn,
	} {
		*col = strings.TrimSpace(*col)
	}
	exts := make([]string, 0, len(t.Extensions))
	seen := make(map[string]struct{}, len(t.Extensions))
	for _, ext := range t.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	t.Extensions = exts
}

func (c *Config) normalizeClassifier() {
	c.Classifier.Command = strings.TrimSpace(c.Classifier.Command)
	if c.Classifier.MaxDisp <= 0 {
		c.Classifier.MaxDisp = defaultMaxDisp(c.Tracker.ResX)
	}
	if len(c.Classifier.ScreenSize) == 0 {
		c.Classifier.ScreenSize = nil
	}
}

func (c *Config) normalizeOutput() {
	c.Output.TableFile = strings.TrimSpace(c.Output.TableFile)
	if c.Output.TableFile == "" {
		c.Output.TableFile = defaultTableFile
	}
	switch strings.ToLower(c.Output.Delimiter) {
	case "":
		c.Output.Delimiter = defaultDelimiter
	case `\t`, "tab":
		c.Output.Delimiter = "\t"
	}
	if c.Output.PlotWidth <= 0 {
		c.Output.PlotWidth = defaultPlotWidth
	}
	if c.Output.PlotHeight <= 0 {
		c.Output.PlotHeight = defaultPlotHeight
	}
}

func (c *Config) normalizeMetrics() error {
	path := strings.TrimSpace(c.Metrics.TextfilePath)
	if path == "" {
		c.Metrics.TextfilePath = ""
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	c.Metrics.TextfilePath = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
