package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if c.Batch.Workers < 1 {
		return errors.New("batch.workers must be >= 1")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.DataDir == c.Paths.OutputDir {
		return errors.New("paths.output_dir must differ from paths.data_dir")
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.ResX <= 0 || c.Tracker.ResY <= 0 {
		return errors.New("tracker.res_x and tracker.res_y must be positive")
	}
	if c.Tracker.Freq <= 0 {
		return errors.New("tracker.freq must be positive")
	}
	if c.Tracker.TimeColumn == "" {
		return errors.New("tracker.time_column must be set")
	}
	if err := requirePair("left", c.Tracker.LeftXColumn, c.Tracker.LeftYColumn); err != nil {
		return err
	}
	if err := requirePair("right", c.Tracker.RightXColumn, c.Tracker.RightYColumn); err != nil {
		return err
	}
	if err := requirePair("average", c.Tracker.AverageXColumn, c.Tracker.AverageYColumn); err != nil {
		return err
	}
	if c.Tracker.LeftXColumn == "" && c.Tracker.RightXColumn == "" && c.Tracker.AverageXColumn == "" {
		return errors.New("tracker must name columns for at least one gaze channel")
	}
	return nil
}

func requirePair(channel, x, y string) error {
	if (x == "") != (y == "") {
		return fmt.Errorf("tracker.%s_x_column and tracker.%s_y_column must be set together", channel, channel)
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if c.Classifier.Command == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("classifier.command is required. Set GAZEFIX_CLASSIFIER_COMMAND or edit %s (create with 'gazefix config init')", defaultPath)
	}
	if c.Classifier.TimeoutSeconds < 0 {
		return errors.New("classifier.timeout_seconds must be >= 0")
	}
	if err := c.ClassifierOptions().Validate(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOutput() error {
	if utf8.RuneCountInString(c.Output.Delimiter) != 1 {
		return fmt.Errorf("output.delimiter must be a single character, got %q", c.Output.Delimiter)
	}
	switch r, _ := utf8.DecodeRuneInString(c.Output.Delimiter); r {
	case '"', '\r', '\n', utf8.RuneError:
		return fmt.Errorf("output.delimiter %q is not usable", c.Output.Delimiter)
	}
	if strings.ContainsAny(c.Output.TableFile, "\x00") {
		return errors.New("output.table_file contains invalid characters")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}
