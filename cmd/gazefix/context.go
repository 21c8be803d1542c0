package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"gazefix/internal/config"
	"gazefix/internal/logging"
	"gazefix/internal/results"
)

// skipConfigAnnotation marks commands that must run without a loaded config.
const skipConfigAnnotation = "skipConfigLoad"

// commandContext lazily loads configuration once per process and hands it to
// every subcommand.
type commandContext struct {
	configFlag *string

	once         sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(c.load)
	return c.config, c.configErr
}

func (c *commandContext) load() {
	var flagValue string
	if c.configFlag != nil {
		flagValue = strings.TrimSpace(*c.configFlag)
	}
	cfg, resolved, exists, err := config.Load(flagValue)
	if err == nil {
		err = cfg.EnsureDirectories()
	}
	if err != nil {
		c.configErr = err
		return
	}
	c.config, c.configPath, c.configExists = cfg, resolved, exists
}

// withStore opens the results database for the duration of fn.
func (c *commandContext) withStore(fn func(*results.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := results.Open(cfg)
	if err != nil {
		return fmt.Errorf("open results store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// newLogger builds the command logger from config. A log file that cannot be
// opened disables logging with a warning instead of failing the command.
func (c *commandContext) newLogger(cmd *cobra.Command) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return logging.NewNop()
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: logging disabled: %v\n", err)
		return logging.NewNop()
	}
	return logger
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
