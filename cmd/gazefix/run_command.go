package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gazefix/internal/batch"
	"gazefix/internal/config"
	"gazefix/internal/metrics"
	"gazefix/internal/preflight"
	"gazefix/internal/results"
	"gazefix/internal/services"
	"gazefix/internal/services/i2mc"
)

type runOptions struct {
	dataDir       string
	outputDir     string
	workers       int
	noPlots       bool
	skipPreflight bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify fixations for every recording in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunOverrides(cmd, cfg, opts); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !opts.skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					for _, r := range failed {
						fmt.Fprintln(out, renderStatusLine(r.Name, statusError, r.Detail, shouldColorize(out)))
					}
					return errors.New("preflight checks failed; run `gazefix check` for details")
				}
			}

			classifier, err := i2mc.New(cfg.Classifier.Command, cfg.Classifier.Args, cfg.Classifier.TimeoutSeconds,
				i2mc.WithScratchDir(cfg.Paths.StateDir))
			if err != nil {
				return err
			}

			logger := ctx.newLogger(cmd)
			store, err := results.Open(cfg)
			if err != nil {
				return fmt.Errorf("open results store: %w", err)
			}
			defer store.Close()

			runner, err := batch.NewRunner(cfg, classifier,
				batch.WithStore(store),
				batch.WithLogger(logger),
				batch.WithMetrics(metrics.New()),
			)
			if err != nil {
				return err
			}
			summary, err := runner.Run(cmd.Context())
			if summary != nil {
				printRunSummary(out, summary)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.dataDir, "data", "", "Data directory (overrides paths.data_dir)")
	cmd.Flags().StringVar(&opts.outputDir, "output", "", "Output directory (overrides paths.output_dir)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Recordings processed in parallel (overrides batch.workers)")
	cmd.Flags().BoolVar(&opts.noPlots, "no-plots", false, "Skip overlay figures")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Start without running preflight checks")
	return cmd
}

func applyRunOverrides(cmd *cobra.Command, cfg *config.Config, opts runOptions) error {
	if cmd.Flags().Changed("data") {
		path, err := config.ExpandPath(opts.dataDir)
		if err != nil {
			return fmt.Errorf("resolve --data: %w", err)
		}
		cfg.Paths.DataDir = path
	}
	if cmd.Flags().Changed("output") {
		path, err := config.ExpandPath(opts.outputDir)
		if err != nil {
			return fmt.Errorf("resolve --output: %w", err)
		}
		cfg.Paths.OutputDir = path
	}
	if cmd.Flags().Changed("workers") {
		cfg.Batch.Workers = opts.workers
	}
	if opts.noPlots {
		cfg.Output.Plots = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", services.ErrConfiguration, err)
	}
	return nil
}

func printRunSummary(out io.Writer, summary *batch.Summary) {
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "Run %s\n", summary.RunID)
	fmt.Fprintf(out, "Folders: %d  Recordings: %d  Processed: %d  Skipped: %d  Fixations: %d\n",
		summary.Folders, summary.Files, summary.Processed, summary.SkippedTotal(), summary.Fixations)
	if summary.TablePath != "" {
		fmt.Fprintf(out, "Table: %s\n", summary.TablePath)
	}
	if summary.WorkbookPath != "" {
		fmt.Fprintf(out, "Workbook: %s\n", summary.WorkbookPath)
	}
	if len(summary.Skipped) > 0 {
		outcomes := make([]string, 0, len(summary.Skipped))
		for outcome := range summary.Skipped {
			outcomes = append(outcomes, string(outcome))
		}
		sort.Strings(outcomes)
		parts := make([]string, 0, len(outcomes))
		for _, o := range outcomes {
			parts = append(parts, fmt.Sprintf("%s=%d", o, summary.Skipped[services.Outcome(o)]))
		}
		fmt.Fprintf(out, "Skipped by outcome: %s\n", strings.Join(parts, ", "))
	}
	if len(summary.Results) == 0 {
		return
	}

	rows := make([][]string, 0, len(summary.Results))
	for _, res := range summary.Results {
		layout := "-"
		if res.Layout != 0 {
			layout = res.Layout.String()
		}
		rows = append(rows, []string{
			res.File.Identity.Participant,
			res.File.Identity.Trial,
			layout,
			strconv.Itoa(res.Samples),
			colorOutcome(res.Outcome, colorize),
			strconv.Itoa(len(res.Fixations)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Participant", "Trial", "Layout", "Samples", "Outcome", "Fixations"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	))
}
