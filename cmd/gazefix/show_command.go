package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"gazefix/internal/fixation"
	"gazefix/internal/results"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var showFixations bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show per-recording outcomes for a run (an ID prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *results.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if errors.Is(err, results.ErrRunNotFound) {
					return fmt.Errorf("run %q not found", args[0])
				}
				if errors.Is(err, results.ErrAmbiguousRun) {
					return fmt.Errorf("run ID prefix %q matches more than one run", args[0])
				}
				if err != nil {
					return fmt.Errorf("load run: %w", err)
				}
				files, err := store.RunFiles(cmd.Context(), run.ID)
				if err != nil {
					return fmt.Errorf("load recordings: %w", err)
				}

				out := cmd.OutOrStdout()
				printRunHeader(out, run)
				printRunFiles(out, files)

				if showFixations {
					rows, err := store.RunFixations(cmd.Context(), run.ID)
					if err != nil {
						return fmt.Errorf("load fixations: %w", err)
					}
					printFixationRows(out, rows)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showFixations, "fixations", false, "Also print every fixation row of the run")
	return cmd
}

func printRunHeader(out io.Writer, run *results.Run) {
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Status:   %s\n", colorRunStatus(run.Status, colorize))
	fmt.Fprintf(out, "Data:     %s\n", run.DataDir)
	fmt.Fprintf(out, "Output:   %s\n", run.OutputDir)
	fmt.Fprintf(out, "Started:  %s\n", formatTimestamp(run.StartedAt))
	fmt.Fprintf(out, "Finished: %s\n", formatTimestamp(run.FinishedAt))
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
	}
	fmt.Fprintf(out, "Recordings: %d  Processed: %d  Skipped: %d  Fixations: %d\n",
		run.Files, run.Processed, run.Skipped(), run.Fixations)
}

func printRunFiles(out io.Writer, files []results.FileOutcome) {
	if len(files) == 0 {
		fmt.Fprintln(out, "No recordings recorded for this run")
		return
	}
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		layout := f.Layout
		if layout == "" {
			layout = "-"
		}
		rows = append(rows, []string{
			f.Participant,
			f.Trial,
			layout,
			strconv.Itoa(f.Samples),
			colorOutcome(f.Outcome, colorize),
			strconv.Itoa(f.Fixations),
			truncate(f.Detail, 60),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Participant", "Trial", "Layout", "Samples", "Outcome", "Fixations", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	))
}

func printFixationRows(out io.Writer, rows []fixation.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No fixation rows stored for this run")
		return
	}
	headers := fixation.Columns
	aligns := make([]columnAlignment, len(headers))
	for i := range aligns {
		aligns[i] = alignRight
	}
	aligns[len(aligns)-2], aligns[len(aligns)-1] = alignLeft, alignLeft

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	fmt.Fprintln(out, renderTable(headers, records, aligns))
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
