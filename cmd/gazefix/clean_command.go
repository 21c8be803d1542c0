package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gazefix/internal/config"
	"gazefix/internal/fileutil"
	"gazefix/internal/gaze"
	"gazefix/internal/recording"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var writePath string

	cmd := &cobra.Command{
		Use:   "clean FILE",
		Short: "Apply the validity rule to one recording and report missing samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve recording path: %w", err)
			}

			rec, err := recording.Load(path, cfg.RecordingOptions())
			if err != nil {
				return fmt.Errorf("load recording: %w", err)
			}
			if len(rec.Samples) == 0 {
				return fmt.Errorf("recording %s has no data rows", path)
			}

			opts := cfg.GazeOptions()
			series, err := gaze.Reconcile(gaze.Input{
				Samples:  gaze.CleanAll(rec.Samples, opts),
				HasLeft:  rec.HasLeft,
				HasRight: rec.HasRight,
				Average:  gaze.CleanPoints(rec.Average, opts),
			})
			if errors.Is(err, gaze.ErrNoChannels) {
				return fmt.Errorf("recording %s has no usable gaze channel", path)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			id := recording.IdentityFor(filepath.Dir(path), filepath.Base(path))
			printCleanReport(out, id.Participant, id.Trial, rec, series, gaze.Summarize(rec.Samples, opts))

			if strings.TrimSpace(writePath) != "" {
				target, err := config.ExpandPath(writePath)
				if err != nil {
					return fmt.Errorf("resolve --write: %w", err)
				}
				if err := fileutil.WriteFile(target, func(w io.Writer) error {
					return series.WriteDelimited(w, '\t')
				}); err != nil {
					return fmt.Errorf("write cleaned series: %w", err)
				}
				fmt.Fprintf(out, "Wrote cleaned series to %s\n", target)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&writePath, "write", "", "Write the cleaned canonical series (tab-delimited) to this path")
	return cmd
}

func printCleanReport(out io.Writer, participant, trial string, rec *recording.Recording, series gaze.Series, stats gaze.Stats) {
	fmt.Fprintf(out, "Participant: %s  Trial: %s\n", participant, trial)
	fmt.Fprintf(out, "Layout: %s  Samples: %d  Duration: %s\n",
		series.Layout, series.Len(), strconv.FormatFloat(series.Duration(), 'f', -1, 64))

	percent := func(n int) string {
		if stats.Samples == 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(stats.Samples))
	}
	rows := [][]string{
		{"Left", yesNo(rec.HasLeft), strconv.Itoa(stats.LeftMissing), percent(stats.LeftMissing)},
		{"Right", yesNo(rec.HasRight), strconv.Itoa(stats.RightMissing), percent(stats.RightMissing)},
		{"Both", "-", strconv.Itoa(stats.BothMissing), percent(stats.BothMissing)},
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Eye", "Present", "Missing", "Share"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))
}
