package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gazefix/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		filter logs.Filter
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the gazefix log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()
			out := cmd.OutOrStdout()

			matched, offset, err := logs.Last(path, lines, filter.Match)
			if err != nil {
				return err
			}
			for _, line := range matched {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(matched) == 0 && !filter.Empty() {
					fmt.Fprintln(out, "No matching log lines")
				}
				return nil
			}

			return logs.Follow(cmd.Context(), path, offset, 500*time.Millisecond, func(line string) {
				if filter.Match(line) {
					fmt.Fprintln(out, line)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only show lines for this run ID (prefix allowed)")
	cmd.Flags().StringVar(&filter.Participant, "participant", "", "Only show lines for this participant")
	return cmd
}
