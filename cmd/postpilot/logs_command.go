package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"postpilot/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines    int
		follow   bool
		workflow string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var id int64
			if strings.TrimSpace(workflow) != "" {
				if id, err = parseWorkflowID(workflow); err != nil {
					return err
				}
			}

			match := logs.ForWorkflow(id)
			out := cmd.OutOrStdout()
			recent, offset, err := logs.Last(cfg.LogPath(), lines, match)
			if err != nil {
				return err
			}
			for _, line := range recent {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), cfg.LogPath(), offset, 250*time.Millisecond, match, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Only show lines for this workflow id")
	return cmd
}
