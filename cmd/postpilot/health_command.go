package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"postpilot/internal/store"
)

// stageOrder lists configured stage names in pipeline order.
var stageOrder = []string{"intent", "research", "filter", "summarize", "draft", "review"}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check stage collaborators and summarize workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(sessionOptions{}, func(s *session) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				summary := s.manager.Status(cmd.Context())

				for _, line := range renderSectionHeader("Stages", colorize) {
					fmt.Fprintln(out, line)
				}
				names := make([]string, 0, len(summary.StageHealth))
				for name := range summary.StageHealth {
					names = append(names, name)
				}
				slices.SortFunc(names, func(a, b string) int {
					return stageRank(a) - stageRank(b)
				})
				for _, name := range names {
					health := summary.StageHealth[name]
					kind, message := statusOK, health.Detail
					if !health.Ready {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(name, kind, message, colorize))
				}

				fmt.Fprintln(out)
				rows := make([][]string, 0, len(store.AllStatuses()))
				for _, status := range store.AllStatuses() {
					rows = append(rows, []string{statusLabel(status), strconv.Itoa(summary.Counts[status])})
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Workflows"}, rows, []columnAlignment{alignLeft, alignRight}))
				if summary.LastError != "" {
					fmt.Fprintln(out, renderStatusLine("Last error", statusError, summary.LastError, colorize))
				}
				return nil
			})
		},
	}
}

func stageRank(name string) int {
	if idx := slices.Index(stageOrder, name); idx >= 0 {
		return idx
	}
	return len(stageOrder)
}
