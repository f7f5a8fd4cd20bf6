package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"postpilot/internal/store"
	"postpilot/internal/textutil"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]store.Status, 0, len(statusFlags))
			for _, value := range statusFlags {
				status, ok := store.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}
			return ctx.withSession(sessionOptions{}, func(s *session) error {
				workflows, err := s.store.ListWorkflows(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(workflows) == 0 {
					fmt.Fprintln(out, "No workflows")
					return nil
				}
				rows := make([][]string, 0, len(workflows))
				for _, wf := range workflows {
					rows = append(rows, []string{
						strconv.FormatInt(wf.ID, 10),
						statusLabel(wf.Status),
						textutil.Label(wf.CurrentStep),
						textutil.Fit(wf.Query, 40),
						wf.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Status", "Step", "Query", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil,
		"Filter by status ("+strings.ToLower(joinStatuses(store.AllStatuses()))+")")
	return cmd
}

func joinStatuses(statuses []store.Status) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
