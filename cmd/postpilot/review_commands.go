package main

import (
	"strings"

	"github.com/spf13/cobra"

	"postpilot/internal/review"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Decide on a draft awaiting review",
	}
	cmd.AddCommand(newReviewActionCommand(ctx, "approve <id>", "Publish the current draft", false,
		func(args []string) review.Decision { return review.Approve() }))
	cmd.AddCommand(newReviewActionCommand(ctx, "reject <id> [reason...]", "Reject the current draft", false,
		func(args []string) review.Decision { return review.Reject(strings.Join(args, " ")) }))
	cmd.AddCommand(newReviewActionCommand(ctx, "revise <id> <feedback...>", "Request a new draft version", true,
		func(args []string) review.Decision { return review.Revise(strings.Join(args, " ")) }))
	return cmd
}

// newReviewActionCommand builds one review subcommand. decide receives the
// arguments after the workflow id.
func newReviewActionCommand(ctx *commandContext, use, short string, needsLLM bool, decide func([]string) review.Decision) *cobra.Command {
	minArgs := 1
	if needsLLM {
		minArgs = 2
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(minArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseWorkflowID(args[0])
			if err != nil {
				return err
			}
			decision := decide(args[1:])
			return ctx.withSession(sessionOptions{requireLLM: needsLLM}, func(s *session) error {
				state, err := s.manager.Resume(cmd.Context(), id, decision)
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), state, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a workflow that has not finished",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseWorkflowID(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(sessionOptions{}, func(s *session) error {
				state, err := s.manager.Cancel(cmd.Context(), id)
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), state, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}
