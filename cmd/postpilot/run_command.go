package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"postpilot/internal/drafting"
	"postpilot/internal/pipeline"
	"postpilot/internal/review"
	"postpilot/internal/textutil"
	"postpilot/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var interactive bool
	var topK int

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Start a workflow for a query",
		Long: "Resolve the query into a topic, research community posts, rank and summarize them, " +
			"and draft a post. Without --interactive the workflow stops at review; " +
			"decide later with 'postpilot review'.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withSession(sessionOptions{requireLLM: true, topK: topK}, func(s *session) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var (
					state pipeline.State
					err   error
				)
				if interactive {
					reviewer := newTerminalReviewer(cmd.InOrStdin(), out, colorize)
					state, err = s.manager.Run(cmd.Context(), query, reviewer)
				} else {
					state, err = s.manager.Start(cmd.Context(), query)
				}
				if err != nil {
					return err
				}
				printOutcome(out, state, colorize)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Review the draft in this terminal")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of ranked posts to summarize (overrides workflow.top_k)")
	return cmd
}

// printOutcome reports where a workflow ended up after a command.
func printOutcome(out io.Writer, state pipeline.State, colorize bool) {
	status, errText := workflow.StatusOf(state, "")
	label := fmt.Sprintf("Workflow #%d", state.WorkflowID)
	switch {
	case state.Published:
		fmt.Fprintln(out, renderStatusLine(label, statusOK, "Published "+state.TweetURL, colorize))
	case state.Failed():
		fmt.Fprintln(out, renderStatusLine(label, statusError, errText, colorize))
	case state.Rejected:
		fmt.Fprintln(out, renderStatusLine(label, statusError, "Draft rejected", colorize))
	case state.Aborted:
		fmt.Fprintln(out, renderStatusLine(label, statusWarn, "Cancelled", colorize))
	case state.AwaitingReview():
		fmt.Fprintln(out, renderStatusLine(label, statusInfo, fmt.Sprintf("Draft v%d awaiting review", state.DraftVersion), colorize))
		printDraft(out, state, colorize)
		fmt.Fprintf(out, "\nDecide with: postpilot review %d approve | reject [reason] | revise <feedback>\n", state.WorkflowID)
	default:
		fmt.Fprintln(out, renderStatusLine(label, workflowStatusKind(status), statusLabel(status), colorize))
	}
	for _, w := range state.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, w, colorize))
	}
}

func printDraft(out io.Writer, state pipeline.State, colorize bool) {
	title := fmt.Sprintf("Draft v%d (%d/%d chars)", state.DraftVersion, textutil.Length(state.DraftContent), drafting.MaxLength)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, state.DraftContent)
}

// terminalReviewer asks for review decisions on a line-oriented stream.
type terminalReviewer struct {
	in       *bufio.Reader
	out      io.Writer
	colorize bool
}

func newTerminalReviewer(in io.Reader, out io.Writer, colorize bool) *terminalReviewer {
	return &terminalReviewer{in: bufio.NewReader(in), out: out, colorize: colorize}
}

func (r *terminalReviewer) Review(ctx context.Context, state pipeline.State) (review.Decision, error) {
	fmt.Fprintln(r.out)
	if state.Topic != "" {
		fmt.Fprintf(r.out, "Topic: %s\n", state.Topic)
	}
	printDraft(r.out, state, r.colorize)
	for {
		if err := ctx.Err(); err != nil {
			return review.Decision{}, err
		}
		answer, err := r.ask("\n[a]pprove, [r]eject, r[e]vise, [c]ancel: ")
		if err != nil {
			return review.Decision{}, err
		}
		action, err := review.ParseAction(answer)
		if err != nil {
			fmt.Fprintln(r.out, err)
			continue
		}
		switch action {
		case review.ActionReject:
			reason, err := r.ask("Reason (optional): ")
			if err != nil && !errors.Is(err, io.EOF) {
				return review.Decision{}, err
			}
			return review.Reject(reason), nil
		case review.ActionRevise:
			feedback, err := r.ask("What should change? ")
			if err != nil && !errors.Is(err, io.EOF) {
				return review.Decision{}, err
			}
			if strings.TrimSpace(feedback) == "" {
				fmt.Fprintln(r.out, "Revision feedback cannot be empty")
				continue
			}
			return review.Revise(feedback), nil
		default:
			return review.Decision{Action: action}, nil
		}
	}
}

// ask prints prompt and reads one line. A final unterminated line is
// returned without error.
func (r *terminalReviewer) ask(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
