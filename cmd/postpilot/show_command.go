package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"postpilot/internal/services"
	"postpilot/internal/store"
	"postpilot/internal/textutil"
)

// workflowDetail is the JSON shape of 'show --json'.
type workflowDetail struct {
	ID          int64                    `json:"id"`
	Query       string                   `json:"query"`
	Status      store.Status             `json:"status"`
	CurrentStep string                   `json:"current_step"`
	Error       string                   `json:"error,omitempty"`
	Intent      *store.IntentRecord      `json:"intent,omitempty"`
	Ranked      []store.RankedSelection  `json:"ranked,omitempty"`
	Insight     *store.InsightRecord     `json:"insight,omitempty"`
	Drafts      []store.DraftRecord      `json:"drafts,omitempty"`
	Feedback    []store.FeedbackRecord   `json:"feedback,omitempty"`
	Publication *store.PublicationRecord `json:"publication,omitempty"`
	Candidates  int                      `json:"candidate_count"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a workflow and everything it produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseWorkflowID(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(sessionOptions{}, func(s *session) error {
				detail, err := loadWorkflowDetail(cmd, s.store, id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, detail)
				}
				renderWorkflowDetail(cmd.OutOrStdout(), detail, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func loadWorkflowDetail(cmd *cobra.Command, st *store.Store, id int64) (*workflowDetail, error) {
	ctx := cmd.Context()
	wf, err := st.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, services.Wrap(services.ErrNotFound, "show", "load workflow", fmt.Sprintf("workflow %d not found", id), nil)
	}
	detail := &workflowDetail{
		ID:          wf.ID,
		Query:       wf.Query,
		Status:      wf.Status,
		CurrentStep: wf.CurrentStep,
		Error:       wf.Error,
	}

	var errs []error
	if detail.Intent, err = st.GetIntent(ctx, id); err != nil {
		errs = append(errs, err)
	}
	candidates, err := st.ListCandidates(ctx, id)
	if err != nil {
		errs = append(errs, err)
	}
	detail.Candidates = len(candidates)
	if detail.Ranked, err = st.ListRankedSelections(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if detail.Insight, err = st.GetInsight(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if detail.Drafts, err = st.ListDrafts(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if detail.Feedback, err = st.ListFeedback(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if detail.Publication, err = st.GetPublication(ctx, id); err != nil {
		errs = append(errs, err)
	}
	return detail, errors.Join(errs...)
}

func renderWorkflowDetail(out io.Writer, d *workflowDetail, colorize bool) {
	status := statusLabel(d.Status)
	fmt.Fprintln(out, renderStatusLine(fmt.Sprintf("Workflow #%d", d.ID), workflowStatusKind(d.Status), status, colorize))
	fmt.Fprintf(out, "%sQuery: %s\n", statusIndent, d.Query)
	fmt.Fprintf(out, "%sStep:  %s\n", statusIndent, textutil.Label(d.CurrentStep))
	if d.Error != "" {
		fmt.Fprintf(out, "%sError: %s\n", statusIndent, d.Error)
	}

	if d.Intent != nil {
		section(out, "Intent", colorize)
		fmt.Fprintf(out, "Topic: %s\nScope: %s\nTone:  %s\n", d.Intent.Topic, d.Intent.Scope, d.Intent.Tone)
	}

	if len(d.Ranked) > 0 {
		section(out, fmt.Sprintf("Ranked posts (%d of %d candidates)", len(d.Ranked), d.Candidates), colorize)
		rows := make([][]string, 0, len(d.Ranked))
		for _, r := range d.Ranked {
			rows = append(rows, []string{
				strconv.Itoa(r.Rank),
				strconv.FormatFloat(r.CombinedScore, 'f', 2, 64),
				strconv.FormatFloat(r.RelevanceScore, 'f', 1, 64),
				r.Origin,
				textutil.Fit(r.Title, 60),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Score", "Relevance", "Origin", "Title"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
		))
	}

	if d.Insight != nil {
		section(out, "Summary", colorize)
		fmt.Fprintln(out, d.Insight.Summary)
		printBullets(out, "Trends", d.Insight.Trends)
		printBullets(out, "Opinions", d.Insight.Opinions)
	}

	if len(d.Drafts) > 0 {
		section(out, "Drafts", colorize)
		rows := make([][]string, 0, len(d.Drafts))
		for _, draft := range d.Drafts {
			rows = append(rows, []string{
				strconv.Itoa(draft.Version),
				textutil.Label(string(draft.Status)),
				strconv.Itoa(textutil.Length(draft.Content)),
				draft.Content,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"v", "Status", "Chars", "Content"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
		))
	}

	if len(d.Feedback) > 0 {
		section(out, "Feedback", colorize)
		rows := make([][]string, 0, len(d.Feedback))
		for _, fb := range d.Feedback {
			rows = append(rows, []string{
				strconv.Itoa(fb.DraftVersion),
				textutil.Label(string(fb.Type)),
				fb.Comments,
			})
		}
		fmt.Fprintln(out, renderTable([]string{"v", "Decision", "Comments"}, rows, []columnAlignment{alignRight}))
	}

	if d.Publication != nil {
		section(out, "Publication", colorize)
		fmt.Fprintf(out, "ID:  %s\nURL: %s\n", d.Publication.ExternalID, d.Publication.ExternalURL)
	}
}

func section(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func printBullets(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			fmt.Fprintf(out, "  - %s\n", item)
		}
	}
}
