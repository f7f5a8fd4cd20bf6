package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"postpilot/internal/pipeline"
	"postpilot/internal/review"
)

func reviewState() pipeline.State {
	state := pipeline.NewState(1, "AI agents")
	state.Topic = "AI agents"
	state.DraftContent = "Agents are everywhere #AIagents"
	state.DraftVersion = 2
	return state
}

func TestTerminalReviewerDecisions(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  review.Decision
	}{
		{name: "approve", input: "a\n", want: review.Approve()},
		{name: "reject with reason", input: "reject\ntoo vague\n", want: review.Reject("too vague")},
		{name: "reject at eof", input: "r\n", want: review.Reject("")},
		{name: "retries unknown action", input: "maybe\ne\nshorter please\n", want: review.Revise("shorter please")},
		{name: "empty feedback asks again", input: "e\n\napprove\n", want: review.Approve()},
		{name: "blank line asks again", input: "\n\napprove\n", want: review.Approve()},
		{name: "quit cancels", input: "q\n", want: review.Cancel()},
		{name: "unterminated line", input: "y", want: review.Approve()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			reviewer := newTerminalReviewer(strings.NewReader(tc.input), &out, false)
			got, err := reviewer.Review(context.Background(), reviewState())
			if err != nil {
				t.Fatalf("Review returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("decision mismatch (-want +got):\n%s", diff)
			}
			requireContains(t, out.String(), "Draft v2 (31/280 chars)")
		})
	}
}

func TestTerminalReviewerEOF(t *testing.T) {
	reviewer := newTerminalReviewer(strings.NewReader(""), io.Discard, false)
	if _, err := reviewer.Review(context.Background(), reviewState()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestPrintOutcomeAwaitingReview(t *testing.T) {
	state := reviewState()
	state.Step = pipeline.StepHumanReview
	state.ReviewRequested = true

	var out bytes.Buffer
	printOutcome(&out, state, false)
	requireContains(t, out.String(), "Draft v2 awaiting review")
	requireContains(t, out.String(), "postpilot review 1 approve")
}

func TestPrintOutcomePublished(t *testing.T) {
	state := reviewState()
	state.Step = pipeline.StepEnd
	state.Published = true
	state.TweetURL = "https://twitter.com/user/status/1001"

	var out bytes.Buffer
	printOutcome(&out, state, false)
	requireContains(t, out.String(), "[OK] Published https://twitter.com/user/status/1001")
}
