package review_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"postpilot/internal/drafting"
	"postpilot/internal/pipeline"
	"postpilot/internal/review"
	"postpilot/internal/services"
	"postpilot/internal/store"
	"postpilot/internal/testsupport"
)

type fixture struct {
	store     *store.Store
	publisher *testsupport.Publisher
	gate      *review.Gate
	state     pipeline.State
}

// newFixture returns a state parked at review with draft v1 stored.
func newFixture(t *testing.T, maxRevisions int) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	wf := testsupport.NewWorkflow(t, st, "AI news")
	if _, err := st.InsertDraft(context.Background(), wf.ID, 1, "First take #AI"); err != nil {
		t.Fatalf("InsertDraft: %v", err)
	}
	pub := &testsupport.Publisher{}
	gate := review.NewGate(pub, st, maxRevisions, nil)

	state := pipeline.NewState(wf.ID, "AI news")
	state.Step = pipeline.StepDraft
	state.Topic = "AI"
	state.Summary = "Agents shipped"
	state.DraftContent = "First take #AI"
	state.DraftVersion = 1
	parked, err := gate.Request(state)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !parked.AwaitingReview() {
		t.Fatalf("expected state to await review, got %+v", parked)
	}
	return &fixture{store: st, publisher: pub, gate: gate, state: parked}
}

func (f *fixture) feedback(t *testing.T) []store.FeedbackRecord {
	t.Helper()
	rows, err := f.store.ListFeedback(context.Background(), f.state.WorkflowID)
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	return rows
}

func (f *fixture) draftStatus(t *testing.T, version int) store.DraftStatus {
	t.Helper()
	rec, err := f.store.GetDraft(context.Background(), f.state.WorkflowID, version)
	if err != nil || rec == nil {
		t.Fatalf("GetDraft v%d: %v", version, err)
	}
	return rec.Status
}

func TestRequestRequiresDraft(t *testing.T) {
	gate := review.NewGate(nil, nil, 0, nil)
	state := pipeline.NewState(1, "q")
	state.Step = pipeline.StepDraft
	if _, err := gate.Request(state); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestApprovePublishesDraft(t *testing.T) {
	f := newFixture(t, review.DefaultMaxRevisions)
	next, warnings, err := f.gate.Apply(context.Background(), f.state, review.Approve())
	if err != nil {
		t.Fatalf("Apply approve: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	if !next.Published || next.TweetID != "1001" || next.Step != pipeline.StepEnd || next.ReviewRequested {
		t.Fatalf("unexpected state %+v", next)
	}
	if got := f.publisher.Published(); len(got) != 1 || got[0] != "First take #AI" {
		t.Fatalf("unexpected published texts %v", got)
	}
	if status := f.draftStatus(t, 1); status != store.DraftStatusPublished {
		t.Fatalf("expected PUBLISHED draft, got %s", status)
	}
	pub, err := f.store.GetPublication(context.Background(), f.state.WorkflowID)
	if err != nil || pub == nil {
		t.Fatalf("GetPublication: %v", err)
	}
	if pub.ExternalID != "1001" || !strings.HasSuffix(pub.ExternalURL, "/1001") {
		t.Fatalf("unexpected publication %+v", pub)
	}
	rows := f.feedback(t)
	if len(rows) != 1 || rows[0].Type != store.FeedbackApprove || rows[0].Comments != "Approved" {
		t.Fatalf("unexpected feedback %+v", rows)
	}
}

func TestApprovePublishFailureLeavesNoPublication(t *testing.T) {
	f := newFixture(t, 0)
	f.publisher.Err = errors.New("rate limited")
	next, _, err := f.gate.Apply(context.Background(), f.state, review.Approve())
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}
	if next.Published || !next.AwaitingReview() {
		t.Fatalf("state should be unchanged on failure: %+v", next)
	}
	pub, err := f.store.GetPublication(context.Background(), f.state.WorkflowID)
	if err != nil || pub != nil {
		t.Fatalf("expected no publication, got %+v err=%v", pub, err)
	}
}

func TestRejectClosesDraft(t *testing.T) {
	f := newFixture(t, 0)
	next, _, err := f.gate.Apply(context.Background(), f.state, review.Reject("  "))
	if err != nil {
		t.Fatalf("Apply reject: %v", err)
	}
	if !next.Rejected || !next.Terminal() || next.Published {
		t.Fatalf("unexpected state %+v", next)
	}
	if status := f.draftStatus(t, 1); status != store.DraftStatusRejected {
		t.Fatalf("expected REJECTED draft, got %s", status)
	}
	rows := f.feedback(t)
	if len(rows) != 1 || rows[0].Type != store.FeedbackReject || rows[0].Comments != "Rejected" {
		t.Fatalf("unexpected feedback %+v", rows)
	}
	if got := review.RejectionMessage("off topic"); got != "Draft rejected: off topic" {
		t.Fatalf("unexpected rejection message %q", got)
	}
	if len(f.publisher.Published()) != 0 {
		t.Fatal("rejected draft must not be published")
	}
}

func TestReviseLoopProducesNextVersion(t *testing.T) {
	f := newFixture(t, review.DefaultMaxRevisions)
	next, _, err := f.gate.Apply(context.Background(), f.state, review.Revise("more concise"))
	if err != nil {
		t.Fatalf("Apply revise: %v", err)
	}
	if !next.RevisionRequested || next.RevisionFeedback != "more concise" {
		t.Fatalf("unexpected state %+v", next)
	}

	gen := testsupport.NewGenerator().Text(drafting.Persona, "Agents, briefly. #AI")
	redraft := drafting.NewHandler(drafting.NewDrafter(gen, f.store, nil), nil)
	revised, err := redraft.Execute(context.Background(), next)
	if err != nil {
		t.Fatalf("revise draft: %v", err)
	}
	if revised.DraftVersion != 2 || revised.Revisions != 1 || revised.RevisionRequested {
		t.Fatalf("unexpected revised state %+v", revised)
	}
	if !strings.Contains(gen.Calls()[0].Prompt, "more concise") {
		t.Fatalf("revision prompt should carry feedback: %q", gen.Calls()[0].Prompt)
	}

	rows := f.feedback(t)
	if len(rows) != 1 || rows[0].Type != store.FeedbackRevise || rows[0].DraftVersion != 1 {
		t.Fatalf("expected one REVISE row against v1, got %+v", rows)
	}
	drafts, err := f.store.ListDrafts(context.Background(), f.state.WorkflowID)
	if err != nil || len(drafts) != 2 || drafts[1].Content != "Agents, briefly. #AI" {
		t.Fatalf("unexpected drafts %+v err=%v", drafts, err)
	}

	parked, err := f.gate.Request(revised)
	if err != nil {
		t.Fatalf("Request after revision: %v", err)
	}
	done, _, err := f.gate.Apply(context.Background(), parked, review.Approve())
	if err != nil || !done.Published {
		t.Fatalf("approve v2: state=%+v err=%v", done, err)
	}
	if got := f.publisher.Published(); len(got) != 1 || got[0] != "Agents, briefly. #AI" {
		t.Fatalf("expected v2 to be published, got %v", got)
	}
}

func TestReviseRespectsCap(t *testing.T) {
	f := newFixture(t, 2)
	f.state.Revisions = 2
	_, _, err := f.gate.Apply(context.Background(), f.state, review.Revise("again"))
	if err == nil || err.Error() != "max revisions exceeded (2)" {
		t.Fatalf("expected cap error, got %v", err)
	}
	if rows := f.feedback(t); len(rows) != 0 {
		t.Fatalf("capped revision must not record feedback: %+v", rows)
	}

	unlimited := review.NewGate(nil, nil, 0, nil)
	state := f.state
	state.Revisions = 50
	if _, _, err := unlimited.Apply(context.Background(), state, review.Revise("again")); err != nil {
		t.Fatalf("unlimited gate should allow revision: %v", err)
	}
}

func TestReviseRequiresFeedback(t *testing.T) {
	f := newFixture(t, 0)
	if _, _, err := f.gate.Apply(context.Background(), f.state, review.Revise(" ")); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestCancelAbortsWithoutWrites(t *testing.T) {
	f := newFixture(t, 0)
	next, _, err := f.gate.Apply(context.Background(), f.state, review.Cancel())
	if err != nil {
		t.Fatalf("Apply cancel: %v", err)
	}
	if !next.Aborted || !next.Terminal() {
		t.Fatalf("unexpected state %+v", next)
	}
	if rows := f.feedback(t); len(rows) != 0 {
		t.Fatalf("cancel must not record feedback: %+v", rows)
	}
	if _, _, err := f.gate.Apply(context.Background(), next, review.Approve()); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected decisions on terminal state to fail, got %v", err)
	}
}

func TestParseAction(t *testing.T) {
	for input, want := range map[string]review.Action{
		"approve": review.ActionApprove,
		"Y":       review.ActionApprove,
		"reject":  review.ActionReject,
		"edit":    review.ActionRevise,
		"q":       review.ActionCancel,
	} {
		got, err := review.ParseAction(input)
		if err != nil || got != want {
			t.Fatalf("ParseAction(%q) = %q, %v", input, got, err)
		}
	}
	for _, input := range []string{"maybe", "", "   "} {
		if _, err := review.ParseAction(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
