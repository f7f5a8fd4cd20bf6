package workflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"postpilot/internal/config"
	"postpilot/internal/drafting"
	"postpilot/internal/intent"
	"postpilot/internal/metrics"
	"postpilot/internal/notifications"
	"postpilot/internal/pipeline"
	"postpilot/internal/ranking"
	"postpilot/internal/research"
	"postpilot/internal/review"
	"postpilot/internal/services"
	"postpilot/internal/store"
	"postpilot/internal/summarize"
	"postpilot/internal/testsupport"
	"postpilot/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sentEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{event: event, payload: payload})
	return nil
}

func (n *recordingNotifier) kinds() []notifications.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.Event, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.event)
	}
	return out
}

func (n *recordingNotifier) last() sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

type harness struct {
	cfg       *config.Config
	store     *store.Store
	gen       *testsupport.Generator
	publisher *testsupport.Publisher
	notifier  *recordingNotifier
	metrics   *metrics.Recorder
	manager   *workflow.Manager
}

func scriptedGenerator() *testsupport.Generator {
	return testsupport.NewGenerator().
		Text(intent.Persona, `{"topic":"AI","scope":"latest","tone":"informative"}`).
		Text(research.Persona, `{"subreddits":["artificial"],"search_query":"AI","time_filter":"day"}`).
		Text(ranking.Persona, `{"scores":[{"post_id":"a1","score":0.9,"reason":"core"},{"post_id":"a2","score":0.2}]}`).
		Text(summarize.Persona, `{"summary":"Agents shipped this week","key_trends":["agents"],"expert_opinions":["cautious optimism"]}`).
		On(drafting.Persona,
			testsupport.Reply{Text: "Draft one #AI"},
			testsupport.Reply{Text: "Draft two #AI"},
			testsupport.Reply{Text: "Draft three #AI"},
		)
}

func newHarness(t *testing.T, gen *testsupport.Generator, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	source := testsupport.NewSource().With("artificial",
		testsupport.Candidate("a1", "artificial", 120, 30),
		testsupport.Candidate("a2", "artificial", 300, 10),
	)
	h := &harness{
		cfg:       cfg,
		store:     st,
		gen:       gen,
		publisher: &testsupport.Publisher{},
		notifier:  &recordingNotifier{},
		metrics:   metrics.New(""),
	}
	h.manager = workflow.NewManagerWithOptions(cfg, st, nil, h.notifier, h.metrics)
	h.manager.ConfigureStages(workflow.NewStageSet(cfg, st, workflow.Dependencies{
		Reasoner:  gen,
		Source:    source,
		Publisher: h.publisher,
	}, h.metrics, nil))
	return h
}

func (h *harness) workflowRow(t *testing.T, id int64) *store.Workflow {
	t.Helper()
	wf, err := h.store.GetWorkflow(context.Background(), id)
	if err != nil || wf == nil {
		t.Fatalf("GetWorkflow(%d): %v", id, err)
	}
	return wf
}

func (h *harness) start(t *testing.T) pipeline.State {
	t.Helper()
	state, err := h.manager.Start(context.Background(), "What's new in AI?")
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !state.AwaitingReview() {
		t.Fatalf("expected workflow to await review, got %+v", state)
	}
	return state
}

func TestStartRunsUntilReview(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	state := h.start(t)

	if state.Topic != "AI" || state.DraftVersion != 1 || state.DraftContent != "Draft one #AI" {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(state.Ranked) != 2 || state.Ranked[0].ID != "a1" {
		t.Fatalf("expected a1 ranked first, got %+v", state.Ranked)
	}
	wf := h.workflowRow(t, state.WorkflowID)
	if wf.Status != store.StatusInProgress || wf.CurrentStep != string(pipeline.StepHumanReview) {
		t.Fatalf("unexpected workflow row %+v", wf)
	}
	_, loaded, err := h.manager.Load(context.Background(), state.WorkflowID)
	if err != nil || !loaded.AwaitingReview() || loaded.DraftContent != state.DraftContent {
		t.Fatalf("snapshot did not round-trip: %+v err=%v", loaded, err)
	}
	if kinds := h.notifier.kinds(); len(kinds) != 1 || kinds[0] != notifications.EventReviewRequested {
		t.Fatalf("unexpected notifications %v", kinds)
	}
	if got := h.notifier.last().payload["version"]; got != "1" {
		t.Fatalf("unexpected review payload version %v", got)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

// Stage handlers are shared between workflows, so concurrent starts must not
// leak one workflow's logging context into another. Run with -race.
func TestConcurrentStartsKeepWorkflowContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	source := testsupport.NewSource().With("artificial",
		testsupport.Candidate("a1", "artificial", 120, 30),
		testsupport.Candidate("a2", "artificial", 300, 10),
	)
	logs := &lockedBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	manager := workflow.NewManagerWithOptions(cfg, st, logger, &recordingNotifier{}, nil)
	manager.ConfigureStages(workflow.NewStageSet(cfg, st, workflow.Dependencies{
		Reasoner:  scriptedGenerator(),
		Source:    source,
		Publisher: &testsupport.Publisher{},
	}, nil, logger))

	const runs = 4
	var (
		wg     sync.WaitGroup
		states = make([]pipeline.State, runs)
		errs   = make([]error, runs)
	)
	for i := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			states[i], errs[i] = manager.Start(context.Background(), "What's new in AI?")
		}()
	}
	wg.Wait()

	started := make(map[float64]bool, runs)
	for i := range runs {
		if errs[i] != nil {
			t.Fatalf("Start %d returned error: %v", i, errs[i])
		}
		if !states[i].AwaitingReview() {
			t.Fatalf("Start %d did not reach review: %+v", i, states[i])
		}
		started[float64(states[i].WorkflowID)] = true
	}
	if len(started) != runs {
		t.Fatalf("expected %d distinct workflows, got %v", runs, started)
	}

	ranked := make(map[float64]int)
	for _, entry := range logs.lines(t) {
		if entry["msg"] != "candidates ranked" {
			continue
		}
		id, _ := entry["workflow_id"].(float64)
		if entry["stage"] != string(pipeline.StepFilter) || !started[id] {
			t.Fatalf("ranking log carries wrong context: %v", entry)
		}
		ranked[id]++
	}
	if len(ranked) != runs {
		t.Fatalf("expected one ranking log per workflow, got %v", ranked)
	}
	for id, n := range ranked {
		if n != 1 {
			t.Fatalf("workflow %v logged ranking %d times", id, n)
		}
	}
}

func TestResumeApprovePublishes(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	state := h.start(t)

	done, err := h.manager.Resume(context.Background(), state.WorkflowID, review.Approve())
	if err != nil {
		t.Fatalf("Resume returned error: %v", err)
	}
	if !done.Published || done.TweetURL == "" {
		t.Fatalf("unexpected state %+v", done)
	}
	wf := h.workflowRow(t, state.WorkflowID)
	if wf.Status != store.StatusCompleted || wf.CompletedAt == nil || wf.Error != "" {
		t.Fatalf("unexpected workflow row %+v", wf)
	}
	pub, err := h.store.GetPublication(context.Background(), state.WorkflowID)
	if err != nil || pub == nil || pub.ExternalURL != done.TweetURL {
		t.Fatalf("unexpected publication %+v err=%v", pub, err)
	}
	if h.notifier.last().event != notifications.EventPublished {
		t.Fatalf("expected published notification, got %v", h.notifier.kinds())
	}
	expected := `
# HELP postpilot_workflow_outcomes_total Workflows reaching a terminal or review status.
# TYPE postpilot_workflow_outcomes_total counter
postpilot_workflow_outcomes_total{status="completed"} 1
`
	if err := testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "postpilot_workflow_outcomes_total"); err != nil {
		t.Fatalf("unexpected workflow outcomes: %v", err)
	}
}

func TestReviseLoopsThroughDrafting(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	state := h.start(t)

	revised, err := h.manager.Resume(context.Background(), state.WorkflowID, review.Revise("shorter please"))
	if err != nil {
		t.Fatalf("Resume revise: %v", err)
	}
	if !revised.AwaitingReview() || revised.DraftVersion != 2 || revised.Revisions != 1 {
		t.Fatalf("expected v2 awaiting review, got %+v", revised)
	}
	if revised.DraftContent != "Draft two #AI" || revised.RevisionRequested || revised.RevisionFeedback != "" {
		t.Fatalf("unexpected revised draft %+v", revised)
	}
	feedback, err := h.store.ListFeedback(context.Background(), state.WorkflowID)
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(feedback) != 1 || feedback[0].Type != store.FeedbackRevise || feedback[0].DraftVersion != 1 {
		t.Fatalf("expected a single REVISE row on v1, got %+v", feedback)
	}
	if h.gen.CallCount(intent.Persona) != 1 || h.gen.CallCount(research.Persona) != 1 {
		t.Fatal("revision must not rerun earlier stages")
	}
	if kinds := h.notifier.kinds(); len(kinds) != 2 || kinds[1] != notifications.EventReviewRequested {
		t.Fatalf("expected a second review request, got %v", kinds)
	}

	done, err := h.manager.Resume(context.Background(), state.WorkflowID, review.Approve())
	if err != nil || !done.Published {
		t.Fatalf("approve v2: %+v err=%v", done, err)
	}
	if got := h.publisher.Published(); len(got) != 1 || got[0] != "Draft two #AI" {
		t.Fatalf("expected v2 published, got %v", got)
	}
}

func TestMaxRevisionsExceededFailsWorkflow(t *testing.T) {
	h := newHarness(t, scriptedGenerator(), testsupport.WithMaxRevisions(1))
	state := h.start(t)

	if _, err := h.manager.Resume(context.Background(), state.WorkflowID, review.Revise("again")); err != nil {
		t.Fatalf("first revision: %v", err)
	}
	failed, err := h.manager.Resume(context.Background(), state.WorkflowID, review.Revise("and again"))
	if err != nil {
		t.Fatalf("Resume returned error: %v", err)
	}
	if failed.Error != "max revisions exceeded (1)" {
		t.Fatalf("unexpected error %q", failed.Error)
	}
	wf := h.workflowRow(t, state.WorkflowID)
	if wf.Status != store.StatusFailed || wf.Error != "max revisions exceeded (1)" {
		t.Fatalf("unexpected workflow row %+v", wf)
	}
	if h.notifier.last().event != notifications.EventWorkflowFailed {
		t.Fatalf("expected failure notification, got %v", h.notifier.kinds())
	}
}

func TestRejectFailsWorkflowWithReason(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	state := h.start(t)

	done, err := h.manager.Resume(context.Background(), state.WorkflowID, review.Reject("off topic"))
	if err != nil {
		t.Fatalf("Resume reject: %v", err)
	}
	if !done.Rejected || done.Failed() {
		t.Fatalf("unexpected state %+v", done)
	}
	wf := h.workflowRow(t, state.WorkflowID)
	if wf.Status != store.StatusFailed || wf.Error != "Draft rejected: off topic" {
		t.Fatalf("unexpected workflow row %+v", wf)
	}
	if h.notifier.last().event != notifications.EventRejected {
		t.Fatalf("expected rejection notification, got %v", h.notifier.kinds())
	}
	if _, err := h.manager.Resume(context.Background(), state.WorkflowID, review.Approve()); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected resume of finished workflow to fail, got %v", err)
	}
}

func TestCancelMarksWorkflowCancelled(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	state := h.start(t)

	done, err := h.manager.Cancel(context.Background(), state.WorkflowID)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !done.Aborted || done.Failed() {
		t.Fatalf("unexpected state %+v", done)
	}
	wf := h.workflowRow(t, state.WorkflowID)
	if wf.Status != store.StatusCancelled || wf.Error != "" {
		t.Fatalf("unexpected workflow row %+v", wf)
	}
	if len(h.publisher.Published()) != 0 {
		t.Fatal("cancelled workflow must not publish")
	}
}

func TestResumeHonoursWorkflowLock(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	state := h.start(t)

	held := flock.New(h.manager.LockPath(state.WorkflowID))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	_, err = h.manager.Resume(context.Background(), state.WorkflowID, review.Approve())
	if !errors.Is(err, workflow.ErrWorkflowBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}
	if err := held.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := h.manager.Resume(context.Background(), state.WorkflowID, review.Approve()); err != nil {
		t.Fatalf("Resume after unlock: %v", err)
	}
}

func TestStageFailureIsRecordedOnState(t *testing.T) {
	gen := testsupport.NewGenerator().Text(intent.Persona, "I cannot answer in JSON")
	h := newHarness(t, gen)

	state, err := h.manager.Start(context.Background(), "What's new in AI?")
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !state.Failed() || state.Step != pipeline.StepStart {
		t.Fatalf("expected failure at intent, got %+v", state)
	}
	wf := h.workflowRow(t, state.WorkflowID)
	if wf.Status != store.StatusFailed || !strings.Contains(wf.Error, "decode") {
		t.Fatalf("unexpected workflow row %+v", wf)
	}
	last := h.notifier.last()
	if last.event != notifications.EventWorkflowFailed || last.payload["stage"] != "intent" {
		t.Fatalf("unexpected failure notification %+v", last)
	}
	if gen.CallCount(research.Persona) != 0 {
		t.Fatal("research must not run after a failed stage")
	}
}

func TestStartRejectsBlankQuery(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	if _, err := h.manager.Start(context.Background(), "   "); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if h.gen.CallCount("") != 0 {
		t.Fatal("blank query must not reach the model")
	}
	rows, err := h.store.ListWorkflows(context.Background())
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected no workflow rows, got %d err=%v", len(rows), err)
	}
}

type scriptedReviewer struct {
	decisions []review.Decision
	seen      []int
}

func (r *scriptedReviewer) Review(_ context.Context, state pipeline.State) (review.Decision, error) {
	r.seen = append(r.seen, state.DraftVersion)
	if len(r.decisions) == 0 {
		return review.Decision{}, errors.New("stdin closed")
	}
	next := r.decisions[0]
	r.decisions = r.decisions[1:]
	return next, nil
}

func TestRunLoopsUntilDecisionIsFinal(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	reviewer := &scriptedReviewer{decisions: []review.Decision{
		review.Revise(""),
		review.Revise("punchier"),
		review.Approve(),
	}}

	state, err := h.manager.Run(context.Background(), "What's new in AI?", reviewer)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !state.Published || state.DraftVersion != 2 {
		t.Fatalf("unexpected final state %+v", state)
	}
	if len(reviewer.seen) != 3 || reviewer.seen[0] != 1 || reviewer.seen[1] != 1 || reviewer.seen[2] != 2 {
		t.Fatalf("unexpected review prompts %v", reviewer.seen)
	}
}

func TestRunTreatsReviewerErrorAsCancel(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	state, err := h.manager.Run(context.Background(), "What's new in AI?", &scriptedReviewer{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !state.Aborted {
		t.Fatalf("expected aborted workflow, got %+v", state)
	}
	if wf := h.workflowRow(t, state.WorkflowID); wf.Status != store.StatusCancelled {
		t.Fatalf("unexpected status %s", wf.Status)
	}
}

func TestStatusReportsCountsAndHealth(t *testing.T) {
	h := newHarness(t, scriptedGenerator())
	h.start(t)

	summary := h.manager.Status(context.Background())
	if summary.Counts[store.StatusInProgress] != 1 {
		t.Fatalf("unexpected counts %v", summary.Counts)
	}
	for _, name := range []string{"intent", "research", "filter", "summarize", "draft", "review"} {
		health, ok := summary.StageHealth[name]
		if !ok || !health.Ready {
			t.Fatalf("expected %s to be healthy, got %+v", name, health)
		}
	}
}
