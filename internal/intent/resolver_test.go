package intent_test

import (
	"context"
	"errors"
	"testing"

	"postpilot/internal/intent"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/testsupport"
)

func TestResolveAppliesDefaultsAndPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	wf := testsupport.NewWorkflow(t, st, "What's new in AI?")

	gen := testsupport.NewGenerator().Text(intent.Persona, `{"topic":"AI","scope":"","tone":null}`)
	resolver := intent.NewResolver(gen, st, nil)

	got, warnings, err := resolver.Resolve(context.Background(), wf.ID, "  What's new in AI?  ")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	if got.Topic != "AI" || got.Scope != intent.DefaultScope || got.Tone != intent.DefaultTone {
		t.Fatalf("unexpected intent %+v", got)
	}
	if calls := gen.Calls(); len(calls) != 1 || calls[0].Prompt != "What's new in AI?" {
		t.Fatalf("unexpected generator calls %+v", calls)
	}

	rec, err := st.GetIntent(context.Background(), wf.ID)
	if err != nil || rec == nil {
		t.Fatalf("GetIntent: rec=%v err=%v", rec, err)
	}
	if rec.Topic != "AI" || rec.RawText == "" {
		t.Fatalf("unexpected stored intent %+v", rec)
	}
}

func TestResolveEmptyQueryMakesNoCall(t *testing.T) {
	gen := testsupport.NewGenerator()
	_, _, err := intent.NewResolver(gen, nil, nil).Resolve(context.Background(), 1, " \t ")
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if gen.CallCount("") != 0 {
		t.Fatalf("expected no generator calls, got %d", gen.CallCount(""))
	}
}

func TestResolveRejectsUnusableReplies(t *testing.T) {
	for name, text := range map[string]string{
		"not json":    "I think the topic is AI",
		"blank topic": `{"topic":"  ","scope":"today"}`,
	} {
		t.Run(name, func(t *testing.T) {
			gen := testsupport.NewGenerator().Text(intent.Persona, text)
			_, _, err := intent.NewResolver(gen, nil, nil).Resolve(context.Background(), 1, "query")
			if !errors.Is(err, services.ErrDecode) {
				t.Fatalf("expected decode error, got %v", err)
			}
		})
	}
}

type failingStore struct{}

func (failingStore) InsertIntent(context.Context, int64, pipeline.Intent) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestHandlerAdvancesStateAndKeepsWarnings(t *testing.T) {
	gen := testsupport.NewGenerator().Text(intent.Persona, "```json\n{\"topic\":\"crypto\",\"scope\":\"today\",\"tone\":\"neutral\"}\n```")
	handler := intent.NewHandler(intent.NewResolver(gen, failingStore{}, nil))

	next, err := handler.Execute(context.Background(), pipeline.NewState(9, "crypto today"))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if next.Step != pipeline.StepIntent || next.Topic != "crypto" || next.Scope != "today" || next.Tone != "neutral" {
		t.Fatalf("unexpected state %+v", next)
	}
	if len(next.Warnings) != 1 {
		t.Fatalf("expected one persistence warning, got %v", next.Warnings)
	}
	if h := handler.HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected healthy stage, got %+v", h)
	}
}

func TestHandlerRefusesFailedState(t *testing.T) {
	gen := testsupport.NewGenerator()
	handler := intent.NewHandler(intent.NewResolver(gen, nil, nil))
	state := pipeline.NewState(1, "query")
	state.Error = "earlier failure"
	if _, err := handler.Execute(context.Background(), state); !errors.Is(err, pipeline.ErrHalted) {
		t.Fatalf("expected halted error, got %v", err)
	}
	if gen.CallCount("") != 0 {
		t.Fatal("failed state must not reach the generator")
	}
}
