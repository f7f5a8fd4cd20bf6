package summarize_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/summarize"
	"postpilot/internal/testsupport"
)

func ranked(items ...pipeline.Candidate) []pipeline.RankedCandidate {
	out := make([]pipeline.RankedCandidate, 0, len(items))
	for _, c := range items {
		out = append(out, pipeline.RankedCandidate{Candidate: c, RelevanceScore: 0.5})
	}
	return out
}

func TestSummarizeEmptyInputMakesNoCall(t *testing.T) {
	gen := testsupport.NewGenerator()
	_, _, err := summarize.NewSummarizer(gen, nil, nil).Summarize(context.Background(), 1, "AI", nil)
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if gen.CallCount("") != 0 {
		t.Fatalf("expected no generator calls, got %d", gen.CallCount(""))
	}
}

func TestDigestFormatsCandidates(t *testing.T) {
	titleOnly := testsupport.Candidate("t", "news", 1, 0)
	titleOnly.Content = titleOnly.Title
	long := testsupport.Candidate("l", "science", 1, 0)
	long.Content = long.Title + "\n\n" + strings.Repeat("x", 250)

	got := summarize.Digest(ranked(testsupport.Candidate("a", "artificial", 1, 0), titleOnly, long))
	want := strings.Join([]string{
		"1. [artificial] Post a",
		"   Body of a...",
		"2. [news] Post t",
		"3. [science] Post l",
		"   " + strings.Repeat("x", 200) + "...",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected digest (-want +got):\n%s", diff)
	}
}

func TestSummarizePersistsInsight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	wf := testsupport.NewWorkflow(t, st, "AI")

	gen := testsupport.NewGenerator().Text(summarize.Persona,
		"Here is the analysis:\n```json\n"+`{"summary":" Labs ship agents. ","key_trends":["agents"," ","evals"],"expert_opinions":["cautious optimism"]}`+"\n```")
	insight, warnings, err := summarize.NewSummarizer(gen, st, nil).Summarize(context.Background(), wf.ID, "AI",
		ranked(testsupport.Candidate("a", "artificial", 1, 0)))
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	want := pipeline.Insight{Summary: "Labs ship agents.", KeyTrends: []string{"agents", "evals"}, ExpertOpinions: []string{"cautious optimism"}}
	if diff := cmp.Diff(want, insight); diff != "" {
		t.Fatalf("unexpected insight (-want +got):\n%s", diff)
	}
	if prompt := gen.Calls()[0].Prompt; !strings.Contains(prompt, "Topic: AI") || !strings.Contains(prompt, "1. [artificial] Post a") {
		t.Fatalf("prompt missing digest: %q", prompt)
	}

	rec, err := st.GetInsight(context.Background(), wf.ID)
	if err != nil || rec == nil {
		t.Fatalf("GetInsight: rec=%v err=%v", rec, err)
	}
	if diff := cmp.Diff([]string{"agents", "evals"}, rec.Trends); diff != "" {
		t.Fatalf("unexpected stored trends (-want +got):\n%s", diff)
	}
}

func TestSummarizeClassifiesFailures(t *testing.T) {
	input := ranked(testsupport.Candidate("a", "x", 1, 0))

	gen := testsupport.NewGenerator().Text(summarize.Persona, "no json here")
	if _, _, err := summarize.NewSummarizer(gen, nil, nil).Summarize(context.Background(), 1, "AI", input); !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}

	gen = testsupport.NewGenerator().Text(summarize.Persona, `{"summary":"","key_trends":["x"]}`)
	if _, _, err := summarize.NewSummarizer(gen, nil, nil).Summarize(context.Background(), 1, "AI", input); !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode error for blank summary, got %v", err)
	}

	gen = testsupport.NewGenerator().Fail(summarize.Persona, nil)
	if _, _, err := summarize.NewSummarizer(gen, nil, nil).Summarize(context.Background(), 1, "AI", input); !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestHandlerRequiresFilterStep(t *testing.T) {
	gen := testsupport.NewGenerator().Text(summarize.Persona, `{"summary":"s","key_trends":[],"expert_opinions":[]}`)
	handler := summarize.NewHandler(summarize.NewSummarizer(gen, nil, nil))

	early := pipeline.NewState(1, "q")
	early.Step = pipeline.StepResearch
	if _, err := handler.Execute(context.Background(), early); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	ready := early
	ready.Step = pipeline.StepFilter
	ready.Ranked = ranked(testsupport.Candidate("a", "x", 1, 0))
	next, err := handler.Execute(context.Background(), ready)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if next.Step != pipeline.StepSummarize || next.Summary != "s" {
		t.Fatalf("unexpected state %+v", next)
	}
}
