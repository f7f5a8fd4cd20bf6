package research_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"postpilot/internal/pipeline"
	"postpilot/internal/research"
	"postpilot/internal/services"
	"postpilot/internal/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ids(items []pipeline.Candidate) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func callOrigins(calls []testsupport.SourceCall) map[string]testsupport.SourceCall {
	out := make(map[string]testsupport.SourceCall, len(calls))
	for _, c := range calls {
		out[c.Origin] = c
	}
	return out
}

func TestResearchFallsBackToTopicTable(t *testing.T) {
	gen := testsupport.NewGenerator().Fail(research.Persona, nil)
	dupe := testsupport.Candidate("a1", "OpenAI", 999, 0)
	source := testsupport.NewSource().
		With("artificial", testsupport.Candidate("a1", "artificial", 10, 0), testsupport.Candidate("a2", "artificial", 5, 10)).
		With("MachineLearning", testsupport.Candidate("m1", "MachineLearning", 50, 5)).
		With("OpenAI", dupe, testsupport.Candidate("o1", "OpenAI", 25, 0))

	result, err := research.NewResearcher(gen, source, nil, 30, nil).Research(context.Background(), 1, "AI", "today")
	if err != nil {
		t.Fatalf("Research returned error: %v", err)
	}
	if !result.Strategy.Fallback {
		t.Fatal("expected fallback strategy")
	}
	if diff := cmp.Diff([]string{"artificial", "MachineLearning", "OpenAI"}, result.Strategy.Origins); diff != "" {
		t.Fatalf("unexpected origins (-want +got):\n%s", diff)
	}
	calls := callOrigins(source.Calls())
	if len(calls) != 3 {
		t.Fatalf("expected three fetches, got %+v", source.Calls())
	}
	for origin, call := range calls {
		if call.Limit != 15 || call.Recency != "day" || call.Query != "AI" {
			t.Fatalf("unexpected fetch for %s: %+v", origin, call)
		}
	}
	if diff := cmp.Diff([]string{"m1", "a2", "o1", "a1"}, ids(result.Candidates)); diff != "" {
		t.Fatalf("unexpected candidate order (-want +got):\n%s", diff)
	}
	if result.Candidates[3].Votes != 10 {
		t.Fatalf("expected first occurrence of a1 to win, got votes=%d", result.Candidates[3].Votes)
	}
}

func TestResearchUsesModelStrategy(t *testing.T) {
	gen := testsupport.NewGenerator().Text(research.Persona,
		`{"subreddits":["r/golang","golang","bad name!"],"search_query":"","time_filter":"fortnight","reasoning":"go"}`)
	source := testsupport.NewSource().With("golang", testsupport.Candidate("g1", "golang", 3, 1))

	result, err := research.NewResearcher(gen, source, nil, 30, nil).Research(context.Background(), 1, "Go generics", "latest")
	if err != nil {
		t.Fatalf("Research returned error: %v", err)
	}
	if result.Strategy.Fallback {
		t.Fatal("model strategy should be used")
	}
	want := []testsupport.SourceCall{{Origin: "golang", Query: "Go generics", Limit: 35, Recency: "day"}}
	if diff := cmp.Diff(want, source.Calls()); diff != "" {
		t.Fatalf("unexpected fetches (-want +got):\n%s", diff)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].EngagementScore != 5 {
		t.Fatalf("unexpected candidates %+v", result.Candidates)
	}
}

func TestResearchSiteSearchWhenNoOriginUsable(t *testing.T) {
	gen := testsupport.NewGenerator().Text(research.Persona,
		`{"subreddits":["all"],"search_query":"rust async","time_filter":"week"}`)
	source := testsupport.NewSource().With("", testsupport.Candidate("s1", "rust", 7, 0))

	result, err := research.NewResearcher(gen, source, nil, 30, nil).Research(context.Background(), 1, "Rust", "this week")
	if err != nil {
		t.Fatalf("Research returned error: %v", err)
	}
	want := []testsupport.SourceCall{{Origin: "", Query: "rust async", Limit: 30, Recency: "week"}}
	if diff := cmp.Diff(want, source.Calls()); diff != "" {
		t.Fatalf("unexpected fetches (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"s1"}, ids(result.Candidates)); diff != "" {
		t.Fatalf("unexpected candidates (-want +got):\n%s", diff)
	}
}

func TestResearchFailingOriginBecomesWarning(t *testing.T) {
	gen := testsupport.NewGenerator().Text(research.Persona, `{"subreddits":[]}`)
	source := testsupport.NewSource().
		With("CryptoCurrency", testsupport.Candidate("c1", "CryptoCurrency", 4, 0)).
		Failing("Bitcoin", services.Wrap(services.ErrNotFound, "research", "fetch", "r/Bitcoin not found", nil))

	result, err := research.NewResearcher(gen, source, nil, 30, nil).Research(context.Background(), 1, "crypto", "")
	if err != nil {
		t.Fatalf("Research returned error: %v", err)
	}
	if !result.Strategy.Fallback || len(result.Strategy.Origins) != 3 {
		t.Fatalf("expected table fallback for empty origins, got %+v", result.Strategy)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	if diff := cmp.Diff([]string{"c1"}, ids(result.Candidates)); diff != "" {
		t.Fatalf("unexpected candidates (-want +got):\n%s", diff)
	}
}

func TestResearchPersistsIdempotently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	wf := testsupport.NewWorkflow(t, st, "science")

	gen := testsupport.NewGenerator().Text(research.Persona, `{"subreddits":["science"]}`)
	source := testsupport.NewSource().With("science",
		testsupport.Candidate("x1", "science", 1, 1),
		testsupport.Candidate("x2", "science", 2, 2))
	researcher := research.NewResearcher(gen, source, st, 30, nil)

	for i := 0; i < 2; i++ {
		result, err := researcher.Research(context.Background(), wf.ID, "science", "")
		if err != nil {
			t.Fatalf("Research run %d returned error: %v", i, err)
		}
		if len(result.Warnings) != 0 {
			t.Fatalf("run %d: duplicates must not warn, got %v", i, result.Warnings)
		}
	}
	stored, err := st.ListCandidates(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored candidates, got %d", len(stored))
	}
}

func TestResearchRequiresTopic(t *testing.T) {
	gen := testsupport.NewGenerator()
	source := testsupport.NewSource()
	_, err := research.NewResearcher(gen, source, nil, 30, nil).Research(context.Background(), 1, "  ", "")
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if gen.CallCount("") != 0 || len(source.Calls()) != 0 {
		t.Fatal("no collaborator may be called without a topic")
	}
}

func TestFallbackOrigins(t *testing.T) {
	cases := map[string][]string{
		"AI":          {"artificial", "MachineLearning", "OpenAI"},
		"Crypto news": {"CryptoCurrency", "Bitcoin", "ethereum"},
		"tech":        {"technology", "tech", "gadgets"},
		"sport":       {"sports", "nfl", "nba"},
		"US politics": {"politics", "worldnews", "news"},
		"cooking":     {"news", "worldnews"},
		"":            {"news", "worldnews"},
	}
	for topic, want := range cases {
		if diff := cmp.Diff(want, research.FallbackOrigins(topic)); diff != "" {
			t.Fatalf("FallbackOrigins(%q) mismatch (-want +got):\n%s", topic, diff)
		}
	}
}

type countingRecorder struct{ reasons []string }

func (c *countingRecorder) RecordFallback(stage, reason string) {
	c.reasons = append(c.reasons, stage+"/"+reason)
}

func TestHandlerRecordsFallbackAndAdvances(t *testing.T) {
	gen := testsupport.NewGenerator().Text(research.Persona, "no idea")
	source := testsupport.NewSource().With("gaming", testsupport.Candidate("g1", "gaming", 1, 0))
	recorder := &countingRecorder{}
	handler := research.NewHandler(research.NewResearcher(gen, source, nil, 30, nil), recorder)

	state := pipeline.NewState(1, "gaming news")
	state.Step = pipeline.StepIntent
	state.Topic = "gaming"
	next, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if next.Step != pipeline.StepResearch || len(next.Candidates) != 1 {
		t.Fatalf("unexpected state %+v", next)
	}
	if diff := cmp.Diff([]string{"research/strategy"}, recorder.reasons); diff != "" {
		t.Fatalf("unexpected fallbacks (-want +got):\n%s", diff)
	}
}
