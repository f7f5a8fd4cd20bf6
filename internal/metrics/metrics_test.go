package metrics_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"postpilot/internal/metrics"
	"postpilot/internal/services"
	"postpilot/internal/testsupport"
)

func TestObserveStageLabelsOutcomeByKind(t *testing.T) {
	rec := metrics.New("")
	rec.ObserveStage("research", 2*time.Second, nil)
	rec.ObserveStage("research", time.Second, services.Wrap(services.ErrInput, "research", "validate", "no topic", nil))
	rec.ObserveStage("summarize", time.Second, errors.New("boom"))

	expected := `
# HELP postpilot_stage_outcomes_total Stage executions by outcome (ok or error kind).
# TYPE postpilot_stage_outcomes_total counter
postpilot_stage_outcomes_total{outcome="input",stage="research"} 1
postpilot_stage_outcomes_total{outcome="ok",stage="research"} 1
postpilot_stage_outcomes_total{outcome="unknown",stage="summarize"} 1
`
	if err := testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "postpilot_stage_outcomes_total"); err != nil {
		t.Fatalf("unexpected stage outcomes: %v", err)
	}
	count, err := testutil.GatherAndCount(rec.Registry(), "postpilot_stage_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected histograms for two stages, got %d", count)
	}
}

func TestRecordWorkflowAndFallback(t *testing.T) {
	rec := metrics.New("")
	rec.RecordWorkflow("COMPLETED")
	rec.RecordWorkflow("completed")
	rec.RecordFallback("filter", "relevance")

	expected := `
# HELP postpilot_workflow_outcomes_total Workflows reaching a terminal or review status.
# TYPE postpilot_workflow_outcomes_total counter
postpilot_workflow_outcomes_total{status="completed"} 2
# HELP postpilot_fallbacks_total Degraded paths taken instead of failing.
# TYPE postpilot_fallbacks_total counter
postpilot_fallbacks_total{reason="relevance",stage="filter"} 1
`
	if err := testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected),
		"postpilot_workflow_outcomes_total", "postpilot_fallbacks_total"); err != nil {
		t.Fatalf("unexpected counters: %v", err)
	}
}

func TestFlushWritesTextfile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile())
	rec := metrics.NewFromConfig(cfg)
	rec.RecordFallback("research", "strategy")
	if err := rec.Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `postpilot_fallbacks_total{reason="strategy",stage="research"} 1`) {
		t.Fatalf("textfile missing fallback counter:\n%s", data)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *metrics.Recorder
	rec.ObserveStage("draft", time.Second, nil)
	rec.RecordWorkflow("FAILED")
	rec.RecordFallback("draft", "template")
	if err := rec.Flush(); err != nil {
		t.Fatalf("nil Flush returned error: %v", err)
	}
	if err := metrics.New("").Flush(); err != nil {
		t.Fatalf("Flush without textfile returned error: %v", err)
	}
}
