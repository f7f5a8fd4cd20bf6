package main

import (
	"fmt"
	"strings"
	"testing"

	"postpilot/internal/store"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Workflow #1", statusError, "Draft rejected", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Workflow #1:", "[ERROR] Draft rejected")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Workflow #1", statusOK, "Published", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestWorkflowStatusKind(t *testing.T) {
	cases := map[store.Status]statusKind{
		store.StatusCompleted:  statusOK,
		store.StatusFailed:     statusError,
		store.StatusCancelled:  statusWarn,
		store.StatusInProgress: statusInfo,
		store.StatusPending:    statusInfo,
	}
	for status, want := range cases {
		if got := workflowStatusKind(status); got != want {
			t.Fatalf("workflowStatusKind(%s) = %v, want %v", status, got, want)
		}
	}
	if got := statusLabel(store.StatusInProgress); got != "In Progress" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"ID", "Query"}, [][]string{{"1"}, {"2", "rust"}}, []columnAlignment{alignRight})
	for _, want := range []string{"ID", "Query", "rust"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
