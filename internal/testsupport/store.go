package testsupport

import (
	"context"
	"testing"

	"postpilot/internal/config"
	"postpilot/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewWorkflow creates a workflow row for tests using the provided store.
func NewWorkflow(t testing.TB, st *store.Store, query string) *store.Workflow {
	t.Helper()

	wf, err := st.CreateWorkflow(context.Background(), query)
	if err != nil {
		t.Fatalf("store.CreateWorkflow: %v", err)
	}
	return wf
}
