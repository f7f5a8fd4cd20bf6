package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/store"
)

// StatusOf maps a state onto the persisted workflow status and error text.
// rejection is the reviewer's reason when the draft was rejected.
func StatusOf(state pipeline.State, rejection string) (store.Status, string) {
	switch {
	case state.Published:
		return store.StatusCompleted, ""
	case state.Failed():
		return store.StatusFailed, state.Error
	case state.Rejected:
		return store.StatusFailed, rejection
	case state.Aborted:
		return store.StatusCancelled, ""
	default:
		return store.StatusInProgress, ""
	}
}

// save checkpoints state. A failed snapshot is a hard error because resume
// depends on it.
func (m *Manager) save(ctx context.Context, state pipeline.State, rejection string) (store.Status, error) {
	status, errText := StatusOf(state, rejection)
	payload, err := json.Marshal(state)
	if err != nil {
		return status, services.Wrap(services.ErrPersistence, "workflow", "snapshot", "encode state", err)
	}
	if err := m.store.SaveSnapshot(ctx, state.WorkflowID, store.Snapshot{
		Status:      status,
		CurrentStep: string(state.Step),
		StateJSON:   payload,
		Error:       errText,
	}); err != nil {
		return status, services.Wrap(services.ErrPersistence, "workflow", "snapshot", "", err)
	}
	return status, nil
}

// Load returns the persisted workflow row and its decoded snapshot.
func (m *Manager) Load(ctx context.Context, workflowID int64) (*store.Workflow, pipeline.State, error) {
	wf, err := m.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, pipeline.State{}, err
	}
	if wf == nil {
		return nil, pipeline.State{}, services.Wrap(services.ErrNotFound, "workflow", "load",
			fmt.Sprintf("workflow %d not found", workflowID), nil)
	}
	if strings.TrimSpace(wf.StateJSON) == "" {
		return wf, pipeline.NewState(wf.ID, wf.Query), nil
	}
	var state pipeline.State
	if err := json.Unmarshal([]byte(wf.StateJSON), &state); err != nil {
		return wf, pipeline.State{}, services.Wrap(services.ErrDecode, "workflow", "load", "decode snapshot", err)
	}
	state.WorkflowID = wf.ID
	return wf, state, nil
}
