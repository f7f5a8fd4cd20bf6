package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"postpilot/internal/logging"
	"postpilot/internal/pipeline"
	"postpilot/internal/review"
	"postpilot/internal/services"
	"postpilot/internal/stageexec"
	"postpilot/internal/store"
)

// Reviewer supplies review decisions synchronously, typically from a terminal.
type Reviewer interface {
	Review(ctx context.Context, state pipeline.State) (review.Decision, error)
}

// Start creates a workflow for query and runs it until it awaits review or
// fails.
func (m *Manager) Start(ctx context.Context, query string) (pipeline.State, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return pipeline.State{}, services.Wrap(services.ErrInput, "workflow", "start", "query is empty", nil)
	}
	wf, err := m.store.CreateWorkflow(ctx, query)
	if err != nil {
		m.setLastError(err)
		return pipeline.State{}, services.Wrap(services.ErrPersistence, "workflow", "start", "create workflow", err)
	}
	state := pipeline.NewState(wf.ID, query)
	if _, err := m.save(ctx, state, ""); err != nil {
		m.setLastError(err)
		return state, err
	}
	m.logger.Info("workflow started",
		logging.Int64(logging.FieldWorkflowID, wf.ID),
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.String("query", query),
	)
	return m.advance(ctx, state)
}

// Resume applies one review decision to a workflow parked at review. It
// returns either a terminal state or a new state awaiting review.
func (m *Manager) Resume(ctx context.Context, workflowID int64, decision review.Decision) (pipeline.State, error) {
	lock, err := m.acquire(workflowID)
	if err != nil {
		return pipeline.State{}, err
	}
	defer m.release(lock)

	wf, state, err := m.Load(ctx, workflowID)
	if err != nil {
		return state, err
	}
	if wf.Status.IsTerminal() {
		return state, services.Wrap(services.ErrInput, "workflow", "resume",
			fmt.Sprintf("workflow %d is already %s", workflowID, wf.Status), nil)
	}
	gate := m.reviewGate()
	if gate == nil {
		return state, services.Wrap(services.ErrConfiguration, "workflow", "resume", "review gate not configured", nil)
	}

	reviewCtx := services.WithRequestID(services.WithStage(services.WithWorkflowID(ctx, workflowID), "review"), uuid.NewString())
	logger := logging.WithContext(reviewCtx, m.logger)
	logger.Info("review decision received",
		logging.String(logging.FieldEventType, "review_decision"),
		logging.String("action", string(decision.Action)),
		logging.Int("draft_version", state.DraftVersion),
	)

	start := time.Now()
	next, warnings, err := gate.Apply(reviewCtx, state, decision)
	m.metrics.ObserveStage("review", time.Since(start), err)
	if err != nil {
		if errors.Is(err, services.ErrInput) {
			return state, err
		}
		logging.ErrorWithContext(logger, "review decision failed", "review_failure",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.Error(err),
		)
		return m.finish(reviewCtx, state.Fail(err), "review", "")
	}
	next = next.WithWarnings(warnings...)

	switch {
	case next.Rejected:
		return m.finish(reviewCtx, next, "review", review.RejectionMessage(decision.Feedback))
	case next.Terminal():
		return m.finish(reviewCtx, next, "review", "")
	case next.RevisionRequested:
		if _, err := m.save(reviewCtx, next, ""); err != nil {
			m.setLastError(err)
			return next, err
		}
		return m.advance(ctx, next)
	default:
		return next, nil
	}
}

// Cancel abandons a workflow that has not finished yet.
func (m *Manager) Cancel(ctx context.Context, workflowID int64) (pipeline.State, error) {
	lock, err := m.acquire(workflowID)
	if err != nil {
		return pipeline.State{}, err
	}
	defer m.release(lock)

	wf, state, err := m.Load(ctx, workflowID)
	if err != nil {
		return state, err
	}
	if wf.Status.IsTerminal() {
		return state, services.Wrap(services.ErrInput, "workflow", "cancel",
			fmt.Sprintf("workflow %d is already %s", workflowID, wf.Status), nil)
	}
	state.Aborted = true
	state.ReviewRequested = false
	return m.finish(services.WithWorkflowID(ctx, workflowID), state, "", "")
}

// Run starts a workflow and keeps resuming it while reviewer supplies
// decisions. A reviewer error counts as no decision.
func (m *Manager) Run(ctx context.Context, query string, reviewer Reviewer) (pipeline.State, error) {
	state, err := m.Start(ctx, query)
	if err != nil || reviewer == nil {
		return state, err
	}
	for state.AwaitingReview() {
		decision, reviewErr := reviewer.Review(ctx, state)
		if reviewErr != nil {
			m.logger.Warn("reviewer gave no decision; cancelling",
				logging.Int64(logging.FieldWorkflowID, state.WorkflowID),
				logging.Error(reviewErr),
			)
			decision = review.Cancel()
		}
		next, err := m.Resume(ctx, state.WorkflowID, decision)
		if errors.Is(err, services.ErrInput) && next.AwaitingReview() {
			m.logger.Warn("review decision rejected; asking again", logging.Error(err))
			state = next
			continue
		}
		if err != nil {
			return next, err
		}
		state = next
	}
	return state, nil
}

// advance runs the remaining stages until the state awaits review or ends.
func (m *Manager) advance(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	for _, stg := range m.stagesFor(state) {
		next, err := stageexec.Run(ctx, stageexec.Options{
			Logger:   m.logger,
			Observer: m.metrics,
			Handler:  stg.handler,
			State:    state,
		})
		state = next
		if err != nil {
			m.setLastError(err)
			return m.finish(services.WithWorkflowID(ctx, state.WorkflowID), state, stg.name, "")
		}
		if _, err := m.save(ctx, state, ""); err != nil {
			m.setLastError(err)
			return state, err
		}
		if state.AwaitingReview() {
			m.notifyReview(ctx, state)
			return state, nil
		}
	}
	return state, nil
}

// finish persists a terminal state and reports it.
func (m *Manager) finish(ctx context.Context, state pipeline.State, stageName, rejection string) (pipeline.State, error) {
	status, err := m.save(ctx, state, rejection)
	if err != nil {
		m.setLastError(err)
		return state, err
	}
	logger := logging.WithContext(ctx, m.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "workflow_finished"),
		logging.String("status", string(status)),
		logging.Int("draft_version", state.DraftVersion),
		logging.Int("revisions", state.Revisions),
	}
	if status == store.StatusFailed {
		attrs = append(attrs, logging.String("error_message", firstNonEmpty(state.Error, rejection)))
		logger.Warn("workflow finished", logging.Args(attrs...)...)
	} else {
		logger.Info("workflow finished", logging.Args(attrs...)...)
	}

	m.metrics.RecordWorkflow(string(status))
	if err := m.metrics.Flush(); err != nil {
		logging.WarnWithContext(logger, "metrics flush failed", "metrics_flush_failed",
			logging.String(logging.FieldImpact, "textfile metrics are stale"),
			logging.Error(err),
		)
	}
	m.notifyOutcome(ctx, state, stageName)
	return state, nil
}

func (m *Manager) reviewGate() *review.Gate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gate
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
