package drafting

import (
	"context"

	"postpilot/internal/pipeline"
	"postpilot/internal/stage"
)

// Handler maps the workflow state onto Draft, or onto Revise when the
// reviewer asked for changes.
type Handler struct {
	drafter  *Drafter
	recorder stage.FallbackRecorder
}

// NewHandler wraps drafter as a stage handler. recorder may be nil.
func NewHandler(drafter *Drafter, recorder stage.FallbackRecorder) *Handler {
	return &Handler{drafter: drafter, recorder: recorder}
}

func (h *Handler) Step() pipeline.Step { return pipeline.StepDraft }

func (h *Handler) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if state.RevisionRequested {
		return h.revise(ctx, state)
	}
	if err := state.Require(pipeline.StepDraft); err != nil {
		return state, err
	}
	draft, warnings, err := h.drafter.Draft(ctx, state.WorkflowID, DraftInput{
		Topic:       state.Topic,
		Summary:     state.Summary,
		KeyTrends:   state.KeyTrends,
		Tone:        state.Tone,
		PrevVersion: state.DraftVersion,
	})
	if err != nil {
		return state, err
	}
	if draft.Fallback {
		stage.RecordFallback(h.recorder, "draft", "template")
	}
	return h.apply(state, draft, warnings)
}

func (h *Handler) revise(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if err := state.Require(pipeline.StepHumanReview); err != nil {
		return state, err
	}
	draft, warnings, err := h.drafter.Revise(ctx, state.WorkflowID, RevisionInput{
		Current:     state.DraftContent,
		Feedback:    state.RevisionFeedback,
		Topic:       state.Topic,
		Summary:     state.Summary,
		PrevVersion: state.DraftVersion,
	})
	if err != nil {
		return state, err
	}
	next, err := h.apply(state, draft, warnings)
	if err != nil {
		return state, err
	}
	next.Revisions++
	return next, nil
}

func (h *Handler) apply(state pipeline.State, draft pipeline.Draft, warnings stage.Warnings) (pipeline.State, error) {
	next, err := state.Advance(pipeline.StepDraft)
	if err != nil {
		return state, err
	}
	next.DraftContent = draft.Content
	next.DraftVersion = draft.Version
	next.ReviewRequested = false
	next.RevisionRequested = false
	next.RevisionFeedback = ""
	return next.WithWarnings(warnings...), nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Probe(ctx, "draft", h.drafter.gen)
}
