package ranking

import (
	"context"

	"postpilot/internal/pipeline"
	"postpilot/internal/stage"
)

// Handler maps the workflow state onto Rank.
type Handler struct {
	filter   *Filter
	recorder stage.FallbackRecorder
}

// NewHandler wraps filter as a stage handler. recorder may be nil.
func NewHandler(filter *Filter, recorder stage.FallbackRecorder) *Handler {
	return &Handler{filter: filter, recorder: recorder}
}

func (h *Handler) Step() pipeline.Step { return pipeline.StepFilter }

func (h *Handler) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if err := state.Require(pipeline.StepFilter); err != nil {
		return state, err
	}
	result := h.filter.Rank(ctx, state.WorkflowID, state.Topic, state.Candidates)
	if result.Fallback {
		stage.RecordFallback(h.recorder, "filter", "relevance")
	}
	next, err := state.Advance(pipeline.StepFilter)
	if err != nil {
		return state, err
	}
	next.Ranked = result.Ranked
	return next.WithWarnings(result.Warnings...), nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Probe(ctx, "filter", h.filter.gen)
}
