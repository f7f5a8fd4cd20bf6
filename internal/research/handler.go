package research

import (
	"context"

	"postpilot/internal/pipeline"
	"postpilot/internal/stage"
)

// Handler maps the workflow state onto Research.
type Handler struct {
	researcher *Researcher
	recorder   stage.FallbackRecorder
}

// NewHandler wraps researcher as a stage handler. recorder may be nil.
func NewHandler(researcher *Researcher, recorder stage.FallbackRecorder) *Handler {
	return &Handler{researcher: researcher, recorder: recorder}
}

func (h *Handler) Step() pipeline.Step { return pipeline.StepResearch }

func (h *Handler) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if err := state.Require(pipeline.StepResearch); err != nil {
		return state, err
	}
	result, err := h.researcher.Research(ctx, state.WorkflowID, state.Topic, state.Scope)
	if err != nil {
		return state, err
	}
	if result.Strategy.Fallback {
		stage.RecordFallback(h.recorder, "research", "strategy")
	}
	next, err := state.Advance(pipeline.StepResearch)
	if err != nil {
		return state, err
	}
	next.Candidates = result.Candidates
	return next.WithWarnings(result.Warnings...), nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.researcher.source == nil {
		return stage.Unhealthy("research", "candidate source not configured")
	}
	return stage.Probe(ctx, "research", h.researcher.gen)
}
