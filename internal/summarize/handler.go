package summarize

import (
	"context"

	"postpilot/internal/pipeline"
	"postpilot/internal/stage"
)

// Handler maps the workflow state onto Summarize.
type Handler struct {
	summarizer *Summarizer
}

// NewHandler wraps summarizer as a stage handler.
func NewHandler(summarizer *Summarizer) *Handler {
	return &Handler{summarizer: summarizer}
}

func (h *Handler) Step() pipeline.Step { return pipeline.StepSummarize }

func (h *Handler) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if err := state.Require(pipeline.StepSummarize); err != nil {
		return state, err
	}
	insight, warnings, err := h.summarizer.Summarize(ctx, state.WorkflowID, state.Topic, state.Ranked)
	if err != nil {
		return state, err
	}
	next, err := state.Advance(pipeline.StepSummarize)
	if err != nil {
		return state, err
	}
	next.Summary = insight.Summary
	next.KeyTrends = insight.KeyTrends
	next.ExpertOpinions = insight.ExpertOpinions
	return next.WithWarnings(warnings...), nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Probe(ctx, "summarize", h.summarizer.gen)
}
