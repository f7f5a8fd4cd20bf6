package review

import (
	"context"

	"postpilot/internal/pipeline"
	"postpilot/internal/stage"
)

// Handler parks drafts at the review gate. Decisions arrive later through
// Gate.Apply, outside the stage sequence.
type Handler struct {
	gate *Gate
}

// NewHandler wraps gate as a stage handler.
func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

func (h *Handler) Step() pipeline.Step { return pipeline.StepHumanReview }

func (h *Handler) Execute(_ context.Context, state pipeline.State) (pipeline.State, error) {
	return h.gate.Request(state)
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Probe(ctx, "publish", h.gate.publisher)
}
