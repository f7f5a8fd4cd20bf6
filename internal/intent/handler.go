package intent

import (
	"context"

	"postpilot/internal/pipeline"
	"postpilot/internal/stage"
)

// Handler maps the workflow state onto Resolve.
type Handler struct {
	resolver *Resolver
}

// NewHandler wraps resolver as a stage handler.
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Step reports the step this handler completes.
func (h *Handler) Step() pipeline.Step { return pipeline.StepIntent }

// Execute fills topic, scope, and tone.
func (h *Handler) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if err := state.Require(pipeline.StepIntent); err != nil {
		return state, err
	}
	resolved, warnings, err := h.resolver.Resolve(ctx, state.WorkflowID, state.Query)
	if err != nil {
		return state, err
	}
	next, err := state.Advance(pipeline.StepIntent)
	if err != nil {
		return state, err
	}
	next.Topic = resolved.Topic
	next.Scope = resolved.Scope
	next.Tone = resolved.Tone
	return next.WithWarnings(warnings...), nil
}

// HealthCheck probes the reasoning service.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Probe(ctx, "intent", h.resolver.gen)
}
