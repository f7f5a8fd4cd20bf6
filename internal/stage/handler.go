package stage

import (
	"context"

	"postpilot/internal/pipeline"
)

// Handler adapts one pipeline stage to the workflow state. Execute receives a
// copy of the state and returns the successor; a non-nil error means the
// stage failed and the returned state is ignored.
type Handler interface {
	Step() pipeline.Step
	Execute(ctx context.Context, state pipeline.State) (pipeline.State, error)
	HealthCheck(ctx context.Context) Health
}

// FallbackRecorder counts degraded paths a stage took instead of failing.
type FallbackRecorder interface {
	RecordFallback(stage, reason string)
}

// RecordFallback forwards to recorder when one is configured.
func RecordFallback(recorder FallbackRecorder, stage, reason string) {
	if recorder != nil {
		recorder.RecordFallback(stage, reason)
	}
}
