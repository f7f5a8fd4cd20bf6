// Package stageexec runs one pipeline stage over a workflow state with the
// shared logging, correlation and timing conventions.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"postpilot/internal/logging"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/stage"
)

// Observer receives the duration and outcome of each stage.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
}

// Options controls a single stage execution.
type Options struct {
	Logger   *slog.Logger
	Observer Observer
	Handler  stage.Handler
	State    pipeline.State
}

// Run executes the handler against a copy of the state. On failure the
// returned state is the input state with the error recorded.
func Run(ctx context.Context, opts Options) (pipeline.State, error) {
	if opts.Handler == nil {
		return opts.State, fmt.Errorf("stage handler unavailable")
	}
	name := string(opts.Handler.Step())

	stageCtx := services.WithStage(services.WithWorkflowID(ctx, opts.State.WorkflowID), name)
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("current_step", string(opts.State.Step)),
		logging.Int("draft_version", opts.State.DraftVersion),
	)
	start := time.Now()
	next, err := opts.Handler.Execute(stageCtx, opts.State.Clone())
	elapsed := time.Since(start)
	if opts.Observer != nil {
		opts.Observer.ObserveStage(name, elapsed, err)
	}
	if err != nil {
		return handleFailure(stageLogger, opts.State, err, elapsed)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_step", string(next.Step)),
		logging.Duration("stage_duration", elapsed),
	}
	if added := len(next.Warnings) - len(opts.State.Warnings); added > 0 {
		attrs = append(attrs, logging.Int("warnings", added))
	}
	stageLogger.Info("stage completed", logging.Args(attrs...)...)
	return next, nil
}

func handleFailure(logger *slog.Logger, state pipeline.State, stageErr error, elapsed time.Duration) (pipeline.State, error) {
	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorKind, services.Kind(stageErr)),
		logging.String(logging.FieldErrorHint, services.Hint(stageErr)),
		logging.Duration("stage_duration", elapsed),
		logging.Error(stageErr),
	)
	return state.Fail(stageErr), stageErr
}
