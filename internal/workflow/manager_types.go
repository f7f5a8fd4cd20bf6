package workflow

import (
	"postpilot/internal/pipeline"
	"postpilot/internal/review"
	"postpilot/internal/stage"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Intent    stage.Handler
	Research  stage.Handler
	Filter    stage.Handler
	Summarize stage.Handler
	Draft     stage.Handler
	Gate      *review.Gate
}

type pipelineStage struct {
	name    string
	step    pipeline.Step
	handler stage.Handler
}
