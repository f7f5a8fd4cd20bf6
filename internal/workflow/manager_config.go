package workflow

import (
	"log/slog"

	"postpilot/internal/config"
	"postpilot/internal/drafting"
	"postpilot/internal/intent"
	"postpilot/internal/metrics"
	"postpilot/internal/pipeline"
	"postpilot/internal/ranking"
	"postpilot/internal/research"
	"postpilot/internal/review"
	"postpilot/internal/services/llm"
	"postpilot/internal/stage"
	"postpilot/internal/store"
	"postpilot/internal/summarize"
)

// Dependencies are the external services the default stage set talks to.
type Dependencies struct {
	Reasoner  llm.Generator
	Source    research.Source
	Publisher review.Publisher
}

// NewStageSet builds the production stage handlers from configuration. When
// the reasoner is an *llm.Client each stage samples at its configured
// temperature.
func NewStageSet(cfg *config.Config, st *store.Store, deps Dependencies, recorder *metrics.Recorder, logger *slog.Logger) StageSet {
	temps := cfg.LLM.Temperature
	var fallbacks stage.FallbackRecorder
	if recorder != nil {
		fallbacks = recorder
	}
	return StageSet{
		Intent: intent.NewHandler(intent.NewResolver(
			withTemperature(deps.Reasoner, temps.Intent), st, logger)),
		Research: research.NewHandler(research.NewResearcher(
			withTemperature(deps.Reasoner, temps.Research), deps.Source, st, cfg.Reddit.TotalLimit, logger), fallbacks),
		Filter: ranking.NewHandler(ranking.NewFilter(
			withTemperature(deps.Reasoner, temps.Filter), st, cfg.Workflow.TopK, cfg.Workflow.RelevanceCap, logger), fallbacks),
		Summarize: summarize.NewHandler(summarize.NewSummarizer(
			withTemperature(deps.Reasoner, temps.Summarize), st, logger)),
		Draft: drafting.NewHandler(drafting.NewDrafter(
			withTemperature(deps.Reasoner, temps.Draft), st, logger), fallbacks),
		Gate: review.NewGate(deps.Publisher, st, cfg.Workflow.MaxRevisions, logger),
	}
}

func withTemperature(gen llm.Generator, temperature float64) llm.Generator {
	if client, ok := gen.(*llm.Client); ok {
		return client.WithTemperature(temperature)
	}
	return gen
}

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := make([]pipelineStage, 0, 6)
	add := func(name string, step pipeline.Step, handler stage.Handler) {
		if handler != nil {
			stages = append(stages, pipelineStage{name: name, step: step, handler: handler})
		}
	}
	add("intent", pipeline.StepIntent, set.Intent)
	add("research", pipeline.StepResearch, set.Research)
	add("filter", pipeline.StepFilter, set.Filter)
	add("summarize", pipeline.StepSummarize, set.Summarize)
	add("draft", pipeline.StepDraft, set.Draft)
	if set.Gate != nil {
		add("review", pipeline.StepHumanReview, review.NewHandler(set.Gate))
	}

	m.mu.Lock()
	m.stages = stages
	m.gate = set.Gate
	m.mu.Unlock()
}

// stagesFor returns the stages still to run for state. A pending revision
// re-enters at drafting.
func (m *Manager) stagesFor(state pipeline.State) []pipelineStage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pipelineStage, 0, len(m.stages))
	for _, stg := range m.stages {
		switch {
		case state.RevisionRequested && stg.step.Order() >= pipeline.StepDraft.Order():
			out = append(out, stg)
		case !state.RevisionRequested && stg.step.Order() > state.Step.Order():
			out = append(out, stg)
		}
	}
	return out
}
