package pipeline

import "strings"

// Step identifies the pipeline stage a workflow last reached.
type Step string

const (
	StepStart       Step = "start"
	StepIntent      Step = "intent"
	StepResearch    Step = "research"
	StepFilter      Step = "filter"
	StepSummarize   Step = "summarize"
	StepDraft       Step = "draft"
	StepHumanReview Step = "human_review"
	StepPublish     Step = "publish"
	StepEnd         Step = "end"
)

var stepOrder = map[Step]int{
	StepStart:       0,
	StepIntent:      1,
	StepResearch:    2,
	StepFilter:      3,
	StepSummarize:   4,
	StepDraft:       5,
	StepHumanReview: 6,
	StepPublish:     7,
	StepEnd:         8,
}

// AllSteps returns the steps in pipeline order.
func AllSteps() []Step {
	return []Step{
		StepStart,
		StepIntent,
		StepResearch,
		StepFilter,
		StepSummarize,
		StepDraft,
		StepHumanReview,
		StepPublish,
		StepEnd,
	}
}

// ParseStep converts a persisted step name to a Step.
func ParseStep(value string) (Step, bool) {
	normalized := Step(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := stepOrder[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// Order returns the position of the step in the pipeline, or -1 when unknown.
func (s Step) Order() int {
	if order, ok := stepOrder[s]; ok {
		return order
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next respects the step order.
// Steps only move forward, except that review may loop back to drafting.
func (s Step) CanAdvanceTo(next Step) bool {
	if next.Order() < 0 {
		return false
	}
	if s == StepHumanReview && next == StepDraft {
		return true
	}
	return next.Order() >= s.Order()
}

func (s Step) String() string { return string(s) }
