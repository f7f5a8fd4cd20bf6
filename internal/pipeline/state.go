package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"postpilot/internal/services"
)

// ErrHalted is returned when a stage is asked to run after the workflow failed.
var ErrHalted = errors.New("workflow halted")

// State is the record threaded through the stages of one workflow. Stages
// receive a copy and return a new value; use Clone before mutating slices.
type State struct {
	WorkflowID int64  `json:"workflow_id"`
	Query      string `json:"user_query"`
	Step       Step   `json:"current_step"`

	Topic string `json:"topic,omitempty"`
	Scope string `json:"scope,omitempty"`
	Tone  string `json:"tone,omitempty"`

	Candidates []Candidate       `json:"candidates,omitempty"`
	Ranked     []RankedCandidate `json:"ranked_candidates,omitempty"`

	Summary        string   `json:"summary,omitempty"`
	KeyTrends      []string `json:"key_trends,omitempty"`
	ExpertOpinions []string `json:"expert_opinions,omitempty"`

	DraftContent string `json:"draft_content,omitempty"`
	DraftVersion int    `json:"draft_version"`

	ReviewRequested   bool   `json:"review_requested,omitempty"`
	RevisionRequested bool   `json:"revision_requested,omitempty"`
	RevisionFeedback  string `json:"revision_feedback,omitempty"`
	Revisions         int    `json:"revisions,omitempty"`

	Rejected  bool   `json:"rejected,omitempty"`
	Published bool   `json:"published,omitempty"`
	Aborted   bool   `json:"aborted,omitempty"`
	TweetID   string `json:"tweet_id,omitempty"`
	TweetURL  string `json:"tweet_url,omitempty"`

	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewState returns the initial state for a freshly created workflow.
func NewState(workflowID int64, query string) State {
	return State{WorkflowID: workflowID, Query: query, Step: StepStart}
}

// Clone returns a deep copy so callers can mutate slices freely.
func (s State) Clone() State {
	s.Candidates = slices.Clone(s.Candidates)
	s.Ranked = slices.Clone(s.Ranked)
	s.KeyTrends = slices.Clone(s.KeyTrends)
	s.ExpertOpinions = slices.Clone(s.ExpertOpinions)
	s.Warnings = slices.Clone(s.Warnings)
	return s
}

// Failed reports whether a stage recorded an unrecoverable error.
func (s State) Failed() bool {
	return strings.TrimSpace(s.Error) != ""
}

// Terminal reports whether no further stage may run.
func (s State) Terminal() bool {
	return s.Failed() || s.Published || s.Rejected || s.Aborted || s.Step == StepEnd
}

// AwaitingReview reports whether the workflow is parked at the review gate.
func (s State) AwaitingReview() bool {
	return !s.Terminal() && s.Step == StepHumanReview && s.ReviewRequested
}

// Advance moves the state to next, enforcing the step order.
func (s State) Advance(next Step) (State, error) {
	if !s.Step.CanAdvanceTo(next) {
		return s, fmt.Errorf("invalid step transition %s -> %s", s.Step, next)
	}
	s.Step = next
	return s, nil
}

// Fail records err on the state.
func (s State) Fail(err error) State {
	if err == nil {
		return s
	}
	s.Error = err.Error()
	return s
}

// WithWarnings appends warnings to a copy of the state.
func (s State) WithWarnings(warnings ...string) State {
	for _, w := range warnings {
		if w = strings.TrimSpace(w); w != "" {
			s.Warnings = append(slices.Clip(s.Warnings), w)
		}
	}
	return s
}

// Require checks that the fields a stage depends on have been populated.
func (s State) Require(step Step) error {
	if s.Failed() {
		return fmt.Errorf("%w: %s", ErrHalted, s.Error)
	}
	var missing string
	switch step {
	case StepIntent:
		if strings.TrimSpace(s.Query) == "" {
			missing = "user query"
		}
	case StepResearch:
		if s.Step.Order() < StepIntent.Order() || strings.TrimSpace(s.Topic) == "" {
			missing = "topic"
		}
	case StepFilter:
		if s.Step.Order() < StepResearch.Order() {
			missing = "research results"
		}
	case StepSummarize:
		if s.Step.Order() < StepFilter.Order() {
			missing = "ranked candidates"
		}
	case StepDraft:
		if strings.TrimSpace(s.Summary) == "" {
			missing = "summary"
		}
	case StepHumanReview, StepPublish:
		if s.DraftVersion == 0 || strings.TrimSpace(s.DraftContent) == "" {
			missing = "draft"
		}
	}
	if missing != "" {
		return services.Wrap(services.ErrInput, string(step), "precondition", missing+" not available", nil)
	}
	return nil
}
