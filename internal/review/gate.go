package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"postpilot/internal/logging"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/stage"
	"postpilot/internal/store"
)

// DefaultMaxRevisions caps revision rounds when configuration says nothing.
const DefaultMaxRevisions = 3

// Publisher posts approved text.
type Publisher interface {
	Publish(ctx context.Context, text string) (pipeline.Publication, error)
}

// Store records review outcomes against draft rows.
type Store interface {
	GetDraft(ctx context.Context, workflowID int64, version int) (*store.DraftRecord, error)
	SetDraftStatus(ctx context.Context, draftID int64, status store.DraftStatus) error
	InsertFeedback(ctx context.Context, draftID int64, kind store.FeedbackType, comments string) (int64, error)
	InsertPublication(ctx context.Context, workflowID, draftID int64, externalID, externalURL string) (int64, error)
}

// Gate applies review decisions.
type Gate struct {
	publisher    Publisher
	store        Store
	maxRevisions int
	logger       *slog.Logger
}

// NewGate wires a gate. maxRevisions of 0 allows unlimited revisions; store
// may be nil.
func NewGate(publisher Publisher, store Store, maxRevisions int, logger *slog.Logger) *Gate {
	return &Gate{publisher: publisher, store: store, maxRevisions: max(maxRevisions, 0), logger: stage.Logger(logger)}
}

// MaxRevisions reports the revision cap; 0 means unlimited.
func (g *Gate) MaxRevisions() int { return g.maxRevisions }

// Request parks state at the review gate.
func (g *Gate) Request(state pipeline.State) (pipeline.State, error) {
	if err := state.Require(pipeline.StepHumanReview); err != nil {
		return state, err
	}
	next, err := state.Advance(pipeline.StepHumanReview)
	if err != nil {
		return state, err
	}
	next.ReviewRequested = true
	return next, nil
}

// Apply resolves one decision on a state parked at the gate. A returned
// error means the decision could not be carried out; the caller records it
// on the state.
func (g *Gate) Apply(ctx context.Context, state pipeline.State, decision Decision) (pipeline.State, stage.Warnings, error) {
	if !state.AwaitingReview() {
		return state, nil, services.Wrap(services.ErrInput, "review", string(decision.Action),
			fmt.Sprintf("workflow is not awaiting review (step %s)", state.Step), nil)
	}
	switch decision.Action {
	case ActionApprove:
		return g.approve(ctx, state, decision.Feedback)
	case ActionReject:
		return g.reject(ctx, state, decision.Feedback)
	case ActionRevise:
		return g.revise(ctx, state, decision.Feedback)
	case ActionCancel, "":
		next := state
		next.Aborted = true
		next.ReviewRequested = false
		g.log(ctx).Info("review abandoned", logging.Int("draft_version", state.DraftVersion))
		return next, nil, nil
	default:
		return state, nil, services.Wrap(services.ErrInput, "review", "apply",
			fmt.Sprintf("unknown action %q", decision.Action), nil)
	}
}

// RejectionMessage is the workflow error recorded for a rejected draft.
func RejectionMessage(reason string) string {
	return "Draft rejected: " + rejectionReason(reason)
}

func rejectionReason(reason string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	return "Rejected"
}

func (g *Gate) approve(ctx context.Context, state pipeline.State, comments string) (pipeline.State, stage.Warnings, error) {
	if err := state.Require(pipeline.StepPublish); err != nil {
		return state, nil, err
	}
	if g.publisher == nil {
		return state, nil, services.Wrap(services.ErrConfiguration, "publish", "post", "publisher not configured", nil)
	}
	pub, err := g.publisher.Publish(ctx, state.DraftContent)
	if err != nil {
		return state, nil, services.Wrap(services.ErrService, "publish", "post", "", err)
	}

	next, err := state.Advance(pipeline.StepPublish)
	if err != nil {
		return state, nil, err
	}
	next.Published = true
	next.ReviewRequested = false
	next.TweetID = pub.ID
	next.TweetURL = pub.URL
	g.log(ctx).Info("draft published",
		logging.Int("draft_version", state.DraftVersion),
		logging.String("external_id", pub.ID),
		logging.String("external_url", pub.URL),
	)

	var warnings stage.Warnings
	if draftID, ok := g.draftID(ctx, state, &warnings); ok {
		if strings.TrimSpace(comments) == "" {
			comments = "Approved"
		}
		g.record(ctx, &warnings, "record approval", func() error {
			_, err := g.store.InsertFeedback(ctx, draftID, store.FeedbackApprove, comments)
			return err
		})
		g.record(ctx, &warnings, "mark draft published", func() error {
			return g.store.SetDraftStatus(ctx, draftID, store.DraftStatusPublished)
		})
		g.record(ctx, &warnings, "record publication", func() error {
			_, err := g.store.InsertPublication(ctx, state.WorkflowID, draftID, pub.ID, pub.URL)
			return err
		})
	}
	next, err = next.Advance(pipeline.StepEnd)
	if err != nil {
		return state, nil, err
	}
	return next, warnings, nil
}

func (g *Gate) reject(ctx context.Context, state pipeline.State, reason string) (pipeline.State, stage.Warnings, error) {
	reason = rejectionReason(reason)
	var warnings stage.Warnings
	if draftID, ok := g.draftID(ctx, state, &warnings); ok {
		g.record(ctx, &warnings, "record rejection", func() error {
			_, err := g.store.InsertFeedback(ctx, draftID, store.FeedbackReject, reason)
			return err
		})
		g.record(ctx, &warnings, "mark draft rejected", func() error {
			return g.store.SetDraftStatus(ctx, draftID, store.DraftStatusRejected)
		})
	}
	next, err := state.Advance(pipeline.StepEnd)
	if err != nil {
		return state, nil, err
	}
	next.Rejected = true
	next.ReviewRequested = false
	g.log(ctx).Info("draft rejected", logging.Int("draft_version", state.DraftVersion), logging.String("reason", reason))
	return next, warnings, nil
}

func (g *Gate) revise(ctx context.Context, state pipeline.State, feedback string) (pipeline.State, stage.Warnings, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return state, nil, services.Wrap(services.ErrInput, "review", "revise", "revision feedback is empty", nil)
	}
	if g.maxRevisions > 0 && state.Revisions >= g.maxRevisions {
		return state, nil, fmt.Errorf("max revisions exceeded (%d)", g.maxRevisions)
	}
	var warnings stage.Warnings
	if draftID, ok := g.draftID(ctx, state, &warnings); ok {
		g.record(ctx, &warnings, "record revision request", func() error {
			_, err := g.store.InsertFeedback(ctx, draftID, store.FeedbackRevise, feedback)
			return err
		})
	}
	next := state
	next.RevisionRequested = true
	next.RevisionFeedback = feedback
	g.log(ctx).Info("revision requested", logging.Int("draft_version", state.DraftVersion), logging.Int("revisions", state.Revisions))
	return next, warnings, nil
}

func (g *Gate) draftID(ctx context.Context, state pipeline.State, warnings *stage.Warnings) (int64, bool) {
	if g.store == nil {
		return 0, false
	}
	rec, err := g.store.GetDraft(ctx, state.WorkflowID, state.DraftVersion)
	if err != nil {
		warnings.Persist(g.log(ctx), fmt.Sprintf("load draft v%d", state.DraftVersion), err)
		return 0, false
	}
	if rec == nil {
		warnings.Add("draft v%d has no stored row; review outcome not recorded", state.DraftVersion)
		return 0, false
	}
	return rec.ID, true
}

func (g *Gate) record(ctx context.Context, warnings *stage.Warnings, op string, write func() error) {
	if err := write(); err != nil {
		warnings.Persist(g.log(ctx), op, err)
	}
}

// log stamps the workflow fields carried by ctx onto the base logger.
func (g *Gate) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, g.logger)
}
