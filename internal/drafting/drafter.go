package drafting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"postpilot/internal/logging"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/services/llm"
	"postpilot/internal/stage"
	"postpilot/internal/store"
	"postpilot/internal/textutil"
)

const (
	// MaxLength is the post budget in runes.
	MaxLength = 280
	// DefaultTone applies when no tone was resolved.
	DefaultTone = "informative"

	promptTrends = 3
)

// Persona instructs the model to write a single post.
const Persona = `You write social media posts that people want to read and share.

From the topic, summary, and trends you are given, write one post that:
- fits in 280 characters and uses most of them
- opens with a hook: a question, a number, or a bold claim
- packs in more than one insight
- carries two or three relevant hashtags and at most two emojis
- sounds like a person, not a press release

Reply with the post text only. No quotes, no labels, no explanation.`

// Store persists draft versions.
type Store interface {
	InsertDraft(ctx context.Context, workflowID int64, version int, content string) (int64, error)
}

// Drafter composes drafts.
type Drafter struct {
	gen    llm.Generator
	store  Store
	logger *slog.Logger
}

// NewDrafter wires a drafter. store may be nil.
func NewDrafter(gen llm.Generator, store Store, logger *slog.Logger) *Drafter {
	return &Drafter{gen: gen, store: store, logger: stage.Logger(logger)}
}

// DraftInput carries what the initial draft is built from.
type DraftInput struct {
	Topic       string
	Summary     string
	KeyTrends   []string
	Tone        string
	PrevVersion int
}

// RevisionInput carries what a revision is built from.
type RevisionInput struct {
	Current     string
	Feedback    string
	Topic       string
	Summary     string
	PrevVersion int
}

// Draft writes version PrevVersion+1. Model failures fall back to the
// summary template and set Draft.Fallback.
func (d *Drafter) Draft(ctx context.Context, workflowID int64, in DraftInput) (pipeline.Draft, stage.Warnings, error) {
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		return pipeline.Draft{}, nil, services.Wrap(services.ErrInput, "draft", "compose", "no summary available", nil)
	}
	tone := strings.TrimSpace(in.Tone)
	if tone == "" {
		tone = DefaultTone
	}

	trends := in.KeyTrends[:min(len(in.KeyTrends), promptTrends)]
	var lines strings.Builder
	for _, trend := range trends {
		fmt.Fprintf(&lines, "- %s\n", trend)
	}
	prompt := fmt.Sprintf("Topic: %s\nTone: %s\n\nSummary: %s\n\nKey trends:\n%s\nWrite the post, aiming for 220 to 280 characters.",
		strings.TrimSpace(in.Topic), tone, summary, lines.String())

	draft := pipeline.Draft{Version: in.PrevVersion + 1}
	text, err := d.gen.Generate(ctx, Persona, prompt)
	if err == nil {
		draft.Content = textutil.CleanGenerated(text, MaxLength)
	}
	if err != nil || draft.Content == "" {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pipeline.Draft{}, nil, ctxErr
		}
		if err == nil {
			err = errors.New("empty reply")
		}
		logging.WarnWithContext(d.log(ctx), "draft generation failed; using summary template", "draft_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldImpact, "draft built from summary and topic hashtag"),
		)
		draft.Content = Fallback(summary, in.Topic)
		draft.Fallback = true
	}

	warnings, err := d.save(ctx, workflowID, draft)
	if err != nil {
		return pipeline.Draft{}, nil, err
	}
	d.log(ctx).Info("draft composed",
		logging.Int("version", draft.Version),
		logging.Int("length", textutil.Length(draft.Content)),
		logging.Bool("fallback", draft.Fallback),
	)
	return draft, warnings, nil
}

// Revise writes version PrevVersion+1 addressing feedback. Unlike Draft it
// has no fallback: a failed call is returned as an error.
func (d *Drafter) Revise(ctx context.Context, workflowID int64, in RevisionInput) (pipeline.Draft, stage.Warnings, error) {
	current := strings.TrimSpace(in.Current)
	if current == "" {
		return pipeline.Draft{}, nil, services.Wrap(services.ErrInput, "draft", "revise", "no current draft", nil)
	}
	prompt := fmt.Sprintf("Current post: %s\n\nReviewer feedback: %s\n\nTopic: %s\nSummary: %s\n\nWrite an improved post of at most 280 characters that addresses the feedback.",
		current, strings.TrimSpace(in.Feedback), strings.TrimSpace(in.Topic), strings.TrimSpace(in.Summary))

	text, err := d.gen.Generate(ctx, Persona, prompt)
	if err != nil {
		if errors.Is(err, services.ErrService) || errors.Is(err, services.ErrInput) {
			return pipeline.Draft{}, nil, err
		}
		return pipeline.Draft{}, nil, services.Wrap(services.ErrService, "draft", "revise", "", err)
	}
	content := textutil.CleanGenerated(text, MaxLength)
	if content == "" {
		return pipeline.Draft{}, nil, services.Wrap(services.ErrDecode, "draft", "revise", "empty reply", nil)
	}

	draft := pipeline.Draft{Version: in.PrevVersion + 1, Content: content}
	warnings, err := d.save(ctx, workflowID, draft)
	if err != nil {
		return pipeline.Draft{}, nil, err
	}
	d.log(ctx).Info("draft revised",
		logging.Int("version", draft.Version),
		logging.Int("length", textutil.Length(draft.Content)),
	)
	return draft, warnings, nil
}

// save records the draft. A repeated version is a hard error because the
// version sequence would no longer be trustworthy.
func (d *Drafter) save(ctx context.Context, workflowID int64, draft pipeline.Draft) (stage.Warnings, error) {
	if d.store == nil {
		return nil, nil
	}
	_, err := d.store.InsertDraft(ctx, workflowID, draft.Version, draft.Content)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, store.ErrDuplicate):
		return nil, services.Wrap(services.ErrPersistence, "draft", "save",
			fmt.Sprintf("version %d already exists", draft.Version), err)
	default:
		var warnings stage.Warnings
		warnings.Persist(d.log(ctx), fmt.Sprintf("persist draft v%d", draft.Version), err)
		return warnings, nil
	}
}

// Fallback builds a post from the summary and a hashtag of the topic,
// trimming the summary so the whole post fits in MaxLength runes.
func Fallback(summary, topic string) string {
	summary = textutil.Normalize(strings.TrimSpace(summary))
	tag := textutil.Hashtag(topic)
	if tag == "" {
		return textutil.Truncate(summary, MaxLength)
	}
	budget := max(MaxLength-(textutil.Length(tag)+2), 0)
	return textutil.Truncate(textutil.Truncate(summary, budget)+" #"+tag, MaxLength)
}

// log stamps the workflow fields carried by ctx onto the base logger.
func (d *Drafter) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, d.logger)
}
