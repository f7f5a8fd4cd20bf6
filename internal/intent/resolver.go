package intent

import (
	"context"
	"log/slog"
	"strings"

	"postpilot/internal/logging"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/services/llm"
	"postpilot/internal/stage"
)

const (
	// DefaultScope applies when the model omits a scope.
	DefaultScope = "latest"
	// DefaultTone applies when the model omits a tone.
	DefaultTone = "informative"
)

// Persona instructs the model to answer with the intent JSON object.
const Persona = `You read requests for social media posts and extract what the user wants covered.

Identify:
- topic: the main subject, for example "AI", "cryptocurrency", "politics"
- scope: any time or place constraint, for example "latest", "today", "this week", "in Europe"
- tone: the requested tone, for example "informative", "opinionated", "neutral"; use "informative" when none is given

Reply with a single JSON object and nothing else:
{"topic": "...", "scope": "...", "tone": "..."}

Example: "What's happening in crypto today?" -> {"topic": "cryptocurrency", "scope": "today", "tone": "informative"}
Example: "Get latest AI regulation news in Europe" -> {"topic": "AI regulation", "scope": "latest in Europe", "tone": "informative"}`

// Store persists resolved intents.
type Store interface {
	InsertIntent(ctx context.Context, workflowID int64, intent pipeline.Intent) (int64, error)
}

// Resolver extracts intent with a single model call. It never retries.
type Resolver struct {
	gen    llm.Generator
	store  Store
	logger *slog.Logger
}

// NewResolver wires a resolver. store may be nil to skip persistence.
func NewResolver(gen llm.Generator, store Store, logger *slog.Logger) *Resolver {
	return &Resolver{gen: gen, store: store, logger: stage.Logger(logger)}
}

type reply struct {
	Topic string `json:"topic"`
	Scope string `json:"scope"`
	Tone  string `json:"tone"`
}

// Resolve reads query into an Intent. A blank query fails with
// services.ErrInput before the model is called; an unusable reply fails with
// services.ErrDecode.
func (r *Resolver) Resolve(ctx context.Context, workflowID int64, query string) (pipeline.Intent, stage.Warnings, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return pipeline.Intent{}, nil, services.Wrap(services.ErrInput, "intent", "resolve", "query is empty", nil)
	}

	decoded, raw, err := llm.GenerateJSON[reply](ctx, r.gen, Persona, query)
	if err != nil {
		return pipeline.Intent{}, nil, err
	}
	topic := strings.TrimSpace(decoded.Topic)
	if topic == "" {
		return pipeline.Intent{}, nil, services.Wrap(services.ErrDecode, "intent", "resolve", "reply has no topic", nil)
	}

	result := pipeline.Intent{
		Topic: topic,
		Scope: orDefault(decoded.Scope, DefaultScope),
		Tone:  orDefault(decoded.Tone, DefaultTone),
		Raw:   raw,
	}
	r.log(ctx).Debug("intent resolved",
		logging.String("topic", result.Topic),
		logging.String("scope", result.Scope),
		logging.String("tone", result.Tone),
	)

	var warnings stage.Warnings
	if r.store != nil {
		if _, err := r.store.InsertIntent(ctx, workflowID, result); err != nil {
			warnings.Persist(r.log(ctx), "persist intent", err)
		}
	}
	return result, warnings, nil
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

// log stamps the workflow fields carried by ctx onto the base logger.
func (r *Resolver) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, r.logger)
}
