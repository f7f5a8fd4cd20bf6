package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"postpilot/internal/logging"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/services/llm"
	"postpilot/internal/stage"
	"postpilot/internal/textutil"
)

const previewBudget = 200

// Persona asks for the insight JSON object.
const Persona = `You analyse community discussion about a topic and report what matters.

Produce:
1. summary: a two or three sentence overview of the discussion
2. key_trends: three to five emerging trends or patterns
3. expert_opinions: notable perspectives raised in the posts

Be concise, favour what is newsworthy, and write plainly.

Reply with a single JSON object and nothing else:
{"summary": "...", "key_trends": ["...", "..."], "expert_opinions": ["...", "..."]}`

// Store persists insights.
type Store interface {
	InsertInsight(ctx context.Context, workflowID int64, insight pipeline.Insight) (int64, error)
}

// Summarizer produces an Insight from ranked candidates.
type Summarizer struct {
	gen    llm.Generator
	store  Store
	logger *slog.Logger
}

// NewSummarizer wires a summarizer. store may be nil.
func NewSummarizer(gen llm.Generator, store Store, logger *slog.Logger) *Summarizer {
	return &Summarizer{gen: gen, store: store, logger: stage.Logger(logger)}
}

// Digest renders ranked candidates as the numbered listing shown to the model.
func Digest(ranked []pipeline.RankedCandidate) string {
	var b strings.Builder
	for i, r := range ranked {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, r.Origin, r.Title)
		if r.Content == "" || r.Content == r.Title {
			continue
		}
		body := strings.TrimSpace(strings.ReplaceAll(r.Content, r.Title, ""))
		if body == "" {
			continue
		}
		b.WriteString("\n   ")
		b.WriteString(textutil.Preview(body, previewBudget))
	}
	return b.String()
}

// Summarize asks the model for an insight. Empty input fails with
// services.ErrInput before any call; call and decode failures are returned
// as services.ErrService and services.ErrDecode.
func (s *Summarizer) Summarize(ctx context.Context, workflowID int64, topic string, ranked []pipeline.RankedCandidate) (pipeline.Insight, stage.Warnings, error) {
	if len(ranked) == 0 {
		return pipeline.Insight{}, nil, services.Wrap(services.ErrInput, "summarize", "digest", "no ranked candidates to summarize", nil)
	}

	prompt := fmt.Sprintf("Topic: %s\n\nPosts:\n%s\n\nGenerate insights.", strings.TrimSpace(topic), Digest(ranked))
	insight, _, err := llm.GenerateJSON[pipeline.Insight](ctx, s.gen, Persona, prompt)
	if err != nil {
		return pipeline.Insight{}, nil, err
	}
	insight.Summary = strings.TrimSpace(insight.Summary)
	insight.KeyTrends = compact(insight.KeyTrends)
	insight.ExpertOpinions = compact(insight.ExpertOpinions)
	if insight.Summary == "" {
		return pipeline.Insight{}, nil, services.Wrap(services.ErrDecode, "summarize", "decode", "reply has no summary", nil)
	}
	s.log(ctx).Info("insight generated",
		logging.Int("key_trends", len(insight.KeyTrends)),
		logging.Int("expert_opinions", len(insight.ExpertOpinions)),
	)

	var warnings stage.Warnings
	if s.store != nil {
		if _, err := s.store.InsertInsight(ctx, workflowID, insight); err != nil {
			warnings.Persist(s.log(ctx), "persist insight", err)
		}
	}
	return insight, warnings, nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// log stamps the workflow fields carried by ctx onto the base logger.
func (s *Summarizer) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, s.logger)
}
