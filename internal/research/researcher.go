package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"postpilot/internal/logging"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/services/llm"
	"postpilot/internal/services/reddit"
	"postpilot/internal/stage"
	"postpilot/internal/store"
)

// DefaultTotalLimit is the candidate budget per research run.
const DefaultTotalLimit = 30

// Persona asks the model for a search strategy as JSON.
const Persona = `You plan searches of Reddit communities for a given topic and scope.

Decide:
1. which subreddits are most likely to discuss the topic right now
2. a short search phrase for the topic
3. a time window: one of hour, day, week, month, year, all

Reply with a single JSON object and nothing else:
{"subreddits": ["name1", "name2"], "search_query": "...", "time_filter": "day", "reasoning": "one sentence"}

Example for topic "AI", scope "today":
{"subreddits": ["artificial", "MachineLearning", "OpenAI"], "search_query": "AI latest", "time_filter": "day", "reasoning": "AI communities for today's discussion"}
Example for topic "cryptocurrency", scope "this week":
{"subreddits": ["CryptoCurrency", "Bitcoin"], "search_query": "crypto news", "time_filter": "week", "reasoning": "main crypto communities for weekly trends"}`

// Source fetches candidates. An empty origin means a site-wide search.
type Source interface {
	Fetch(ctx context.Context, origin, query string, limit int, recency string) ([]pipeline.Candidate, error)
}

// Store persists candidates.
type Store interface {
	InsertCandidate(ctx context.Context, workflowID int64, c pipeline.Candidate) (int64, error)
}

// Result is the outcome of one research run.
type Result struct {
	Strategy   Strategy
	Candidates []pipeline.Candidate
	Warnings   stage.Warnings
}

// Researcher plans, fetches, scores, and persists candidates.
type Researcher struct {
	gen        llm.Generator
	source     Source
	store      Store
	totalLimit int
	logger     *slog.Logger
}

// NewResearcher wires a researcher. totalLimit <= 0 selects DefaultTotalLimit
// and store may be nil to skip persistence.
func NewResearcher(gen llm.Generator, source Source, store Store, totalLimit int, logger *slog.Logger) *Researcher {
	if totalLimit <= 0 {
		totalLimit = DefaultTotalLimit
	}
	return &Researcher{gen: gen, source: source, store: store, totalLimit: totalLimit, logger: stage.Logger(logger)}
}

// Research gathers candidates for topic. Only a blank topic is an error;
// strategy and fetch failures degrade to the fallback table and warnings.
func (r *Researcher) Research(ctx context.Context, workflowID int64, topic, scope string) (Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{}, services.Wrap(services.ErrInput, "research", "plan", "no topic", nil)
	}

	strategy := r.plan(ctx, topic, scope)
	r.log(ctx).Info("research strategy",
		logging.Any("origins", strategy.Origins),
		logging.String("search_query", strategy.SearchQuery),
		logging.String("recency", strategy.Recency),
		logging.Bool("fallback", strategy.Fallback),
	)

	fetched, warnings := r.fetch(ctx, strategy)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	candidates := Rank(fetched)
	warnings = append(warnings, r.persist(ctx, workflowID, candidates)...)

	return Result{Strategy: strategy, Candidates: candidates, Warnings: warnings}, nil
}

func (r *Researcher) plan(ctx context.Context, topic, scope string) Strategy {
	prompt := fmt.Sprintf("Topic: %s\nScope: %s\n\nPlan the search.", topic, strings.TrimSpace(scope))
	proposed, _, err := llm.GenerateJSON[Strategy](ctx, r.gen, Persona, prompt)
	if err != nil {
		logging.WarnWithContext(r.log(ctx), "research strategy unavailable; using topic table", "strategy_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldImpact, "origins chosen from static table"),
		)
		return FallbackStrategy(topic)
	}
	if len(proposed.Origins) == 0 {
		fallback := FallbackStrategy(topic)
		fallback.SearchQuery = proposed.normalize(topic).SearchQuery
		if reddit.ValidRecency(proposed.Recency) {
			fallback.Recency = strings.ToLower(strings.TrimSpace(proposed.Recency))
		}
		return fallback
	}
	return proposed.normalize(topic)
}

// fetch queries every origin concurrently and merges results in origin order.
func (r *Researcher) fetch(ctx context.Context, strategy Strategy) ([]pipeline.Candidate, stage.Warnings) {
	if len(strategy.Origins) == 0 {
		items, err := r.source.Fetch(ctx, "", strategy.SearchQuery, r.totalLimit, strategy.Recency)
		if err != nil {
			var warnings stage.Warnings
			r.fetchFailed(ctx, &warnings, "site search", err)
			return nil, warnings
		}
		return items, nil
	}

	limit := perOriginLimit(r.totalLimit, len(strategy.Origins))
	results := make([][]pipeline.Candidate, len(strategy.Origins))
	errs := make([]error, len(strategy.Origins))

	var g errgroup.Group
	for i, origin := range strategy.Origins {
		g.Go(func() error {
			results[i], errs[i] = r.source.Fetch(ctx, origin, strategy.SearchQuery, limit, strategy.Recency)
			return nil
		})
	}
	_ = g.Wait()

	var (
		merged   []pipeline.Candidate
		warnings stage.Warnings
	)
	for i, origin := range strategy.Origins {
		if errs[i] != nil {
			r.fetchFailed(ctx, &warnings, "r/"+origin, errs[i])
			continue
		}
		merged = append(merged, results[i]...)
	}
	return merged, warnings
}

func (r *Researcher) fetchFailed(ctx context.Context, warnings *stage.Warnings, label string, err error) {
	warnings.Add("fetch %s: %v", label, err)
	logging.WarnWithContext(r.log(ctx), "candidate fetch failed", "fetch_failed",
		logging.String("origin", label),
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldImpact, "origin contributes no candidates"),
	)
}

func (r *Researcher) persist(ctx context.Context, workflowID int64, candidates []pipeline.Candidate) stage.Warnings {
	if r.store == nil {
		return nil
	}
	var warnings stage.Warnings
	for _, c := range candidates {
		if _, err := r.store.InsertCandidate(ctx, workflowID, c); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			warnings.Persist(r.log(ctx), "persist candidate "+c.ID, err)
		}
	}
	return warnings
}

// Rank scores every candidate, drops repeated ids (first occurrence wins),
// and orders by engagement, highest first. Ties keep their input order.
func Rank(items []pipeline.Candidate) []pipeline.Candidate {
	seen := make(map[string]struct{}, len(items))
	out := make([]pipeline.Candidate, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item.Score())
	}
	slices.SortStableFunc(out, func(a, b pipeline.Candidate) int {
		return b.EngagementScore - a.EngagementScore
	})
	return out
}

// log stamps the workflow fields carried by ctx onto the base logger.
func (r *Researcher) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, r.logger)
}
