package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"postpilot/internal/logging"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/services/llm"
	"postpilot/internal/stage"
	"postpilot/internal/textutil"
)

const (
	// NeutralRelevance is assigned when the model gives no usable score.
	NeutralRelevance = 0.5
	// DefaultTopK is the number of candidates kept.
	DefaultTopK = 5
	// DefaultRelevanceCap bounds how many candidates the model scores.
	DefaultRelevanceCap = 20

	relevanceWeight  = 0.6
	engagementWeight = 0.4
	titleBudget      = 200
)

// Persona asks for per-candidate relevance scores.
const Persona = `You judge how relevant and useful community posts are for a topic.

Score every post from 0.0 to 1.0:
- 1.0: directly about the topic and substantive
- 0.7 to 0.9: relevant and useful
- 0.4 to 0.6: loosely related or thin
- 0.0 to 0.3: off-topic, low effort, spam, or promotion

Reply with JSON only, no prose and no markdown:
{"scores": [{"post_id": "abc123", "score": 0.9, "reason": "short reason"}]}`

// Store persists the ranked selection.
type Store interface {
	CandidateIDs(ctx context.Context, workflowID int64, sourceIDs []string) (map[string]int64, error)
	InsertRankedSelection(ctx context.Context, workflowID, candidateID int64, rank int, relevance, combined float64) (int64, error)
}

// Result is the outcome of one ranking pass.
type Result struct {
	Ranked   []pipeline.RankedCandidate
	Fallback bool
	Warnings stage.Warnings
}

// Filter ranks candidates.
type Filter struct {
	gen          llm.Generator
	store        Store
	topK         int
	relevanceCap int
	logger       *slog.Logger
}

// NewFilter wires a filter. Non-positive topK or relevanceCap select the
// defaults; store may be nil.
func NewFilter(gen llm.Generator, store Store, topK, relevanceCap int, logger *slog.Logger) *Filter {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if relevanceCap <= 0 {
		relevanceCap = DefaultRelevanceCap
	}
	return &Filter{gen: gen, store: store, topK: topK, relevanceCap: relevanceCap, logger: stage.Logger(logger)}
}

// TopK reports how many candidates the filter keeps.
func (f *Filter) TopK() int { return f.topK }

// WithTopK returns a copy of the filter keeping k candidates.
func (f *Filter) WithTopK(k int) *Filter {
	clone := *f
	if k > 0 {
		clone.topK = k
	}
	return &clone
}

// Rank selects at most K candidates. It never fails; model trouble degrades
// to neutral relevance and store trouble to warnings.
func (f *Filter) Rank(ctx context.Context, workflowID int64, topic string, candidates []pipeline.Candidate) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	relevance, fallback := f.score(ctx, topic, candidates)
	ranked := Combine(candidates, relevance, f.topK)
	f.log(ctx).Info("candidates ranked",
		logging.Int("candidates", len(candidates)),
		logging.Int("selected", len(ranked)),
		logging.Bool("fallback", fallback),
	)

	return Result{Ranked: ranked, Fallback: fallback, Warnings: f.persist(ctx, workflowID, ranked)}
}

type scoreItem struct {
	PostID string        `json:"post_id"`
	Score  *lenientFloat `json:"score"`
	Reason string        `json:"reason"`
}

type scoreReply struct {
	Scores []scoreItem `json:"scores"`
}

// Judgement is the model's verdict on one candidate.
type Judgement struct {
	Score  float64
	Reason string
}

// score asks the model about the first relevanceCap candidates. The bool is
// true when the model could not be used at all.
func (f *Filter) score(ctx context.Context, topic string, candidates []pipeline.Candidate) (map[string]Judgement, bool) {
	sample := candidates[:min(len(candidates), f.relevanceCap)]
	type promptItem struct {
		PostID    string `json:"post_id"`
		Title     string `json:"title"`
		Subreddit string `json:"subreddit"`
	}
	items := make([]promptItem, 0, len(sample))
	for _, c := range sample {
		items = append(items, promptItem{PostID: c.ID, Title: textutil.Truncate(c.Title, titleBudget), Subreddit: c.Origin})
	}
	listing, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, true
	}
	prompt := fmt.Sprintf("Topic: %s\n\nPosts:\n%s\n\nScore each post.", strings.TrimSpace(topic), listing)

	reply, _, err := llm.GenerateJSON[scoreReply](ctx, f.gen, Persona, prompt)
	if err != nil {
		logging.WarnWithContext(f.log(ctx), "relevance scoring unavailable; ranking by engagement", "relevance_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldImpact, "all candidates use neutral relevance"),
		)
		return nil, true
	}

	out := make(map[string]Judgement, len(reply.Scores))
	for _, item := range reply.Scores {
		id := strings.TrimSpace(item.PostID)
		if id == "" {
			continue
		}
		score := NeutralRelevance
		if item.Score != nil {
			score = clamp(float64(*item.Score))
		}
		out[id] = Judgement{Score: score, Reason: strings.TrimSpace(item.Reason)}
	}
	return out, false
}

// Combine blends relevance with normalized engagement and keeps the best k.
// Candidates absent from relevance get NeutralRelevance. Equal scores keep
// their input order.
func Combine(candidates []pipeline.Candidate, relevance map[string]Judgement, k int) []pipeline.RankedCandidate {
	maxEngagement := 0
	for _, c := range candidates {
		maxEngagement = max(maxEngagement, c.EngagementScore)
	}
	if maxEngagement == 0 {
		maxEngagement = 1
	}

	ranked := make([]pipeline.RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		rel := NeutralRelevance
		var reason string
		if j, ok := relevance[c.ID]; ok {
			rel, reason = j.Score, j.Reason
		}
		norm := float64(c.EngagementScore) / float64(maxEngagement)
		ranked = append(ranked, pipeline.RankedCandidate{
			Candidate:      c,
			RelevanceScore: rel,
			CombinedScore:  relevanceWeight*rel + engagementWeight*norm,
			Reason:         reason,
		})
	}
	slices.SortStableFunc(ranked, func(a, b pipeline.RankedCandidate) int {
		switch {
		case a.CombinedScore > b.CombinedScore:
			return -1
		case a.CombinedScore < b.CombinedScore:
			return 1
		default:
			return 0
		}
	})
	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

func (f *Filter) persist(ctx context.Context, workflowID int64, ranked []pipeline.RankedCandidate) stage.Warnings {
	if f.store == nil || len(ranked) == 0 {
		return nil
	}
	var warnings stage.Warnings
	sourceIDs := make([]string, 0, len(ranked))
	for _, r := range ranked {
		sourceIDs = append(sourceIDs, r.ID)
	}
	rowIDs, err := f.store.CandidateIDs(ctx, workflowID, sourceIDs)
	if err != nil {
		warnings.Persist(f.log(ctx), "resolve candidate rows", err)
		return warnings
	}
	for i, r := range ranked {
		rowID, ok := rowIDs[r.ID]
		if !ok {
			f.log(ctx).Debug("ranked candidate has no stored row", logging.String("source_item_id", r.ID))
			continue
		}
		if _, err := f.store.InsertRankedSelection(ctx, workflowID, rowID, i+1, r.RelevanceScore, r.CombinedScore); err != nil {
			warnings.Persist(f.log(ctx), "persist ranked selection "+r.ID, err)
		}
	}
	return warnings
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}

// lenientFloat accepts a JSON number or a numeric string. Anything else is
// a decode error, which drops model relevance for the whole set.
type lenientFloat float64

func (l *lenientFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("score %s is not a number", data)
	}
	*l = lenientFloat(v)
	return nil
}

// log stamps the workflow fields carried by ctx onto the base logger.
func (f *Filter) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, f.logger)
}
