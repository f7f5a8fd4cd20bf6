package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"postpilot/internal/pipeline"
)

// InsertIntent records the structured intent resolved for a workflow.
func (s *Store) InsertIntent(ctx context.Context, workflowID int64, intent pipeline.Intent) (int64, error) {
	id, err := s.insert(ctx, builder.Insert("intents").
		Columns("workflow_id", "topic", "scope", "tone", "raw_text", "created_at").
		Values(workflowID, intent.Topic, intent.Scope, intent.Tone, nullableString(intent.Raw), timestampNow()))
	if err != nil {
		return 0, fmt.Errorf("insert intent: %w", err)
	}
	return id, nil
}

// GetIntent returns the latest intent of a workflow, or nil.
func (s *Store) GetIntent(ctx context.Context, workflowID int64) (*IntentRecord, error) {
	row, err := s.queryRow(ctx, builder.
		Select("id", "workflow_id", "topic", "scope", "tone", "raw_text", "created_at").
		From("intents").
		Where(sq.Eq{"workflow_id": workflowID}).
		OrderBy("id DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}
	var (
		rec        IntentRecord
		raw        sql.NullString
		createdRaw string
	)
	if err := row.Scan(&rec.ID, &rec.WorkflowID, &rec.Topic, &rec.Scope, &rec.Tone, &raw, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get intent: %w", err)
	}
	rec.RawText = raw.String
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return &rec, nil
}

// InsertCandidate stores one research result. A second insert of the same
// source item for the workflow returns ErrDuplicate and leaves one row.
func (s *Store) InsertCandidate(ctx context.Context, workflowID int64, c pipeline.Candidate) (int64, error) {
	id, err := s.insert(ctx, builder.Insert("candidates").
		Columns(
			"workflow_id", "source_item_id", "title", "author", "origin", "content", "permalink",
			"engagement_score", "votes", "comments", "posted_at", "created_at",
		).
		Values(
			workflowID, c.ID, c.Title, nullableString(c.Author), nullableString(c.Origin),
			nullableString(c.Content), nullableString(c.Permalink),
			c.EngagementScore, c.Votes, c.Comments, nullableTime(c.PostedAt), timestampNow(),
		))
	if err != nil {
		return 0, fmt.Errorf("insert candidate %s: %w", c.ID, err)
	}
	return id, nil
}

var candidateColumns = []string{
	"id", "workflow_id", "source_item_id", "title", "author", "origin", "content", "permalink",
	"engagement_score", "votes", "comments", "posted_at", "created_at",
}

// ListCandidates returns the persisted candidates of a workflow in insertion order.
func (s *Store) ListCandidates(ctx context.Context, workflowID int64) ([]CandidateRecord, error) {
	rows, err := s.query(ctx, builder.Select(candidateColumns...).
		From("candidates").
		Where(sq.Eq{"workflow_id": workflowID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []CandidateRecord
	for rows.Next() {
		var (
			rec                          CandidateRecord
			author, origin, content, url sql.NullString
			posted                       sql.NullString
			createdRaw                   string
		)
		if err := rows.Scan(
			&rec.ID, &rec.WorkflowID, &rec.SourceItemID, &rec.Title, &author, &origin, &content, &url,
			&rec.EngagementScore, &rec.Votes, &rec.Comments, &posted, &createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		rec.Author = author.String
		rec.Origin = origin.String
		rec.Content = content.String
		rec.Permalink = url.String
		if posted.Valid {
			rec.PostedAt = parseOptionalTime(posted.String)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = created
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CandidateIDs maps source item ids to candidate row ids in one lookup.
// Ids without a persisted row are absent from the result.
func (s *Store) CandidateIDs(ctx context.Context, workflowID int64, sourceIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return out, nil
	}
	rows, err := s.query(ctx, builder.Select("source_item_id", "id").
		From("candidates").
		Where(sq.Eq{"workflow_id": workflowID, "source_item_id": sourceIDs}))
	if err != nil {
		return nil, fmt.Errorf("lookup candidate ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sourceID string
			id       int64
		)
		if err := rows.Scan(&sourceID, &id); err != nil {
			return nil, fmt.Errorf("scan candidate id: %w", err)
		}
		out[sourceID] = id
	}
	return out, rows.Err()
}

// InsertRankedSelection records one ranked candidate.
func (s *Store) InsertRankedSelection(ctx context.Context, workflowID, candidateID int64, rank int, relevance, combined float64) (int64, error) {
	id, err := s.insert(ctx, builder.Insert("ranked_selections").
		Columns("workflow_id", "candidate_id", "rank", "relevance_score", "combined_score", "created_at").
		Values(workflowID, candidateID, rank, relevance, combined, timestampNow()))
	if err != nil {
		return 0, fmt.Errorf("insert ranked selection: %w", err)
	}
	return id, nil
}

// ListRankedSelections returns ranked rows joined with their candidates, by rank.
func (s *Store) ListRankedSelections(ctx context.Context, workflowID int64) ([]RankedSelection, error) {
	rows, err := s.query(ctx, builder.Select(
		"r.id", "r.workflow_id", "r.candidate_id", "r.rank", "r.relevance_score", "r.combined_score",
		"c.source_item_id", "c.title", "c.origin", "r.created_at",
	).
		From("ranked_selections r").
		Join("candidates c ON c.id = r.candidate_id").
		Where(sq.Eq{"r.workflow_id": workflowID}).
		OrderBy("r.rank", "r.id"))
	if err != nil {
		return nil, fmt.Errorf("list ranked selections: %w", err)
	}
	defer rows.Close()

	var out []RankedSelection
	for rows.Next() {
		var (
			rec        RankedSelection
			origin     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(
			&rec.ID, &rec.WorkflowID, &rec.CandidateID, &rec.Rank, &rec.RelevanceScore, &rec.CombinedScore,
			&rec.SourceItemID, &rec.Title, &origin, &createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan ranked selection: %w", err)
		}
		rec.Origin = origin.String
		if created, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = created
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertInsight records the summary of a workflow. Lists are stored newline joined.
func (s *Store) InsertInsight(ctx context.Context, workflowID int64, insight pipeline.Insight) (int64, error) {
	id, err := s.insert(ctx, builder.Insert("insights").
		Columns("workflow_id", "summary", "trends", "opinions", "created_at").
		Values(workflowID, insight.Summary, joinLines(insight.KeyTrends), joinLines(insight.ExpertOpinions), timestampNow()))
	if err != nil {
		return 0, fmt.Errorf("insert insight: %w", err)
	}
	return id, nil
}

// GetInsight returns the latest insight of a workflow, or nil.
func (s *Store) GetInsight(ctx context.Context, workflowID int64) (*InsightRecord, error) {
	row, err := s.queryRow(ctx, builder.Select("id", "workflow_id", "summary", "trends", "opinions", "created_at").
		From("insights").
		Where(sq.Eq{"workflow_id": workflowID}).
		OrderBy("id DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}
	var (
		rec              InsightRecord
		trends, opinions sql.NullString
		createdRaw       string
	)
	if err := row.Scan(&rec.ID, &rec.WorkflowID, &rec.Summary, &trends, &opinions, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get insight: %w", err)
	}
	rec.Trends = splitLines(trends.String)
	rec.Opinions = splitLines(opinions.String)
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return &rec, nil
}
