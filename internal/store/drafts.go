package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var draftColumns = []string{"id", "workflow_id", "version", "content", "status", "created_at", "updated_at"}

func scanDraft(scanner rowScanner) (*DraftRecord, error) {
	var (
		rec                    DraftRecord
		status                 string
		createdRaw, updatedRaw string
	)
	if err := scanner.Scan(&rec.ID, &rec.WorkflowID, &rec.Version, &rec.Content, &status, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	rec.Status = DraftStatus(status)
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}

// InsertDraft records a new draft version in DRAFT status. Reusing a version
// for the same workflow returns ErrDuplicate.
func (s *Store) InsertDraft(ctx context.Context, workflowID int64, version int, content string) (int64, error) {
	now := timestampNow()
	id, err := s.insert(ctx, builder.Insert("drafts").
		Columns("workflow_id", "version", "content", "status", "created_at", "updated_at").
		Values(workflowID, version, content, string(DraftStatusDraft), now, now))
	if err != nil {
		return 0, fmt.Errorf("insert draft v%d: %w", version, err)
	}
	return id, nil
}

// GetDraft returns a specific draft version, or nil.
func (s *Store) GetDraft(ctx context.Context, workflowID int64, version int) (*DraftRecord, error) {
	row, err := s.queryRow(ctx, builder.Select(draftColumns...).
		From("drafts").
		Where(sq.Eq{"workflow_id": workflowID, "version": version}))
	if err != nil {
		return nil, err
	}
	rec, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return rec, nil
}

// LatestDraft returns the highest draft version of a workflow, or nil.
func (s *Store) LatestDraft(ctx context.Context, workflowID int64) (*DraftRecord, error) {
	row, err := s.queryRow(ctx, builder.Select(draftColumns...).
		From("drafts").
		Where(sq.Eq{"workflow_id": workflowID}).
		OrderBy("version DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}
	rec, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest draft: %w", err)
	}
	return rec, nil
}

// ListDrafts returns every draft version of a workflow in version order.
func (s *Store) ListDrafts(ctx context.Context, workflowID int64) ([]DraftRecord, error) {
	rows, err := s.query(ctx, builder.Select(draftColumns...).
		From("drafts").
		Where(sq.Eq{"workflow_id": workflowID}).
		OrderBy("version"))
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []DraftRecord
	for rows.Next() {
		rec, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// SetDraftStatus moves a draft through review.
func (s *Store) SetDraftStatus(ctx context.Context, draftID int64, status DraftStatus) error {
	return s.requireAffected(ctx, builder.Update("drafts").
		Set("status", string(status)).
		Set("updated_at", timestampNow()).
		Where(sq.Eq{"id": draftID}), "set draft status", draftID)
}

// InsertFeedback records a review decision against a draft.
func (s *Store) InsertFeedback(ctx context.Context, draftID int64, kind FeedbackType, comments string) (int64, error) {
	id, err := s.insert(ctx, builder.Insert("feedback").
		Columns("draft_id", "type", "comments", "created_at").
		Values(draftID, string(kind), nullableString(comments), timestampNow()))
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}
	return id, nil
}

// ListFeedback returns every review decision of a workflow in order.
func (s *Store) ListFeedback(ctx context.Context, workflowID int64) ([]FeedbackRecord, error) {
	rows, err := s.query(ctx, builder.Select("f.id", "f.draft_id", "d.version", "f.type", "f.comments", "f.created_at").
		From("feedback f").
		Join("drafts d ON d.id = f.draft_id").
		Where(sq.Eq{"d.workflow_id": workflowID}).
		OrderBy("f.id"))
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []FeedbackRecord
	for rows.Next() {
		var (
			rec        FeedbackRecord
			kind       string
			comments   sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&rec.ID, &rec.DraftID, &rec.DraftVersion, &kind, &comments, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		rec.Type = FeedbackType(kind)
		rec.Comments = comments.String
		if created, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = created
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertPublication records the single publication of a workflow. A second
// publication for the same workflow returns ErrDuplicate.
func (s *Store) InsertPublication(ctx context.Context, workflowID, draftID int64, externalID, externalURL string) (int64, error) {
	id, err := s.insert(ctx, builder.Insert("publications").
		Columns("workflow_id", "draft_id", "external_id", "external_url", "published_at").
		Values(workflowID, draftID, nullableString(externalID), nullableString(externalURL), timestampNow()))
	if err != nil {
		return 0, fmt.Errorf("insert publication: %w", err)
	}
	return id, nil
}

// GetPublication returns the publication of a workflow, or nil.
func (s *Store) GetPublication(ctx context.Context, workflowID int64) (*PublicationRecord, error) {
	row, err := s.queryRow(ctx, builder.Select("id", "workflow_id", "draft_id", "external_id", "external_url", "published_at").
		From("publications").
		Where(sq.Eq{"workflow_id": workflowID}))
	if err != nil {
		return nil, err
	}
	var (
		rec           PublicationRecord
		extID, extURL sql.NullString
		publishedRaw  string
	)
	if err := row.Scan(&rec.ID, &rec.WorkflowID, &rec.DraftID, &extID, &extURL, &publishedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get publication: %w", err)
	}
	rec.ExternalID = extID.String
	rec.ExternalURL = extURL.String
	if published, err := parseTimeString(publishedRaw); err == nil {
		rec.PublishedAt = published
	}
	return &rec, nil
}
