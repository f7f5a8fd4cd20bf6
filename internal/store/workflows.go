package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var workflowColumns = []string{
	"id", "query", "status", "current_step", "state_json", "error",
	"created_at", "updated_at", "completed_at",
}

func scanWorkflow(scanner rowScanner) (*Workflow, error) {
	var (
		wf          Workflow
		status      string
		stateJSON   sql.NullString
		errorText   sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
		completeRaw sql.NullString
	)
	if err := scanner.Scan(
		&wf.ID,
		&wf.Query,
		&status,
		&wf.CurrentStep,
		&stateJSON,
		&errorText,
		&createdRaw,
		&updatedRaw,
		&completeRaw,
	); err != nil {
		return nil, err
	}
	wf.Status = Status(status)
	wf.StateJSON = stateJSON.String
	wf.Error = errorText.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		wf.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		wf.UpdatedAt = updated
	}
	if completeRaw.Valid {
		wf.CompletedAt = parseOptionalTime(completeRaw.String)
	}
	return &wf, nil
}

// CreateWorkflow inserts a new workflow in PENDING status.
func (s *Store) CreateWorkflow(ctx context.Context, query string) (*Workflow, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	now := timestampNow()
	id, err := s.insert(ctx, builder.Insert("workflows").
		Columns("query", "status", "current_step", "created_at", "updated_at").
		Values(query, string(StatusPending), "start", now, now))
	if err != nil {
		return nil, fmt.Errorf("insert workflow: %w", err)
	}
	return s.GetWorkflow(ctx, id)
}

// GetWorkflow fetches a workflow by identifier. It returns nil when absent.
func (s *Store) GetWorkflow(ctx context.Context, id int64) (*Workflow, error) {
	row, err := s.queryRow(ctx, builder.Select(workflowColumns...).From("workflows").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return wf, nil
}

// ListWorkflows returns workflows newest first, optionally filtered by status.
func (s *Store) ListWorkflows(ctx context.Context, statuses ...Status) ([]*Workflow, error) {
	stmt := builder.Select(workflowColumns...).From("workflows").OrderBy("id DESC")
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, st := range statuses {
			values = append(values, string(st))
		}
		stmt = stmt.Where(sq.Eq{"status": values})
	}
	rows, err := s.query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []*Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

// SaveSnapshot checkpoints the orchestrator state. Terminal statuses also
// stamp completed_at.
func (s *Store) SaveSnapshot(ctx context.Context, id int64, snap Snapshot) error {
	now := timestampNow()
	stmt := builder.Update("workflows").
		Set("status", string(snap.Status)).
		Set("current_step", snap.CurrentStep).
		Set("state_json", nullableString(string(snap.StateJSON))).
		Set("error", nullableString(snap.Error)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id})
	if snap.Status.IsTerminal() {
		stmt = stmt.Set("completed_at", sq.Expr("COALESCE(completed_at, ?)", now))
	}
	return s.requireAffected(ctx, stmt, "save snapshot", id)
}

// SetWorkflowStatus updates only the status and error of a workflow.
func (s *Store) SetWorkflowStatus(ctx context.Context, id int64, status Status, errorText string) error {
	now := timestampNow()
	stmt := builder.Update("workflows").
		Set("status", string(status)).
		Set("error", nullableString(errorText)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id})
	if status.IsTerminal() {
		stmt = stmt.Set("completed_at", sq.Expr("COALESCE(completed_at, ?)", now))
	}
	return s.requireAffected(ctx, stmt, "set workflow status", id)
}

// CountByStatus returns workflow counts keyed by status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.query(ctx, builder.Select("status", "COUNT(1)").From("workflows").GroupBy("status"))
	if err != nil {
		return nil, fmt.Errorf("count workflows: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func (s *Store) requireAffected(ctx context.Context, stmt sq.UpdateBuilder, op string, id int64) error {
	res, err := s.exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: id %d: %w", op, id, sql.ErrNoRows)
	}
	return nil
}
