package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a workflow row.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// AllStatuses returns every workflow status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user supplied value into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether the status ends the workflow.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// DraftStatus tracks a draft version through review.
type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "DRAFT"
	DraftStatusApproved  DraftStatus = "APPROVED"
	DraftStatusRejected  DraftStatus = "REJECTED"
	DraftStatusPublished DraftStatus = "PUBLISHED"
)

// FeedbackType classifies a review decision.
type FeedbackType string

const (
	FeedbackApprove FeedbackType = "APPROVE"
	FeedbackReject  FeedbackType = "REJECT"
	FeedbackRevise  FeedbackType = "REVISE"
)

// Workflow is a persisted workflow row.
type Workflow struct {
	ID          int64
	Query       string
	Status      Status
	CurrentStep string
	StateJSON   string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Snapshot carries the fields written when the orchestrator checkpoints a workflow.
type Snapshot struct {
	Status      Status
	CurrentStep string
	StateJSON   []byte
	Error       string
}

// IntentRecord is a persisted intent row.
type IntentRecord struct {
	ID         int64
	WorkflowID int64
	Topic      string
	Scope      string
	Tone       string
	RawText    string
	CreatedAt  time.Time
}

// CandidateRecord is a persisted candidate row.
type CandidateRecord struct {
	ID              int64
	WorkflowID      int64
	SourceItemID    string
	Title           string
	Author          string
	Origin          string
	Content         string
	Permalink       string
	EngagementScore int
	Votes           int
	Comments        int
	PostedAt        *time.Time
	CreatedAt       time.Time
}

// RankedSelection is a persisted ranking row joined with its candidate.
type RankedSelection struct {
	ID             int64
	WorkflowID     int64
	CandidateID    int64
	Rank           int
	RelevanceScore float64
	CombinedScore  float64
	SourceItemID   string
	Title          string
	Origin         string
	CreatedAt      time.Time
}

// InsightRecord is a persisted insight row. Lists are newline separated.
type InsightRecord struct {
	ID         int64
	WorkflowID int64
	Summary    string
	Trends     []string
	Opinions   []string
	CreatedAt  time.Time
}

// DraftRecord is a persisted draft version.
type DraftRecord struct {
	ID         int64
	WorkflowID int64
	Version    int
	Content    string
	Status     DraftStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FeedbackRecord is a persisted review decision.
type FeedbackRecord struct {
	ID           int64
	DraftID      int64
	DraftVersion int
	Type         FeedbackType
	Comments     string
	CreatedAt    time.Time
}

// PublicationRecord is the single publication of a workflow.
type PublicationRecord struct {
	ID          int64
	WorkflowID  int64
	DraftID     int64
	ExternalID  string
	ExternalURL string
	PublishedAt time.Time
}
