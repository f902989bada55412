package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates a requested classification, task, or brief record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
	// ErrInvalidPageToken indicates a page token is malformed or was issued for
	// a different filter or ordering.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// Label identifies one classification category.
type Label string

const (
	// LabelTodo marks a message that needs direct action.
	LabelTodo Label = "todo"
	// LabelFollowup marks a message that should be revisited later.
	LabelFollowup Label = "followup"
	// LabelNoise marks a message that needs no attention.
	LabelNoise Label = "noise"
)

// ParseLabel parses a classification label token.
func ParseLabel(value string) (Label, error) {
	switch label := Label(strings.ToLower(strings.TrimSpace(value))); label {
	case LabelTodo, LabelFollowup, LabelNoise:
		return label, nil
	default:
		return "", fmt.Errorf("unknown label %q", value)
	}
}

// Source identifies which classifier produced a classification row.
type Source string

const (
	// SourceOpenAI marks rows produced by the model provider.
	SourceOpenAI Source = "openai"
	// SourceKeyword marks rows produced by the keyword fallback classifier.
	SourceKeyword Source = "keyword"
	// SourceManual marks rows created directly through the API.
	SourceManual Source = "manual"
)

// TaskStatus identifies one task lifecycle state.
type TaskStatus string

const (
	// TaskStatusPending means the task has not been started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress means the task is being worked.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusDone means the task is complete.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusDismissed means the task was intentionally dropped.
	TaskStatusDismissed TaskStatus = "dismissed"
)

// ParseTaskStatus parses a task status token.
func ParseTaskStatus(value string) (TaskStatus, error) {
	switch status := TaskStatus(strings.ToLower(strings.TrimSpace(value))); status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusDismissed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown task status %q", value)
	}
}

// OrderBy identifies one supported classification listing order.
type OrderBy string

const (
	// OrderByCreatedAtDesc orders newest-first. This is the default listing order.
	OrderByCreatedAtDesc OrderBy = "created_at desc"
	// OrderByPriorityDesc orders highest-priority first, newest-first within a priority.
	OrderByPriorityDesc OrderBy = "priority desc"
)

// ClassificationRecord stores one classified message.
type ClassificationRecord struct {
	ID        string
	MessageID string
	UserID    string
	Label     Label
	Priority  int
	Summary   string
	Source    Source
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassificationPage stores a paged classification listing result.
type ClassificationPage struct {
	Classifications []ClassificationRecord
	NextPageToken   string
}

// ListClassificationsRequest describes one filtered classification listing.
type ListClassificationsRequest struct {
	// UserID scopes the listing to one owner when set.
	UserID string
	// FilterClause is a parameterized SQL predicate produced by the filter
	// translator. Empty means no filter.
	FilterClause string
	// FilterParams carries the bind parameters for FilterClause.
	FilterParams []any
	// Filter is the canonical filter expression, bound into page tokens so a
	// token replayed under a different filter is rejected.
	Filter string
	// OrderBy selects the listing order.
	OrderBy OrderBy
	// PageSize caps the rows returned.
	PageSize int
	// PageToken resumes a prior listing.
	PageToken string
}

// TaskRecord stores one generated or manually-edited task.
type TaskRecord struct {
	ID               string
	ClassificationID string
	MessageID        string
	UserID           string
	Title            string
	Description      string
	Status           TaskStatus
	Priority         int
	DueAt            *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TaskPage stores a paged task listing result.
type TaskPage struct {
	Tasks         []TaskRecord
	NextPageToken string
}

// ListTasksRequest describes one task listing.
type ListTasksRequest struct {
	UserID    string
	Status    TaskStatus
	PageSize  int
	PageToken string
}

// BriefRecord stores one generated daily brief.
type BriefRecord struct {
	ID                string
	UserID            string
	BriefDate         string
	TotalMessages     int
	TodoCount         int
	FollowupCount     int
	NoiseCount        int
	HighPriorityCount int
	ItemsJSON         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ClassificationStore persists classification rows.
type ClassificationStore interface {
	// PutClassification inserts one classification row. A duplicate id or
	// message id surfaces as ErrConflict.
	PutClassification(ctx context.Context, record ClassificationRecord) error
	// GetClassification loads one classification row by id.
	GetClassification(ctx context.Context, id string) (ClassificationRecord, error)
	// GetClassificationByMessageID loads one classification row by its message id.
	GetClassificationByMessageID(ctx context.Context, messageID string) (ClassificationRecord, error)
	// ListClassifications lists classification rows with filtering, ordering,
	// and keyset pagination.
	ListClassifications(ctx context.Context, req ListClassificationsRequest) (ClassificationPage, error)
	// ListClassificationsByIDs loads classification rows for the given ids,
	// skipping ids with no row.
	ListClassificationsByIDs(ctx context.Context, ids []string) ([]ClassificationRecord, error)
	// ListClassificationsInRange lists one owner's rows created in [from, to)
	// ordered by priority then recency.
	ListClassificationsInRange(ctx context.Context, userID string, from, to time.Time) ([]ClassificationRecord, error)
	// ListTaskCandidates lists one owner's actionable rows that have no task
	// yet, newest-first.
	ListTaskCandidates(ctx context.Context, userID string, limit int) ([]ClassificationRecord, error)
	// UpdateClassification rewrites one classification row's label, priority,
	// summary, and updated_at.
	UpdateClassification(ctx context.Context, record ClassificationRecord) error
	// DeleteClassification removes one classification row.
	DeleteClassification(ctx context.Context, id string) error
}

// TaskStore persists task rows.
type TaskStore interface {
	// PutTask inserts one task row. A duplicate id or classification id
	// surfaces as ErrConflict.
	PutTask(ctx context.Context, record TaskRecord) error
	// GetTask loads one task row by id.
	GetTask(ctx context.Context, id string) (TaskRecord, error)
	// GetTaskByClassificationID loads one task row by its source classification.
	GetTaskByClassificationID(ctx context.Context, classificationID string) (TaskRecord, error)
	// ListTasks lists one owner's tasks newest-first with cursor pagination.
	ListTasks(ctx context.Context, req ListTasksRequest) (TaskPage, error)
	// UpdateTask rewrites one task row's mutable fields and updated_at.
	UpdateTask(ctx context.Context, record TaskRecord) error
	// DeleteTask removes one task row.
	DeleteTask(ctx context.Context, id string) error
}

// BriefStore persists daily brief rows.
type BriefStore interface {
	// PutBrief upserts one brief row keyed by (user id, brief date).
	PutBrief(ctx context.Context, record BriefRecord) error
	// GetBrief loads one brief row by owner and date.
	GetBrief(ctx context.Context, userID string, briefDate string) (BriefRecord, error)
}

// Store combines the persistence surfaces owned by the triage service.
type Store interface {
	ClassificationStore
	TaskStore
	BriefStore
}
