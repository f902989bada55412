package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailroomhq/triage/internal/services/triage/classifier"
	"github.com/mailroomhq/triage/internal/services/triage/integrations"
	"github.com/mailroomhq/triage/internal/services/triage/storage"
	"github.com/mailroomhq/triage/internal/services/triage/task"
)

// GenerateTasksRequest derives tasks from stored classifications.
type GenerateTasksRequest struct {
	// UserID owns the generated tasks.
	UserID string
	// ClassificationIDs names the source rows. Empty means the caller's
	// actionable rows that have no task yet.
	ClassificationIDs []string
	// Limit caps the candidate scan when ClassificationIDs is empty.
	Limit int
}

// TaskFailure reports one classification that produced no task.
type TaskFailure struct {
	ClassificationID string
	Reason           string
}

// GenerateTasksResult reports one generation run.
type GenerateTasksResult struct {
	Processed  int
	Generated  int
	Skipped    int
	Duplicates int
	Failed     int
	Failures   []TaskFailure
	Tasks      []storage.TaskRecord
}

func (r *GenerateTasksResult) fail(classificationID, reason string) {
	r.Failed++
	r.Failures = append(r.Failures, TaskFailure{ClassificationID: classificationID, Reason: reason})
}

// GenerateTasks creates one task per actionable classification. Noise rows
// are skipped and rows that already have a task count as duplicates.
// Titles, descriptions, and due dates derive from the source message, so
// the run needs the message gateway.
func (s *Service) GenerateTasks(ctx context.Context, req GenerateTasksRequest) (GenerateTasksResult, error) {
	if s == nil || s.store == nil {
		return GenerateTasksResult{}, ErrStoreNotConfigured
	}
	if s.gateway == nil {
		return GenerateTasksResult{}, ErrGatewayNotConfigured
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return GenerateTasksResult{}, ErrUserIDRequired
	}

	var result GenerateTasksResult
	var records []storage.ClassificationRecord
	if ids := dedupeIDs(req.ClassificationIDs); len(ids) > 0 {
		loaded, err := s.store.ListClassificationsByIDs(ctx, ids)
		if err != nil {
			return GenerateTasksResult{}, fmt.Errorf("load classifications: %w", err)
		}
		byID := make(map[string]storage.ClassificationRecord, len(loaded))
		for _, record := range loaded {
			byID[record.ID] = record
		}
		for _, requested := range ids {
			record, ok := byID[requested]
			if !ok || !visible(record.UserID, userID) {
				result.Processed++
				result.fail(requested, "classification not found")
				continue
			}
			records = append(records, record)
		}
	} else {
		loaded, err := s.store.ListTaskCandidates(ctx, userID, clampBatchLimit(req.Limit))
		if err != nil {
			return GenerateTasksResult{}, fmt.Errorf("list task candidates: %w", err)
		}
		records = loaded
	}

	for _, record := range records {
		result.Processed++
		if err := s.generateTask(ctx, userID, record, &result); err != nil {
			return GenerateTasksResult{}, err
		}
	}
	return result, nil
}

func (s *Service) generateTask(ctx context.Context, userID string, record storage.ClassificationRecord, result *GenerateTasksResult) error {
	if record.Label != storage.LabelTodo && record.Label != storage.LabelFollowup {
		result.Skipped++
		return nil
	}

	existing, err := s.store.GetTaskByClassificationID(ctx, record.ID)
	switch {
	case err == nil:
		result.Duplicates++
		result.Tasks = append(result.Tasks, existing)
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("check existing task for classification %q: %w", record.ID, err)
	}

	msg, err := s.gateway.GetMessage(ctx, record.MessageID)
	if errors.Is(err, integrations.ErrMessageNotFound) {
		result.fail(record.ID, "message not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch message %q: %w", record.MessageID, err)
	}

	taskID, err := s.newID()
	if err != nil {
		return fmt.Errorf("new task id: %w", err)
	}
	now := s.nowUTC()
	source := task.Message{
		Sender:     msg.Sender,
		Channel:    msg.Channel,
		Subject:    msg.Subject,
		Snippet:    msg.Snippet,
		ReceivedAt: msg.ReceivedAt,
	}
	created := storage.TaskRecord{
		ID:               taskID,
		ClassificationID: record.ID,
		MessageID:        record.MessageID,
		UserID:           userID,
		Title:            task.Title(source),
		Description:      task.Describe(source, record.Label, record.Priority),
		Status:           storage.TaskStatusPending,
		Priority:         record.Priority,
		DueAt:            task.DueAt(record.Label, record.Priority, source, now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.PutTask(ctx, created); err != nil {
		if !errors.Is(err, storage.ErrConflict) {
			return fmt.Errorf("store task for classification %q: %w", record.ID, err)
		}
		stored, lookupErr := s.store.GetTaskByClassificationID(ctx, record.ID)
		if lookupErr != nil {
			return fmt.Errorf("reload task for classification %q: %w", record.ID, lookupErr)
		}
		result.Duplicates++
		result.Tasks = append(result.Tasks, stored)
		return nil
	}
	result.Generated++
	result.Tasks = append(result.Tasks, created)
	return nil
}

// GetTask loads one task owned by the caller.
func (s *Service) GetTask(ctx context.Context, userID, taskID string) (storage.TaskRecord, error) {
	if s == nil || s.store == nil {
		return storage.TaskRecord{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.TaskRecord{}, ErrUserIDRequired
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return storage.TaskRecord{}, ErrTaskIDRequired
	}
	record, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return storage.TaskRecord{}, err
	}
	if !visible(record.UserID, userID) {
		return storage.TaskRecord{}, fmt.Errorf("task %q: %w", taskID, storage.ErrNotFound)
	}
	return record, nil
}

// ListTasksRequest describes one task listing.
type ListTasksRequest struct {
	UserID string
	// Status narrows the listing to one lifecycle state when set.
	Status    string
	PageSize  int
	PageToken string
}

// ListTasks lists the caller's tasks newest first.
func (s *Service) ListTasks(ctx context.Context, req ListTasksRequest) (storage.TaskPage, error) {
	if s == nil || s.store == nil {
		return storage.TaskPage{}, ErrStoreNotConfigured
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return storage.TaskPage{}, ErrUserIDRequired
	}
	var status storage.TaskStatus
	if value := strings.TrimSpace(req.Status); value != "" {
		parsed, err := storage.ParseTaskStatus(value)
		if err != nil {
			return storage.TaskPage{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		status = parsed
	}
	return s.store.ListTasks(ctx, storage.ListTasksRequest{
		UserID:    userID,
		Status:    status,
		PageSize:  clampPageSize(req.PageSize),
		PageToken: strings.TrimSpace(req.PageToken),
	})
}

// UpdateTaskRequest patches one task. Nil fields keep their stored values;
// ClearDueAt removes the due date.
type UpdateTaskRequest struct {
	UserID      string
	TaskID      string
	Title       *string
	Description *string
	Status      *string
	Priority    *int
	DueAt       *time.Time
	ClearDueAt  bool
}

// UpdateTask patches one task owned by the caller.
func (s *Service) UpdateTask(ctx context.Context, req UpdateTaskRequest) (storage.TaskRecord, error) {
	record, err := s.GetTask(ctx, req.UserID, req.TaskID)
	if err != nil {
		return storage.TaskRecord{}, err
	}
	if req.Title == nil && req.Description == nil && req.Status == nil && req.Priority == nil && req.DueAt == nil && !req.ClearDueAt {
		return storage.TaskRecord{}, fmt.Errorf("%w: nothing to update", ErrInvalidArgument)
	}
	if req.DueAt != nil && req.ClearDueAt {
		return storage.TaskRecord{}, fmt.Errorf("%w: due_at and clear_due_at are mutually exclusive", ErrInvalidArgument)
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return storage.TaskRecord{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidArgument)
		}
		record.Title = title
	}
	if req.Description != nil {
		record.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status, err := storage.ParseTaskStatus(*req.Status)
		if err != nil {
			return storage.TaskRecord{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		record.Status = status
	}
	if req.Priority != nil {
		if *req.Priority < classifier.MinPriority || *req.Priority > classifier.MaxPriority {
			return storage.TaskRecord{}, fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidArgument, classifier.MinPriority, classifier.MaxPriority)
		}
		record.Priority = *req.Priority
	}
	if req.DueAt != nil {
		due := req.DueAt.UTC()
		record.DueAt = &due
	}
	if req.ClearDueAt {
		record.DueAt = nil
	}
	record.UpdatedAt = s.nowUTC()
	if err := s.store.UpdateTask(ctx, record); err != nil {
		return storage.TaskRecord{}, err
	}
	return record, nil
}

// DeleteTask removes one task owned by the caller.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	if _, err := s.GetTask(ctx, userID, taskID); err != nil {
		return err
	}
	return s.store.DeleteTask(ctx, strings.TrimSpace(taskID))
}
