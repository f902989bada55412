package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

const taskColumns = "id, classification_id, message_id, user_id, title, description, status, priority, due_at, created_at, updated_at"

// PutTask inserts one task row.
func (s *Store) PutTask(ctx context.Context, record storage.TaskRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	normalized, err := normalizeTaskRecord(record)
	if err != nil {
		return err
	}

	var dueAt sql.NullInt64
	if normalized.DueAt != nil {
		dueAt = sql.NullInt64{Int64: toMillis(*normalized.DueAt), Valid: true}
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO tasks (id, classification_id, message_id, user_id, title, description, status, priority, due_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.ClassificationID,
		normalized.MessageID,
		normalized.UserID,
		normalized.Title,
		normalized.Description,
		normalized.Status,
		normalized.Priority,
		dueAt,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return fmt.Errorf("put task: classification %q does not exist", normalized.ClassificationID)
		}
		return fmt.Errorf("put task: %w", err)
	}
	return nil
}

// GetTask loads one task row by id.
func (s *Store) GetTask(ctx context.Context, id string) (storage.TaskRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.TaskRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.TaskRecord{}, fmt.Errorf("task id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE id = ?
`, id)
	record, err := scanTask(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.TaskRecord{}, storage.ErrNotFound
		}
		return storage.TaskRecord{}, fmt.Errorf("get task: %w", err)
	}
	return record, nil
}

// GetTaskByClassificationID loads one task row by its source classification.
func (s *Store) GetTaskByClassificationID(ctx context.Context, classificationID string) (storage.TaskRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.TaskRecord{}, err
	}
	classificationID = strings.TrimSpace(classificationID)
	if classificationID == "" {
		return storage.TaskRecord{}, fmt.Errorf("classification id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE classification_id = ?
`, classificationID)
	record, err := scanTask(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.TaskRecord{}, storage.ErrNotFound
		}
		return storage.TaskRecord{}, fmt.Errorf("get task by classification id: %w", err)
	}
	return record, nil
}

// ListTasks lists one owner's tasks newest-first with cursor pagination.
func (s *Store) ListTasks(ctx context.Context, req storage.ListTasksRequest) (storage.TaskPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.TaskPage{}, err
	}
	userID := strings.TrimSpace(req.UserID)
	pageToken := strings.TrimSpace(req.PageToken)
	if userID == "" {
		return storage.TaskPage{}, fmt.Errorf("user id is required")
	}
	if req.PageSize <= 0 {
		return storage.TaskPage{}, fmt.Errorf("page size must be greater than zero")
	}

	conditions := []string{"user_id = ?"}
	params := []any{userID}
	if status := storage.TaskStatus(strings.TrimSpace(string(req.Status))); status != "" {
		conditions = append(conditions, "status = ?")
		params = append(params, status)
	}
	if pageToken != "" {
		tokenCreatedAt, err := s.taskCreatedAtByID(ctx, userID, pageToken)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return storage.TaskPage{}, nil
			}
			return storage.TaskPage{}, err
		}
		conditions = append(conditions, "(created_at < ? OR (created_at = ? AND id < ?))")
		params = append(params, toMillis(tokenCreatedAt), toMillis(tokenCreatedAt), pageToken)
	}

	limit := req.PageSize + 1
	query := fmt.Sprintf(`
SELECT %s
FROM tasks
WHERE %s
ORDER BY created_at DESC, id DESC
LIMIT ?
`, taskColumns, strings.Join(conditions, " AND "))

	rows, err := s.sqlDB.QueryContext(ctx, query, append(params, limit)...)
	if err != nil {
		return storage.TaskPage{}, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return collectTaskPage(rows, req.PageSize)
}

// UpdateTask rewrites one task row's mutable fields.
func (s *Store) UpdateTask(ctx context.Context, record storage.TaskRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	normalized, err := normalizeTaskRecord(record)
	if err != nil {
		return err
	}

	var dueAt sql.NullInt64
	if normalized.DueAt != nil {
		dueAt = sql.NullInt64{Int64: toMillis(*normalized.DueAt), Valid: true}
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE tasks
SET title = ?, description = ?, status = ?, priority = ?, due_at = ?, updated_at = ?
WHERE id = ?
`,
		normalized.Title,
		normalized.Description,
		normalized.Status,
		normalized.Priority,
		dueAt,
		toMillis(normalized.UpdatedAt),
		normalized.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTask removes one task row.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("task id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) taskCreatedAtByID(ctx context.Context, userID string, taskID string) (time.Time, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT created_at
FROM tasks
WHERE user_id = ? AND id = ?
`, userID, taskID)
	var createdAtMillis int64
	if err := row.Scan(&createdAtMillis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("lookup task cursor: %w", err)
	}
	return fromMillis(createdAtMillis), nil
}

func normalizeTaskRecord(record storage.TaskRecord) (storage.TaskRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.ClassificationID = strings.TrimSpace(record.ClassificationID)
	record.MessageID = strings.TrimSpace(record.MessageID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.Title = strings.TrimSpace(record.Title)
	record.Description = strings.TrimSpace(record.Description)
	record.Status = storage.TaskStatus(strings.TrimSpace(string(record.Status)))
	if record.ID == "" {
		return storage.TaskRecord{}, fmt.Errorf("task id is required")
	}
	if record.ClassificationID == "" {
		return storage.TaskRecord{}, fmt.Errorf("classification id is required")
	}
	if record.Title == "" {
		return storage.TaskRecord{}, fmt.Errorf("title is required")
	}
	if record.Status == "" {
		return storage.TaskRecord{}, fmt.Errorf("status is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.TaskRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.TaskRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.DueAt != nil {
		value := record.DueAt.UTC()
		record.DueAt = &value
	}
	return record, nil
}

func scanTask(scan scanner) (storage.TaskRecord, error) {
	var record storage.TaskRecord
	var dueAt sql.NullInt64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.ClassificationID,
		&record.MessageID,
		&record.UserID,
		&record.Title,
		&record.Description,
		&record.Status,
		&record.Priority,
		&dueAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.TaskRecord{}, err
	}
	if dueAt.Valid {
		value := fromMillis(dueAt.Int64)
		record.DueAt = &value
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func collectTaskPage(rows *sql.Rows, pageSize int) (storage.TaskPage, error) {
	page := storage.TaskPage{
		Tasks: make([]storage.TaskRecord, 0, pageSize),
	}
	for rows.Next() {
		record, err := scanTask(rows.Scan)
		if err != nil {
			return storage.TaskPage{}, fmt.Errorf("scan task row: %w", err)
		}
		page.Tasks = append(page.Tasks, record)
	}
	if err := rows.Err(); err != nil {
		return storage.TaskPage{}, fmt.Errorf("iterate task rows: %w", err)
	}
	if len(page.Tasks) > pageSize {
		page.NextPageToken = page.Tasks[pageSize-1].ID
		page.Tasks = page.Tasks[:pageSize]
	}
	return page, nil
}
