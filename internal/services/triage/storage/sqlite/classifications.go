package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailroomhq/triage/internal/platform/storage/cursor"
	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

const classificationColumns = "id, message_id, user_id, label, priority, summary, source, created_at, updated_at"

// PutClassification inserts one classification row.
func (s *Store) PutClassification(ctx context.Context, record storage.ClassificationRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	normalized, err := normalizeClassificationRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO classifications (id, message_id, user_id, label, priority, summary, source, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.MessageID,
		normalized.UserID,
		normalized.Label,
		normalized.Priority,
		normalized.Summary,
		normalized.Source,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put classification: %w", err)
	}
	return nil
}

// GetClassification loads one classification row by id.
func (s *Store) GetClassification(ctx context.Context, id string) (storage.ClassificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ClassificationRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ClassificationRecord{}, fmt.Errorf("classification id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+classificationColumns+`
FROM classifications
WHERE id = ?
`, id)
	record, err := scanClassification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ClassificationRecord{}, storage.ErrNotFound
		}
		return storage.ClassificationRecord{}, fmt.Errorf("get classification: %w", err)
	}
	return record, nil
}

// GetClassificationByMessageID loads one classification row by message id.
func (s *Store) GetClassificationByMessageID(ctx context.Context, messageID string) (storage.ClassificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ClassificationRecord{}, err
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return storage.ClassificationRecord{}, fmt.Errorf("message id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+classificationColumns+`
FROM classifications
WHERE message_id = ?
`, messageID)
	record, err := scanClassification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ClassificationRecord{}, storage.ErrNotFound
		}
		return storage.ClassificationRecord{}, fmt.Errorf("get classification by message id: %w", err)
	}
	return record, nil
}

// ListClassifications lists classification rows with filtering, ordering, and
// keyset pagination.
func (s *Store) ListClassifications(ctx context.Context, req storage.ListClassificationsRequest) (storage.ClassificationPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ClassificationPage{}, err
	}
	if req.PageSize <= 0 {
		return storage.ClassificationPage{}, fmt.Errorf("page size must be greater than zero")
	}
	orderBy := req.OrderBy
	if orderBy == "" {
		orderBy = storage.OrderByCreatedAtDesc
	}
	orderSQL, err := orderClause(orderBy)
	if err != nil {
		return storage.ClassificationPage{}, err
	}

	var where []string
	var params []any
	if userID := strings.TrimSpace(req.UserID); userID != "" {
		where = append(where, "user_id = ?")
		params = append(params, userID)
	}
	if clause := strings.TrimSpace(req.FilterClause); clause != "" {
		where = append(where, "("+clause+")")
		params = append(params, req.FilterParams...)
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		position, err := cursor.Decode(token)
		if err != nil {
			return storage.ClassificationPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidPageToken, err)
		}
		if err := cursor.ValidateFilterHash(position, req.Filter); err != nil {
			return storage.ClassificationPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidPageToken, err)
		}
		if err := cursor.ValidateOrderHash(position, string(orderBy)); err != nil {
			return storage.ClassificationPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidPageToken, err)
		}
		switch orderBy {
		case storage.OrderByPriorityDesc:
			where = append(where, "(priority < ? OR (priority = ? AND (created_at < ? OR (created_at = ? AND id < ?))))")
			params = append(params, position.Priority, position.Priority, position.CreatedAtMillis, position.CreatedAtMillis, position.ID)
		default:
			where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
			params = append(params, position.CreatedAtMillis, position.CreatedAtMillis, position.ID)
		}
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}
	limit := req.PageSize + 1
	query := fmt.Sprintf(`
SELECT %s
FROM classifications
%s
ORDER BY %s
LIMIT ?
`, classificationColumns, whereSQL, orderSQL)

	rows, err := s.sqlDB.QueryContext(ctx, query, append(params, limit)...)
	if err != nil {
		return storage.ClassificationPage{}, fmt.Errorf("list classifications: %w", err)
	}
	defer rows.Close()

	results := make([]storage.ClassificationRecord, 0, req.PageSize)
	for rows.Next() {
		record, scanErr := scanClassification(rows.Scan)
		if scanErr != nil {
			return storage.ClassificationPage{}, fmt.Errorf("scan classification row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return storage.ClassificationPage{}, fmt.Errorf("iterate classification rows: %w", err)
	}

	page := storage.ClassificationPage{Classifications: results}
	if len(results) > req.PageSize {
		page.Classifications = results[:req.PageSize]
		last := page.Classifications[len(page.Classifications)-1]
		token, err := cursor.Encode(cursor.New(toMillis(last.CreatedAt), last.Priority, last.ID, req.Filter, string(orderBy)))
		if err != nil {
			return storage.ClassificationPage{}, fmt.Errorf("encode page token: %w", err)
		}
		page.NextPageToken = token
	}
	return page, nil
}

// ListClassificationsByIDs loads classification rows for the given ids.
func (s *Store) ListClassificationsByIDs(ctx context.Context, ids []string) ([]storage.ClassificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	trimmed := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			trimmed = append(trimmed, id)
		}
	}
	if len(trimmed) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(trimmed)), ", ")
	params := make([]any, 0, len(trimmed))
	for _, id := range trimmed {
		params = append(params, id)
	}

	rows, err := s.sqlDB.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM classifications
WHERE id IN (%s)
ORDER BY created_at DESC, id DESC
`, classificationColumns, placeholders), params...)
	if err != nil {
		return nil, fmt.Errorf("list classifications by ids: %w", err)
	}
	defer rows.Close()

	results := make([]storage.ClassificationRecord, 0, len(trimmed))
	for rows.Next() {
		record, scanErr := scanClassification(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan classification row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classification rows: %w", err)
	}
	return results, nil
}

// ListClassificationsInRange lists one owner's rows created in [from, to).
func (s *Store) ListClassificationsInRange(ctx context.Context, userID string, from, to time.Time) ([]storage.ClassificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return nil, fmt.Errorf("time range is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+classificationColumns+`
FROM classifications
WHERE user_id = ?
  AND created_at >= ?
  AND created_at < ?
ORDER BY priority DESC, created_at DESC, id DESC
`, userID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("list classifications in range: %w", err)
	}
	defer rows.Close()

	var results []storage.ClassificationRecord
	for rows.Next() {
		record, scanErr := scanClassification(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan classification row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classification rows: %w", err)
	}
	return results, nil
}

// ListTaskCandidates lists one owner's actionable rows without tasks, newest-first.
func (s *Store) ListTaskCandidates(ctx context.Context, userID string, limit int) ([]storage.ClassificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+classificationColumns+`
FROM classifications
WHERE user_id = ?
  AND label IN (?, ?)
  AND NOT EXISTS (
    SELECT 1 FROM tasks t WHERE t.classification_id = classifications.id
  )
ORDER BY created_at DESC, id DESC
LIMIT ?
`, userID, storage.LabelTodo, storage.LabelFollowup, limit)
	if err != nil {
		return nil, fmt.Errorf("list task candidates: %w", err)
	}
	defer rows.Close()

	results := make([]storage.ClassificationRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanClassification(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan classification row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classification rows: %w", err)
	}
	return results, nil
}

// UpdateClassification rewrites one classification row's mutable fields.
func (s *Store) UpdateClassification(ctx context.Context, record storage.ClassificationRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	normalized, err := normalizeClassificationRecord(record)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE classifications
SET label = ?, priority = ?, summary = ?, source = ?, updated_at = ?
WHERE id = ?
`,
		normalized.Label,
		normalized.Priority,
		normalized.Summary,
		normalized.Source,
		toMillis(normalized.UpdatedAt),
		normalized.ID,
	)
	if err != nil {
		return fmt.Errorf("update classification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update classification rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteClassification removes one classification row.
func (s *Store) DeleteClassification(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("classification id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM classifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete classification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete classification rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func orderClause(orderBy storage.OrderBy) (string, error) {
	switch orderBy {
	case storage.OrderByCreatedAtDesc:
		return "created_at DESC, id DESC", nil
	case storage.OrderByPriorityDesc:
		return "priority DESC, created_at DESC, id DESC", nil
	default:
		return "", fmt.Errorf("unsupported order: %q", orderBy)
	}
}

func normalizeClassificationRecord(record storage.ClassificationRecord) (storage.ClassificationRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.MessageID = strings.TrimSpace(record.MessageID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.Label = storage.Label(strings.TrimSpace(string(record.Label)))
	record.Summary = strings.TrimSpace(record.Summary)
	record.Source = storage.Source(strings.TrimSpace(string(record.Source)))
	if record.ID == "" {
		return storage.ClassificationRecord{}, fmt.Errorf("classification id is required")
	}
	if record.MessageID == "" {
		return storage.ClassificationRecord{}, fmt.Errorf("message id is required")
	}
	if record.Label == "" {
		return storage.ClassificationRecord{}, fmt.Errorf("label is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.ClassificationRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.ClassificationRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func scanClassification(scan scanner) (storage.ClassificationRecord, error) {
	var record storage.ClassificationRecord
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.MessageID,
		&record.UserID,
		&record.Label,
		&record.Priority,
		&record.Summary,
		&record.Source,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.ClassificationRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
