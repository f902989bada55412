package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// PutBrief upserts one brief row keyed by (user id, brief date). Regenerating
// a brief for the same day rewrites the counts and items but keeps the
// original row id and created_at.
func (s *Store) PutBrief(ctx context.Context, record storage.BriefRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	normalized, err := normalizeBriefRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO briefs (
	id, user_id, brief_date, total_messages, todo_count, followup_count, noise_count, high_priority_count, items_json, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, brief_date) DO UPDATE SET
	total_messages = excluded.total_messages,
	todo_count = excluded.todo_count,
	followup_count = excluded.followup_count,
	noise_count = excluded.noise_count,
	high_priority_count = excluded.high_priority_count,
	items_json = excluded.items_json,
	updated_at = excluded.updated_at
`,
		normalized.ID,
		normalized.UserID,
		normalized.BriefDate,
		normalized.TotalMessages,
		normalized.TodoCount,
		normalized.FollowupCount,
		normalized.NoiseCount,
		normalized.HighPriorityCount,
		normalized.ItemsJSON,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put brief: %w", err)
	}
	return nil
}

// GetBrief loads one brief row by owner and date.
func (s *Store) GetBrief(ctx context.Context, userID string, briefDate string) (storage.BriefRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.BriefRecord{}, err
	}
	userID = strings.TrimSpace(userID)
	briefDate = strings.TrimSpace(briefDate)
	if userID == "" {
		return storage.BriefRecord{}, fmt.Errorf("user id is required")
	}
	if briefDate == "" {
		return storage.BriefRecord{}, fmt.Errorf("brief date is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, brief_date, total_messages, todo_count, followup_count, noise_count, high_priority_count, items_json, created_at, updated_at
FROM briefs
WHERE user_id = ? AND brief_date = ?
`, userID, briefDate)

	var record storage.BriefRecord
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.BriefDate,
		&record.TotalMessages,
		&record.TodoCount,
		&record.FollowupCount,
		&record.NoiseCount,
		&record.HighPriorityCount,
		&record.ItemsJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BriefRecord{}, storage.ErrNotFound
		}
		return storage.BriefRecord{}, fmt.Errorf("get brief: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func normalizeBriefRecord(record storage.BriefRecord) (storage.BriefRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.BriefDate = strings.TrimSpace(record.BriefDate)
	record.ItemsJSON = strings.TrimSpace(record.ItemsJSON)
	if record.ID == "" {
		return storage.BriefRecord{}, fmt.Errorf("brief id is required")
	}
	if record.UserID == "" {
		return storage.BriefRecord{}, fmt.Errorf("user id is required")
	}
	if record.BriefDate == "" {
		return storage.BriefRecord{}, fmt.Errorf("brief date is required")
	}
	if record.ItemsJSON == "" {
		record.ItemsJSON = "[]"
	}
	if record.CreatedAt.IsZero() {
		return storage.BriefRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.BriefRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}
