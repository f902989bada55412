package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailroomhq/triage/internal/services/triage/brief"
	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// GenerateBriefRequest builds a daily digest for one user.
type GenerateBriefRequest struct {
	UserID string
	// Date selects the brief day in YYYY-MM-DD form. Empty means today.
	Date string
	// MaxItems caps the highlighted classifications.
	MaxItems int
}

// GenerateBrief summarizes the classifications created on one day and
// stores the result. Regenerating the same day replaces the stored counts
// and items but keeps the brief's identity.
func (s *Service) GenerateBrief(ctx context.Context, req GenerateBriefRequest) (storage.BriefRecord, error) {
	if s == nil || s.store == nil {
		return storage.BriefRecord{}, ErrStoreNotConfigured
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return storage.BriefRecord{}, ErrUserIDRequired
	}
	day := s.nowUTC()
	if value := strings.TrimSpace(req.Date); value != "" {
		parsed, err := brief.ParseDate(value)
		if err != nil {
			return storage.BriefRecord{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		day = parsed
	}

	start, end := brief.DayRange(day)
	records, err := s.store.ListClassificationsInRange(ctx, userID, start, end)
	if err != nil {
		return storage.BriefRecord{}, fmt.Errorf("list classifications for %s: %w", day.Format(brief.DateLayout), err)
	}
	digest := brief.Build(records, req.MaxItems)
	items, err := brief.MarshalItems(digest.Items)
	if err != nil {
		return storage.BriefRecord{}, err
	}

	briefID, err := s.newID()
	if err != nil {
		return storage.BriefRecord{}, fmt.Errorf("new brief id: %w", err)
	}
	now := s.nowUTC()
	record := storage.BriefRecord{
		ID:                briefID,
		UserID:            userID,
		BriefDate:         day.Format(brief.DateLayout),
		TotalMessages:     digest.TotalMessages,
		TodoCount:         digest.TodoCount,
		FollowupCount:     digest.FollowupCount,
		NoiseCount:        digest.NoiseCount,
		HighPriorityCount: digest.HighPriorityCount,
		ItemsJSON:         items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.PutBrief(ctx, record); err != nil {
		return storage.BriefRecord{}, fmt.Errorf("store brief for %s: %w", record.BriefDate, err)
	}
	stored, err := s.store.GetBrief(ctx, userID, record.BriefDate)
	if err != nil {
		return storage.BriefRecord{}, fmt.Errorf("reload brief for %s: %w", record.BriefDate, err)
	}
	return stored, nil
}

// GetBrief loads the stored digest for one day.
func (s *Service) GetBrief(ctx context.Context, userID, date string) (storage.BriefRecord, error) {
	if s == nil || s.store == nil {
		return storage.BriefRecord{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.BriefRecord{}, ErrUserIDRequired
	}
	day, err := brief.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return storage.BriefRecord{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return s.store.GetBrief(ctx, userID, day.Format(brief.DateLayout))
}
