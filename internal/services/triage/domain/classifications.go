package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mailroomhq/triage/internal/services/triage/classifier"
	"github.com/mailroomhq/triage/internal/services/triage/filter"
	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// CreateClassificationRequest stores one manually labeled classification.
type CreateClassificationRequest struct {
	UserID    string
	MessageID string
	Label     string
	Priority  int
	Summary   string
}

// CreateClassification stores one manual classification row. Creating a
// row for an already-classified message returns the stored row instead of
// writing a second one.
func (s *Service) CreateClassification(ctx context.Context, req CreateClassificationRequest) (storage.ClassificationRecord, error) {
	if s == nil || s.store == nil {
		return storage.ClassificationRecord{}, ErrStoreNotConfigured
	}
	messageID := strings.TrimSpace(req.MessageID)
	if messageID == "" {
		return storage.ClassificationRecord{}, ErrMessageIDRequired
	}
	label, err := storage.ParseLabel(req.Label)
	if err != nil {
		return storage.ClassificationRecord{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if req.Priority < classifier.MinPriority || req.Priority > classifier.MaxPriority {
		return storage.ClassificationRecord{}, fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidArgument, classifier.MinPriority, classifier.MaxPriority)
	}

	existing, err := s.store.GetClassificationByMessageID(ctx, messageID)
	switch {
	case err == nil:
		if !visible(existing.UserID, req.UserID) {
			return storage.ClassificationRecord{}, fmt.Errorf("message %q already classified: %w", messageID, storage.ErrConflict)
		}
		return existing, nil
	case !errors.Is(err, storage.ErrNotFound):
		return storage.ClassificationRecord{}, err
	}

	recordID, err := s.newID()
	if err != nil {
		return storage.ClassificationRecord{}, fmt.Errorf("new classification id: %w", err)
	}
	now := s.nowUTC()
	record := storage.ClassificationRecord{
		ID:        recordID,
		MessageID: messageID,
		UserID:    strings.TrimSpace(req.UserID),
		Label:     label,
		Priority:  req.Priority,
		Summary:   strings.TrimSpace(req.Summary),
		Source:    storage.SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutClassification(ctx, record); err != nil {
		if !errors.Is(err, storage.ErrConflict) {
			return storage.ClassificationRecord{}, err
		}
		stored, lookupErr := s.store.GetClassificationByMessageID(ctx, messageID)
		if lookupErr != nil {
			if errors.Is(lookupErr, storage.ErrNotFound) {
				return storage.ClassificationRecord{}, err
			}
			return storage.ClassificationRecord{}, lookupErr
		}
		if !visible(stored.UserID, req.UserID) {
			return storage.ClassificationRecord{}, fmt.Errorf("message %q already classified: %w", messageID, storage.ErrConflict)
		}
		return stored, nil
	}
	s.publishCreated(record)
	return record, nil
}

// GetClassification loads one classification visible to the caller.
func (s *Service) GetClassification(ctx context.Context, userID, classificationID string) (storage.ClassificationRecord, error) {
	if s == nil || s.store == nil {
		return storage.ClassificationRecord{}, ErrStoreNotConfigured
	}
	classificationID = strings.TrimSpace(classificationID)
	if classificationID == "" {
		return storage.ClassificationRecord{}, ErrClassificationIDRequired
	}
	record, err := s.store.GetClassification(ctx, classificationID)
	if err != nil {
		return storage.ClassificationRecord{}, err
	}
	if !visible(record.UserID, userID) {
		return storage.ClassificationRecord{}, fmt.Errorf("classification %q: %w", classificationID, storage.ErrNotFound)
	}
	return record, nil
}

// ListClassificationsRequest describes one listing call.
type ListClassificationsRequest struct {
	// UserID scopes the listing to the caller's rows when set.
	UserID string
	// Filter is an AIP-160 expression over the classification fields.
	Filter string
	// OrderBy selects "created_at desc" (default) or "priority desc".
	OrderBy string
	// PageSize caps the rows returned.
	PageSize int
	// PageToken resumes a prior listing under the same filter and order.
	PageToken string
}

// ListClassifications lists stored classifications with filtering,
// ordering, and keyset pagination.
func (s *Service) ListClassifications(ctx context.Context, req ListClassificationsRequest) (storage.ClassificationPage, error) {
	if s == nil || s.store == nil {
		return storage.ClassificationPage{}, ErrStoreNotConfigured
	}
	condition, err := filter.ParseClassificationFilter(req.Filter)
	if err != nil {
		return storage.ClassificationPage{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	orderBy, err := parseOrderBy(req.OrderBy)
	if err != nil {
		return storage.ClassificationPage{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return s.store.ListClassifications(ctx, storage.ListClassificationsRequest{
		UserID:       strings.TrimSpace(req.UserID),
		FilterClause: condition.Clause,
		FilterParams: condition.Params,
		Filter:       strings.TrimSpace(req.Filter),
		OrderBy:      orderBy,
		PageSize:     clampPageSize(req.PageSize),
		PageToken:    strings.TrimSpace(req.PageToken),
	})
}

func parseOrderBy(value string) (storage.OrderBy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "created_at", string(storage.OrderByCreatedAtDesc):
		return storage.OrderByCreatedAtDesc, nil
	case "priority", string(storage.OrderByPriorityDesc):
		return storage.OrderByPriorityDesc, nil
	default:
		return "", fmt.Errorf("unsupported order_by %q", value)
	}
}

// UpdateClassificationRequest patches one row. Nil fields keep their
// stored values.
type UpdateClassificationRequest struct {
	UserID           string
	ClassificationID string
	Label            *string
	Priority         *int
}

// UpdateClassification patches label and priority on one row. Edited rows
// are marked as manually sourced.
func (s *Service) UpdateClassification(ctx context.Context, req UpdateClassificationRequest) (storage.ClassificationRecord, error) {
	record, err := s.GetClassification(ctx, req.UserID, req.ClassificationID)
	if err != nil {
		return storage.ClassificationRecord{}, err
	}
	if req.Label == nil && req.Priority == nil {
		return storage.ClassificationRecord{}, fmt.Errorf("%w: nothing to update", ErrInvalidArgument)
	}
	if req.Label != nil {
		label, err := storage.ParseLabel(*req.Label)
		if err != nil {
			return storage.ClassificationRecord{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		record.Label = label
	}
	if req.Priority != nil {
		if *req.Priority < classifier.MinPriority || *req.Priority > classifier.MaxPriority {
			return storage.ClassificationRecord{}, fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidArgument, classifier.MinPriority, classifier.MaxPriority)
		}
		record.Priority = *req.Priority
	}
	record.Source = storage.SourceManual
	record.UpdatedAt = s.nowUTC()
	if err := s.store.UpdateClassification(ctx, record); err != nil {
		return storage.ClassificationRecord{}, err
	}
	return record, nil
}

// DeleteClassification removes one row visible to the caller. The store
// cascades the delete to any generated task.
func (s *Service) DeleteClassification(ctx context.Context, userID, classificationID string) error {
	if _, err := s.GetClassification(ctx, userID, classificationID); err != nil {
		return err
	}
	return s.store.DeleteClassification(ctx, strings.TrimSpace(classificationID))
}
