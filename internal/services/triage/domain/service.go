// Package domain implements triage behavior: classification runs, task
// generation, and daily briefs over the storage, classifier, gateway, and
// event publisher boundaries.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mailroomhq/triage/internal/platform/id"
	"github.com/mailroomhq/triage/internal/services/triage/classifier"
	"github.com/mailroomhq/triage/internal/services/triage/events"
	"github.com/mailroomhq/triage/internal/services/triage/integrations"
	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("triage store is not configured")
	// ErrGatewayNotConfigured indicates an operation needs the message gateway
	// but none is wired.
	ErrGatewayNotConfigured = errors.New("message gateway is not configured")
	// ErrUserIDRequired indicates caller identity is required.
	ErrUserIDRequired = errors.New("user id is required")
	// ErrMessageIDRequired indicates a message id is required.
	ErrMessageIDRequired = errors.New("message id is required")
	// ErrClassificationIDRequired indicates a classification id is required.
	ErrClassificationIDRequired = errors.New("classification id is required")
	// ErrTaskIDRequired indicates a task id is required.
	ErrTaskIDRequired = errors.New("task id is required")
	// ErrInvalidArgument indicates a request field failed validation.
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	// Batch limits bound gateway pulls for classify runs and candidate
	// scans for task generation.
	defaultBatchLimit = 50
	maxBatchLimit     = 200
)

// MessageGateway reads inbox messages from the upstream message gateway.
type MessageGateway interface {
	GetMessage(ctx context.Context, id string) (integrations.Message, error)
	ListMessages(ctx context.Context, req integrations.ListRequest) ([]integrations.Message, error)
}

// Service orchestrates classification, task, and brief behavior.
type Service struct {
	store      storage.Store
	gateway    MessageGateway
	classifier classifier.Classifier
	publisher  events.Publisher
	clock      func() time.Time
	newID      func() (string, error)
}

// Config carries optional service wiring. Zero fields fall back to the
// keyword classifier, a log publisher, the system clock, and random ids.
type Config struct {
	Classifier classifier.Classifier
	Publisher  events.Publisher
	Clock      func() time.Time
	NewID      func() (string, error)
}

// NewService builds a triage service over its store and message gateway.
// The gateway may be nil; operations that need it fail with
// ErrGatewayNotConfigured.
func NewService(store storage.Store, gateway MessageGateway, cfg Config) *Service {
	svc := &Service{
		store:      store,
		gateway:    gateway,
		classifier: cfg.Classifier,
		publisher:  cfg.Publisher,
		clock:      cfg.Clock,
		newID:      cfg.NewID,
	}
	if svc.classifier == nil {
		svc.classifier = classifier.NewKeyword()
	}
	if svc.publisher == nil {
		svc.publisher = events.NewLogPublisher()
	}
	if svc.clock == nil {
		svc.clock = time.Now
	}
	if svc.newID == nil {
		svc.newID = id.NewID
	}
	return svc
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

// visible reports whether a row owned by owner may be served to caller.
// Unowned rows are public and anonymous callers are unscoped.
func visible(owner, caller string) bool {
	return owner == "" || caller == "" || owner == caller
}

func clampPageSize(pageSize int) int {
	switch {
	case pageSize <= 0:
		return defaultPageSize
	case pageSize > maxPageSize:
		return maxPageSize
	default:
		return pageSize
	}
}

func clampBatchLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultBatchLimit
	case limit > maxBatchLimit:
		return maxBatchLimit
	default:
		return limit
	}
}

// dedupeIDs trims, drops blanks, and keeps the first occurrence of each id.
func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
