// Package events publishes classification lifecycle events to downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// DefaultTopicID is the Pub/Sub topic classification events are published to.
const DefaultTopicID = "classification-events"

// EventTypeClassificationCreated marks a newly stored classification.
const EventTypeClassificationCreated = "classification.created"

// Event is one classification lifecycle event as it crosses the wire.
type Event struct {
	EventType        string        `json:"event_type"`
	ClassificationID string        `json:"classification_id"`
	MessageID        string        `json:"message_id"`
	UserID           string        `json:"user_id,omitempty"`
	Label            storage.Label `json:"label"`
	Priority         int           `json:"priority"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Publisher delivers classification events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewClassificationCreated builds the created event for one stored record.
func NewClassificationCreated(record storage.ClassificationRecord) Event {
	return Event{
		EventType:        EventTypeClassificationCreated,
		ClassificationID: record.ID,
		MessageID:        record.MessageID,
		UserID:           record.UserID,
		Label:            record.Label,
		Priority:         record.Priority,
		CreatedAt:        record.CreatedAt,
	}
}

// EncodeEvent serializes one event for the wire.
func EncodeEvent(event Event) ([]byte, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

// DecodeEvent parses one wire event and validates its required fields.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := validateEvent(event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func validateEvent(event Event) error {
	if strings.TrimSpace(event.EventType) == "" {
		return fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(event.ClassificationID) == "" {
		return fmt.Errorf("classification id is required")
	}
	if strings.TrimSpace(event.MessageID) == "" {
		return fmt.Errorf("message id is required")
	}
	if strings.TrimSpace(string(event.Label)) == "" {
		return fmt.Errorf("label is required")
	}
	return nil
}
