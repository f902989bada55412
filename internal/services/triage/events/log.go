package events

import (
	"context"
	"log"
)

// LogPublisher writes events to the process log. It stands in for Pub/Sub in
// local development when no project is configured.
type LogPublisher struct{}

// NewLogPublisher builds the log-only publisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish logs one event.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	log.Printf("event %s classification=%s message=%s label=%s priority=%d",
		event.EventType, event.ClassificationID, event.MessageID, event.Label, event.Priority)
	return nil
}
