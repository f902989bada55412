// Package domain handles classification events consumed by the notifier.
package domain

import (
	"log"
	"sync"

	"github.com/mailroomhq/triage/internal/services/triage/events"
)

// UrgentPriority is the lowest priority flagged for immediate attention.
const UrgentPriority = 8

// Urgent reports whether an event warrants immediate attention.
func Urgent(event events.Event) bool {
	return event.Priority >= UrgentPriority
}

// Stats is a snapshot of handler counters.
type Stats struct {
	Received  int
	Urgent    int
	Malformed int
}

// Handler consumes classification event payloads and keeps running
// counts. It never fails: malformed payloads are counted and dropped so
// the subscriber can ack them.
type Handler struct {
	mu    sync.Mutex
	stats Stats
	logf  func(format string, args ...any)
}

// NewHandler builds an event handler logging through the standard logger.
func NewHandler() *Handler {
	return &Handler{logf: log.Printf}
}

// Handle processes one raw event payload.
func (h *Handler) Handle(data []byte) {
	event, err := events.DecodeEvent(data)
	if err != nil {
		h.mu.Lock()
		h.stats.Received++
		h.stats.Malformed++
		h.mu.Unlock()
		h.printf("drop malformed event: %v", err)
		return
	}

	urgent := Urgent(event)
	h.mu.Lock()
	h.stats.Received++
	if urgent {
		h.stats.Urgent++
	}
	h.mu.Unlock()

	if urgent {
		h.printf("URGENT classification=%s message=%s user=%s label=%s priority=%d",
			event.ClassificationID, event.MessageID, event.UserID, event.Label, event.Priority)
		return
	}
	h.printf("classification=%s message=%s user=%s label=%s priority=%d",
		event.ClassificationID, event.MessageID, event.UserID, event.Label, event.Priority)
}

// Stats returns a snapshot of the counters.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Handler) printf(format string, args ...any) {
	if h == nil || h.logf == nil {
		return
	}
	h.logf(format, args...)
}
