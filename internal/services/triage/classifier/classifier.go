// Package classifier labels inbox messages and scores their priority.
package classifier

import (
	"context"
	"strings"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// Message carries the parts of an inbox message the classifiers read.
type Message struct {
	ID      string
	Channel string
	Sender  string
	Subject string
	Snippet string
}

// Result is one classification outcome. Source records which classifier
// produced it.
type Result struct {
	Label    storage.Label
	Priority int
	Summary  string
	Source   storage.Source
}

// Classifier labels one message.
type Classifier interface {
	Classify(ctx context.Context, msg Message) (Result, error)
}

// MinPriority and MaxPriority bound the priority scale.
const (
	MinPriority = 1
	MaxPriority = 10
)

func clampPriority(priority int) int {
	if priority < MinPriority {
		return MinPriority
	}
	if priority > MaxPriority {
		return MaxPriority
	}
	return priority
}

func summarize(msg Message) string {
	if subject := strings.TrimSpace(msg.Subject); subject != "" {
		return subject
	}
	snippet := strings.TrimSpace(msg.Snippet)
	if len(snippet) > 140 {
		return snippet[:140] + "..."
	}
	return snippet
}
