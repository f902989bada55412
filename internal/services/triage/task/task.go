// Package task derives actionable task fields from classified messages.
package task

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// titleSnippetLimit caps how many snippet runes a derived title keeps.
const titleSnippetLimit = 50

// Message carries the source message fields task generation draws on.
type Message struct {
	Sender     string
	Channel    string
	Subject    string
	Snippet    string
	ReceivedAt time.Time
}

// Title derives a task title. The subject wins when present, then a
// truncated snippet, then the sender.
func Title(msg Message) string {
	if subject := strings.TrimSpace(msg.Subject); subject != "" {
		return subject
	}
	if snippet := strings.TrimSpace(msg.Snippet); snippet != "" {
		if utf8.RuneCountInString(snippet) > titleSnippetLimit {
			return string([]rune(snippet)[:titleSnippetLimit]) + "..."
		}
		return snippet
	}
	return "Task from " + msg.Sender
}

// Describe renders a task description from the message and its
// classification.
func Describe(msg Message, label storage.Label, priority int) string {
	parts := make([]string, 0, 6)
	if subject := strings.TrimSpace(msg.Subject); subject != "" {
		parts = append(parts, "Subject: "+subject)
	}
	parts = append(parts, "From: "+msg.Sender)
	parts = append(parts, "Channel: "+msg.Channel)
	parts = append(parts, "Received: "+msg.ReceivedAt.UTC().Format("2006-01-02 15:04"))
	if snippet := strings.TrimSpace(msg.Snippet); snippet != "" {
		parts = append(parts, "\nMessage:\n"+snippet)
	}
	parts = append(parts, fmt.Sprintf("\nClassification: %s (Priority: %d)", label, priority))
	return strings.Join(parts, "\n")
}

// DueAt picks a due date for one task. Deadline phrases in the message win
// over the label defaults; "eod today" outranks a stray "tomorrow"
// elsewhere in the text. Every due date lands at 23:59 of its day in the
// clock's location. Labels without a default return nil.
func DueAt(label storage.Label, priority int, msg Message, now time.Time) *time.Time {
	content := strings.ToLower(msg.Subject + " " + msg.Snippet)
	switch {
	case strings.Contains(content, "eod today"), strings.Contains(content, "end of day today"):
		return endOfDay(now)
	case strings.Contains(content, "tomorrow"):
		return endOfDay(now.AddDate(0, 0, 1))
	case strings.Contains(content, "eod"), strings.Contains(content, "end of day"):
		return endOfDay(now)
	case strings.Contains(content, "this week"):
		return endOfDay(now.AddDate(0, 0, daysUntilFriday(now)))
	case strings.Contains(content, "next week"):
		return endOfDay(now.AddDate(0, 0, daysUntilFriday(now)+7))
	case label == storage.LabelTodo && priority >= 8:
		return endOfDay(now.AddDate(0, 0, 1))
	case label == storage.LabelTodo:
		return endOfDay(now.AddDate(0, 0, 3))
	case label == storage.LabelFollowup:
		return endOfDay(now.AddDate(0, 0, 5))
	}
	return nil
}

func endOfDay(t time.Time) *time.Time {
	year, month, day := t.Date()
	due := time.Date(year, month, day, 23, 59, 0, 0, t.Location())
	return &due
}

// daysUntilFriday is zero when t already falls on a Friday.
func daysUntilFriday(t time.Time) int {
	return (int(time.Friday) - int(t.Weekday()) + 7) % 7
}
