// Package brief assembles daily digests of classified messages.
package brief

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// DateLayout is the wire and storage format for brief dates.
const DateLayout = "2006-01-02"

const (
	// DefaultMaxItems is how many items a digest keeps when the request
	// does not say.
	DefaultMaxItems = 10
	// MaxItems caps how many items a digest may keep.
	MaxItems = 50
	// HighPriorityThreshold is the lowest priority counted as high.
	HighPriorityThreshold = 8
)

// Item is one classification surfaced in a digest.
type Item struct {
	ClassificationID string        `json:"classification_id"`
	MessageID        string        `json:"message_id"`
	Label            storage.Label `json:"label"`
	Priority         int           `json:"priority"`
	Summary          string        `json:"summary,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Digest is the computed content of one daily brief.
type Digest struct {
	TotalMessages     int
	TodoCount         int
	FollowupCount     int
	NoiseCount        int
	HighPriorityCount int
	Items             []Item
}

// Build computes the digest for one day's classifications. Counts cover
// every record; Items keeps the top maxItems by priority, newest first
// within a priority.
func Build(records []storage.ClassificationRecord, maxItems int) Digest {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if maxItems > MaxItems {
		maxItems = MaxItems
	}

	digest := Digest{TotalMessages: len(records)}
	for _, record := range records {
		switch record.Label {
		case storage.LabelTodo:
			digest.TodoCount++
		case storage.LabelFollowup:
			digest.FollowupCount++
		case storage.LabelNoise:
			digest.NoiseCount++
		}
		if record.Priority >= HighPriorityThreshold {
			digest.HighPriorityCount++
		}
	}

	ordered := append([]storage.ClassificationRecord(nil), records...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	if len(ordered) > maxItems {
		ordered = ordered[:maxItems]
	}

	digest.Items = make([]Item, 0, len(ordered))
	for _, record := range ordered {
		digest.Items = append(digest.Items, Item{
			ClassificationID: record.ID,
			MessageID:        record.MessageID,
			Label:            record.Label,
			Priority:         record.Priority,
			Summary:          record.Summary,
			CreatedAt:        record.CreatedAt,
		})
	}
	return digest
}

// MarshalItems encodes digest items for storage.
func MarshalItems(items []Item) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal brief items: %w", err)
	}
	return string(encoded), nil
}

// UnmarshalItems decodes stored digest items.
func UnmarshalItems(encoded string) ([]Item, error) {
	if encoded == "" {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(encoded), &items); err != nil {
		return nil, fmt.Errorf("unmarshal brief items: %w", err)
	}
	return items, nil
}

// ParseDate parses one YYYY-MM-DD brief date.
func ParseDate(value string) (time.Time, error) {
	day, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid brief date %q", value)
	}
	return day, nil
}

// DayRange returns the [from, to) bounds of the day containing t.
func DayRange(t time.Time) (time.Time, time.Time) {
	year, month, day := t.Date()
	from := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 0, 1)
}
