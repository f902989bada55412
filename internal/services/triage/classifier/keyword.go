package classifier

import (
	"context"
	"strings"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// Indicator lists scored against the lowercased subject and snippet.
var (
	urgencyIndicators  = []string{"urgent", "asap", "deadline", "due tomorrow", "critical", "immediately"}
	actionIndicators   = []string{"need to", "should", "must", "please", "can you", "action", "task", "todo"}
	followupIndicators = []string{"follow up", "follow-up", "reminder", "check", "status", "update"}
	noiseIndicators    = []string{"newsletter", "unsubscribe", "marketing", "promotion", "sale"}
)

type keywordClassifier struct{}

// NewKeyword builds the deterministic keyword classifier used when no model
// provider is configured.
func NewKeyword() Classifier {
	return &keywordClassifier{}
}

func (c *keywordClassifier) Classify(ctx context.Context, msg Message) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	content := strings.ToLower(strings.TrimSpace(msg.Subject + " " + msg.Snippet))
	urgency := countHits(content, urgencyIndicators)
	action := countHits(content, actionIndicators)
	followup := countHits(content, followupIndicators)
	noise := countHits(content, noiseIndicators)

	result := Result{Summary: summarize(msg), Source: storage.SourceKeyword}
	switch {
	case urgency >= 1:
		result.Label = storage.LabelTodo
		result.Priority = clampPriority(8 + urgency - 1)
	case action >= 2:
		result.Label = storage.LabelTodo
		result.Priority = clampPriority(6 + min(action-2, 1))
	case followup >= 1:
		result.Label = storage.LabelFollowup
		result.Priority = clampPriority(4 + min(followup-1, 2))
	case noise >= 1:
		result.Label = storage.LabelNoise
		result.Priority = clampPriority(3 - min(noise-1, 2))
	default:
		result.Label = storage.LabelFollowup
		result.Priority = 5
	}
	return result, nil
}

func countHits(content string, indicators []string) int {
	hits := 0
	for _, indicator := range indicators {
		if strings.Contains(content, indicator) {
			hits++
		}
	}
	return hits
}
