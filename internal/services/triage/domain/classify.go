package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mailroomhq/triage/internal/platform/timeouts"
	"github.com/mailroomhq/triage/internal/services/triage/classifier"
	"github.com/mailroomhq/triage/internal/services/triage/events"
	"github.com/mailroomhq/triage/internal/services/triage/integrations"
	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// ClassifyRequest asks the service to classify a batch of messages.
type ClassifyRequest struct {
	// UserID is the caller identity stored on new rows. Empty for
	// anonymous calls.
	UserID string
	// MessageIDs names the messages to classify. Empty means pull the
	// caller's recent messages from the gateway.
	MessageIDs []string
	// Limit caps the recent-message pull when MessageIDs is empty.
	Limit int
	// Channel narrows the recent-message pull to one channel.
	Channel string
}

// ClassifyFailure reports one message the pipeline could not classify.
type ClassifyFailure struct {
	MessageID string
	Reason    string
}

// ClassifyResult reports one classification run.
type ClassifyResult struct {
	Processed       int
	Succeeded       int
	Duplicates      int
	Failed          int
	Failures        []ClassifyFailure
	Classifications []storage.ClassificationRecord
}

func (r *ClassifyResult) fail(messageID, reason string) {
	r.Failed++
	r.Failures = append(r.Failures, ClassifyFailure{MessageID: messageID, Reason: reason})
}

// Classify labels a batch of messages, storing one row per message and
// publishing a created event for each new row. Messages already classified
// are returned from the store without invoking the classifier. Missing
// messages and classifier failures are reported per item; storage and
// gateway transport failures abort the run.
func (s *Service) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResult, error) {
	if s == nil || s.store == nil {
		return ClassifyResult{}, ErrStoreNotConfigured
	}

	var result ClassifyResult
	if ids := dedupeIDs(req.MessageIDs); len(ids) > 0 {
		for _, messageID := range ids {
			if err := s.classifyOne(ctx, req.UserID, messageID, nil, &result); err != nil {
				return ClassifyResult{}, err
			}
		}
		return result, nil
	}

	if s.gateway == nil {
		return ClassifyResult{}, ErrGatewayNotConfigured
	}
	messages, err := s.gateway.ListMessages(ctx, integrations.ListRequest{
		Limit:   clampBatchLimit(req.Limit),
		Channel: strings.TrimSpace(req.Channel),
	})
	if err != nil {
		return ClassifyResult{}, fmt.Errorf("list recent messages: %w", err)
	}
	for i := range messages {
		if err := s.classifyOne(ctx, req.UserID, messages[i].ID, &messages[i], &result); err != nil {
			return ClassifyResult{}, err
		}
	}
	return result, nil
}

// classifyOne runs the pipeline for one message. A nil msg means the
// content still needs a gateway fetch.
func (s *Service) classifyOne(ctx context.Context, userID, messageID string, msg *integrations.Message, result *ClassifyResult) error {
	result.Processed++

	existing, err := s.store.GetClassificationByMessageID(ctx, messageID)
	switch {
	case err == nil:
		if !visible(existing.UserID, userID) {
			result.fail(messageID, "message already classified")
			return nil
		}
		result.Duplicates++
		result.Classifications = append(result.Classifications, existing)
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("check existing classification for message %q: %w", messageID, err)
	}

	if msg == nil {
		if s.gateway == nil {
			return ErrGatewayNotConfigured
		}
		fetched, err := s.gateway.GetMessage(ctx, messageID)
		if errors.Is(err, integrations.ErrMessageNotFound) {
			result.fail(messageID, "message not found")
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch message %q: %w", messageID, err)
		}
		msg = &fetched
	}

	outcome, err := s.classifier.Classify(ctx, classifier.Message{
		ID:      msg.ID,
		Channel: msg.Channel,
		Sender:  msg.Sender,
		Subject: msg.Subject,
		Snippet: msg.Snippet,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result.fail(messageID, err.Error())
		return nil
	}

	record, duplicate, err := s.persistClassification(ctx, userID, messageID, msg.Sender, outcome)
	if err != nil {
		return err
	}
	if duplicate {
		if !visible(record.UserID, userID) {
			result.fail(messageID, "message already classified")
			return nil
		}
		result.Duplicates++
		result.Classifications = append(result.Classifications, record)
		return nil
	}
	result.Succeeded++
	result.Classifications = append(result.Classifications, record)
	s.publishCreated(record)
	return nil
}

// persistClassification stores one new row. A concurrent duplicate for the
// same message is absorbed by reloading the stored row.
func (s *Service) persistClassification(ctx context.Context, userID, messageID, sender string, outcome classifier.Result) (storage.ClassificationRecord, bool, error) {
	recordID, err := s.newID()
	if err != nil {
		return storage.ClassificationRecord{}, false, fmt.Errorf("new classification id: %w", err)
	}
	now := s.nowUTC()
	record := storage.ClassificationRecord{
		ID:        recordID,
		MessageID: messageID,
		UserID:    strings.TrimSpace(userID),
		Label:     outcome.Label,
		Priority:  boostPriority(outcome.Priority, sender),
		Summary:   outcome.Summary,
		Source:    outcome.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutClassification(ctx, record); err != nil {
		if !errors.Is(err, storage.ErrConflict) {
			return storage.ClassificationRecord{}, false, fmt.Errorf("store classification for message %q: %w", messageID, err)
		}
		existing, lookupErr := s.store.GetClassificationByMessageID(ctx, messageID)
		if lookupErr != nil {
			return storage.ClassificationRecord{}, false, fmt.Errorf("reload classification for message %q: %w", messageID, lookupErr)
		}
		return existing, true, nil
	}
	return record, false, nil
}

// publishCreated emits the created event under its own deadline, detached
// from the request context. Publish failures are logged and dropped.
func (s *Service) publishCreated(record storage.ClassificationRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Publish)
	defer cancel()
	if err := s.publisher.Publish(ctx, events.NewClassificationCreated(record)); err != nil {
		log.Printf("publish classification.created for %s: %v", record.ID, err)
	}
}

// boostPriority raises scores for weighted senders. Boosts stack, capped
// at the scale ceiling after each step.
func boostPriority(priority int, sender string) int {
	sender = strings.ToLower(sender)
	if strings.Contains(sender, "ceo") || strings.Contains(sender, "boss") {
		priority = min(classifier.MaxPriority, priority+3)
	}
	if strings.Contains(sender, "legal") {
		priority = min(classifier.MaxPriority, priority+2)
	}
	if strings.Contains(sender, "manager") {
		priority = min(classifier.MaxPriority, priority+1)
	}
	return priority
}
