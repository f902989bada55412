package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPutGetClassification(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	record := storage.ClassificationRecord{
		ID:        "cls-1",
		MessageID: "msg-1",
		UserID:    "user-1",
		Label:     storage.LabelTodo,
		Priority:  7,
		Summary:   "Prepare the quarterly report",
		Source:    storage.SourceOpenAI,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.PutClassification(context.Background(), record); err != nil {
		t.Fatalf("put classification: %v", err)
	}

	got, err := store.GetClassification(context.Background(), "cls-1")
	if err != nil {
		t.Fatalf("get classification: %v", err)
	}
	if got.MessageID != "msg-1" || got.Label != storage.LabelTodo || got.Priority != 7 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, now)
	}

	byMessage, err := store.GetClassificationByMessageID(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("get classification by message id: %v", err)
	}
	if byMessage.ID != "cls-1" {
		t.Fatalf("id = %q, want cls-1", byMessage.ID)
	}

	if _, err := store.GetClassification(context.Background(), "cls-missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.GetClassificationByMessageID(context.Background(), "msg-missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPutClassificationDuplicateMessageConflicts(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	first := storage.ClassificationRecord{
		ID:        "cls-1",
		MessageID: "msg-1",
		UserID:    "user-1",
		Label:     storage.LabelNoise,
		Priority:  1,
		Summary:   "Weekly newsletter",
		Source:    storage.SourceKeyword,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.PutClassification(context.Background(), first); err != nil {
		t.Fatalf("put classification: %v", err)
	}

	duplicate := first
	duplicate.ID = "cls-2"
	if err := store.PutClassification(context.Background(), duplicate); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestListClassificationsPaginates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		record := storage.ClassificationRecord{
			ID:        "cls-" + string(rune('a'+i)),
			MessageID: "msg-" + string(rune('a'+i)),
			UserID:    "user-1",
			Label:     storage.LabelTodo,
			Priority:  5,
			Summary:   "item",
			Source:    storage.SourceManual,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
			UpdatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := store.PutClassification(context.Background(), record); err != nil {
			t.Fatalf("put classification %s: %v", record.ID, err)
		}
	}

	first, err := store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:   "user-1",
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("list classifications: %v", err)
	}
	if len(first.Classifications) != 2 {
		t.Fatalf("page length = %d, want 2", len(first.Classifications))
	}
	if first.Classifications[0].ID != "cls-e" || first.Classifications[1].ID != "cls-d" {
		t.Fatalf("unexpected first page order: %s, %s", first.Classifications[0].ID, first.Classifications[1].ID)
	}
	if first.NextPageToken == "" {
		t.Fatal("expected next page token")
	}

	second, err := store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:    "user-1",
		PageSize:  2,
		PageToken: first.NextPageToken,
	})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Classifications) != 2 {
		t.Fatalf("second page length = %d, want 2", len(second.Classifications))
	}
	if second.Classifications[0].ID != "cls-c" || second.Classifications[1].ID != "cls-b" {
		t.Fatalf("unexpected second page order: %s, %s", second.Classifications[0].ID, second.Classifications[1].ID)
	}

	third, err := store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:    "user-1",
		PageSize:  2,
		PageToken: second.NextPageToken,
	})
	if err != nil {
		t.Fatalf("list third page: %v", err)
	}
	if len(third.Classifications) != 1 || third.Classifications[0].ID != "cls-a" {
		t.Fatalf("unexpected third page: %+v", third.Classifications)
	}
	if third.NextPageToken != "" {
		t.Fatalf("expected no next token, got %q", third.NextPageToken)
	}
}

func TestListClassificationsRejectsTokenFromDifferentFilter(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		record := storage.ClassificationRecord{
			ID:        "cls-" + string(rune('a'+i)),
			MessageID: "msg-" + string(rune('a'+i)),
			UserID:    "user-1",
			Label:     storage.LabelTodo,
			Priority:  5,
			Summary:   "item",
			Source:    storage.SourceManual,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
			UpdatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := store.PutClassification(context.Background(), record); err != nil {
			t.Fatalf("put classification %s: %v", record.ID, err)
		}
	}

	page, err := store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:   "user-1",
		Filter:   `label = "todo"`,
		PageSize: 1,
	})
	if err != nil {
		t.Fatalf("list classifications: %v", err)
	}
	if page.NextPageToken == "" {
		t.Fatal("expected next page token")
	}

	_, err = store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:    "user-1",
		Filter:    `label = "noise"`,
		PageSize:  1,
		PageToken: page.NextPageToken,
	})
	if !errors.Is(err, storage.ErrInvalidPageToken) {
		t.Fatalf("expected invalid page token, got %v", err)
	}

	_, err = store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:    "user-1",
		Filter:    `label = "todo"`,
		OrderBy:   storage.OrderByPriorityDesc,
		PageSize:  1,
		PageToken: page.NextPageToken,
	})
	if !errors.Is(err, storage.ErrInvalidPageToken) {
		t.Fatalf("expected invalid page token for changed order, got %v", err)
	}

	if _, err := store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:    "user-1",
		PageSize:  1,
		PageToken: "not-a-token",
	}); !errors.Is(err, storage.ErrInvalidPageToken) {
		t.Fatalf("expected invalid page token for garbage, got %v", err)
	}
}

func TestListClassificationsPriorityOrder(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	records := []storage.ClassificationRecord{
		{ID: "cls-low", MessageID: "msg-low", UserID: "user-1", Label: storage.LabelNoise, Priority: 2, Summary: "low", Source: storage.SourceKeyword, CreatedAt: now.Add(3 * time.Minute), UpdatedAt: now.Add(3 * time.Minute)},
		{ID: "cls-high", MessageID: "msg-high", UserID: "user-1", Label: storage.LabelTodo, Priority: 9, Summary: "high", Source: storage.SourceOpenAI, CreatedAt: now, UpdatedAt: now},
		{ID: "cls-mid", MessageID: "msg-mid", UserID: "user-1", Label: storage.LabelFollowup, Priority: 6, Summary: "mid", Source: storage.SourceOpenAI, CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute)},
	}
	for _, record := range records {
		if err := store.PutClassification(context.Background(), record); err != nil {
			t.Fatalf("put classification %s: %v", record.ID, err)
		}
	}

	first, err := store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:   "user-1",
		OrderBy:  storage.OrderByPriorityDesc,
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("list classifications: %v", err)
	}
	if len(first.Classifications) != 2 {
		t.Fatalf("page length = %d, want 2", len(first.Classifications))
	}
	if first.Classifications[0].ID != "cls-high" || first.Classifications[1].ID != "cls-mid" {
		t.Fatalf("unexpected order: %s, %s", first.Classifications[0].ID, first.Classifications[1].ID)
	}

	second, err := store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:    "user-1",
		OrderBy:   storage.OrderByPriorityDesc,
		PageSize:  2,
		PageToken: first.NextPageToken,
	})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Classifications) != 1 || second.Classifications[0].ID != "cls-low" {
		t.Fatalf("unexpected second page: %+v", second.Classifications)
	}
}

func TestListClassificationsAppliesFilterClause(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	records := []storage.ClassificationRecord{
		{ID: "cls-1", MessageID: "msg-1", UserID: "user-1", Label: storage.LabelTodo, Priority: 8, Summary: "a", Source: storage.SourceOpenAI, CreatedAt: now, UpdatedAt: now},
		{ID: "cls-2", MessageID: "msg-2", UserID: "user-1", Label: storage.LabelNoise, Priority: 1, Summary: "b", Source: storage.SourceKeyword, CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute)},
	}
	for _, record := range records {
		if err := store.PutClassification(context.Background(), record); err != nil {
			t.Fatalf("put classification %s: %v", record.ID, err)
		}
	}

	page, err := store.ListClassifications(context.Background(), storage.ListClassificationsRequest{
		UserID:       "user-1",
		FilterClause: "label = ?",
		FilterParams: []any{"todo"},
		Filter:       `label = "todo"`,
		PageSize:     10,
	})
	if err != nil {
		t.Fatalf("list classifications: %v", err)
	}
	if len(page.Classifications) != 1 || page.Classifications[0].ID != "cls-1" {
		t.Fatalf("unexpected filtered page: %+v", page.Classifications)
	}
}

func TestListClassificationsByIDs(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for _, id := range []string{"cls-1", "cls-2"} {
		record := storage.ClassificationRecord{
			ID:        id,
			MessageID: "msg-" + id,
			UserID:    "user-1",
			Label:     storage.LabelTodo,
			Priority:  5,
			Summary:   "item",
			Source:    storage.SourceManual,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.PutClassification(context.Background(), record); err != nil {
			t.Fatalf("put classification %s: %v", id, err)
		}
	}

	records, err := store.ListClassificationsByIDs(context.Background(), []string{"cls-2", "cls-missing", " ", "cls-1"})
	if err != nil {
		t.Fatalf("list classifications by ids: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("record count = %d, want 2", len(records))
	}

	empty, err := store.ListClassificationsByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("list with no ids: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty result, got %d", len(empty))
	}
}

func TestListClassificationsInRange(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	dayStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	records := []storage.ClassificationRecord{
		{ID: "cls-before", MessageID: "msg-before", UserID: "user-1", Label: storage.LabelTodo, Priority: 5, Summary: "yesterday", Source: storage.SourceOpenAI, CreatedAt: dayStart.Add(-time.Hour), UpdatedAt: dayStart.Add(-time.Hour)},
		{ID: "cls-morning", MessageID: "msg-morning", UserID: "user-1", Label: storage.LabelTodo, Priority: 9, Summary: "morning", Source: storage.SourceOpenAI, CreatedAt: dayStart.Add(9 * time.Hour), UpdatedAt: dayStart.Add(9 * time.Hour)},
		{ID: "cls-evening", MessageID: "msg-evening", UserID: "user-1", Label: storage.LabelNoise, Priority: 2, Summary: "evening", Source: storage.SourceKeyword, CreatedAt: dayStart.Add(20 * time.Hour), UpdatedAt: dayStart.Add(20 * time.Hour)},
		{ID: "cls-other", MessageID: "msg-other", UserID: "user-2", Label: storage.LabelTodo, Priority: 8, Summary: "other owner", Source: storage.SourceOpenAI, CreatedAt: dayStart.Add(10 * time.Hour), UpdatedAt: dayStart.Add(10 * time.Hour)},
	}
	for _, record := range records {
		if err := store.PutClassification(context.Background(), record); err != nil {
			t.Fatalf("put classification %s: %v", record.ID, err)
		}
	}

	got, err := store.ListClassificationsInRange(context.Background(), "user-1", dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list classifications in range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("record count = %d, want 2", len(got))
	}
	if got[0].ID != "cls-morning" || got[1].ID != "cls-evening" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestListTaskCandidatesSkipsTaskedAndNoise(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	records := []storage.ClassificationRecord{
		{ID: "cls-todo", MessageID: "msg-todo", UserID: "user-1", Label: storage.LabelTodo, Priority: 8, Summary: "todo", Source: storage.SourceOpenAI, CreatedAt: now, UpdatedAt: now},
		{ID: "cls-followup", MessageID: "msg-followup", UserID: "user-1", Label: storage.LabelFollowup, Priority: 4, Summary: "followup", Source: storage.SourceOpenAI, CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute)},
		{ID: "cls-noise", MessageID: "msg-noise", UserID: "user-1", Label: storage.LabelNoise, Priority: 1, Summary: "noise", Source: storage.SourceKeyword, CreatedAt: now.Add(2 * time.Minute), UpdatedAt: now.Add(2 * time.Minute)},
		{ID: "cls-tasked", MessageID: "msg-tasked", UserID: "user-1", Label: storage.LabelTodo, Priority: 7, Summary: "already tasked", Source: storage.SourceOpenAI, CreatedAt: now.Add(3 * time.Minute), UpdatedAt: now.Add(3 * time.Minute)},
	}
	for _, record := range records {
		if err := store.PutClassification(context.Background(), record); err != nil {
			t.Fatalf("put classification %s: %v", record.ID, err)
		}
	}
	if err := store.PutTask(context.Background(), storage.TaskRecord{
		ID:               "task-1",
		ClassificationID: "cls-tasked",
		MessageID:        "msg-tasked",
		UserID:           "user-1",
		Title:            "already tasked",
		Status:           storage.TaskStatusPending,
		Priority:         7,
		CreatedAt:        now,
		UpdatedAt:        now,
	}); err != nil {
		t.Fatalf("put task: %v", err)
	}

	candidates, err := store.ListTaskCandidates(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("list task candidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidate count = %d, want 2", len(candidates))
	}
	if candidates[0].ID != "cls-followup" || candidates[1].ID != "cls-todo" {
		t.Fatalf("unexpected candidates: %s, %s", candidates[0].ID, candidates[1].ID)
	}
}

func TestUpdateDeleteClassification(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	record := storage.ClassificationRecord{
		ID:        "cls-1",
		MessageID: "msg-1",
		UserID:    "user-1",
		Label:     storage.LabelFollowup,
		Priority:  4,
		Summary:   "original",
		Source:    storage.SourceOpenAI,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.PutClassification(context.Background(), record); err != nil {
		t.Fatalf("put classification: %v", err)
	}

	record.Label = storage.LabelTodo
	record.Priority = 9
	record.Summary = "escalated"
	record.UpdatedAt = now.Add(time.Hour)
	if err := store.UpdateClassification(context.Background(), record); err != nil {
		t.Fatalf("update classification: %v", err)
	}

	got, err := store.GetClassification(context.Background(), "cls-1")
	if err != nil {
		t.Fatalf("get classification: %v", err)
	}
	if got.Label != storage.LabelTodo || got.Priority != 9 || got.Summary != "escalated" {
		t.Fatalf("unexpected updated record: %+v", got)
	}
	if !got.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, now.Add(time.Hour))
	}

	missing := record
	missing.ID = "cls-missing"
	missing.MessageID = "msg-missing"
	if err := store.UpdateClassification(context.Background(), missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.DeleteClassification(context.Background(), "cls-1"); err != nil {
		t.Fatalf("delete classification: %v", err)
	}
	if err := store.DeleteClassification(context.Background(), "cls-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteClassificationCascadesTask(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if err := store.PutClassification(context.Background(), storage.ClassificationRecord{
		ID:        "cls-1",
		MessageID: "msg-1",
		UserID:    "user-1",
		Label:     storage.LabelTodo,
		Priority:  8,
		Summary:   "to delete",
		Source:    storage.SourceOpenAI,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("put classification: %v", err)
	}
	if err := store.PutTask(context.Background(), storage.TaskRecord{
		ID:               "task-1",
		ClassificationID: "cls-1",
		MessageID:        "msg-1",
		UserID:           "user-1",
		Title:            "to delete",
		Status:           storage.TaskStatusPending,
		Priority:         8,
		CreatedAt:        now,
		UpdatedAt:        now,
	}); err != nil {
		t.Fatalf("put task: %v", err)
	}

	if err := store.DeleteClassification(context.Background(), "cls-1"); err != nil {
		t.Fatalf("delete classification: %v", err)
	}
	if _, err := store.GetTask(context.Background(), "task-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected cascaded task delete, got %v", err)
	}
}

func TestPutGetTask(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	dueAt := now.Add(72 * time.Hour)

	if err := store.PutClassification(context.Background(), storage.ClassificationRecord{
		ID:        "cls-1",
		MessageID: "msg-1",
		UserID:    "user-1",
		Label:     storage.LabelTodo,
		Priority:  8,
		Summary:   "task source",
		Source:    storage.SourceOpenAI,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("put classification: %v", err)
	}

	record := storage.TaskRecord{
		ID:               "task-1",
		ClassificationID: "cls-1",
		MessageID:        "msg-1",
		UserID:           "user-1",
		Title:            "Reply to the audit request",
		Description:      "task source",
		Status:           storage.TaskStatusPending,
		Priority:         8,
		DueAt:            &dueAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := store.PutTask(context.Background(), record); err != nil {
		t.Fatalf("put task: %v", err)
	}

	got, err := store.GetTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "Reply to the audit request" || got.Status != storage.TaskStatusPending {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.DueAt == nil || !got.DueAt.Equal(dueAt) {
		t.Fatalf("due_at = %v, want %v", got.DueAt, dueAt)
	}

	byClassification, err := store.GetTaskByClassificationID(context.Background(), "cls-1")
	if err != nil {
		t.Fatalf("get task by classification: %v", err)
	}
	if byClassification.ID != "task-1" {
		t.Fatalf("id = %q, want task-1", byClassification.ID)
	}

	second := record
	second.ID = "task-2"
	if err := store.PutTask(context.Background(), second); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict for duplicate classification, got %v", err)
	}

	orphan := record
	orphan.ID = "task-3"
	orphan.ClassificationID = "cls-missing"
	if err := store.PutTask(context.Background(), orphan); err == nil {
		t.Fatal("expected foreign key error for missing classification")
	}
}

func TestListTasksPaginatesAndFilters(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		suffix := string(rune('a' + i))
		if err := store.PutClassification(context.Background(), storage.ClassificationRecord{
			ID:        "cls-" + suffix,
			MessageID: "msg-" + suffix,
			UserID:    "user-1",
			Label:     storage.LabelTodo,
			Priority:  5,
			Summary:   "item",
			Source:    storage.SourceOpenAI,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			t.Fatalf("put classification: %v", err)
		}
		status := storage.TaskStatusPending
		if i == 0 {
			status = storage.TaskStatusDone
		}
		if err := store.PutTask(context.Background(), storage.TaskRecord{
			ID:               "task-" + suffix,
			ClassificationID: "cls-" + suffix,
			MessageID:        "msg-" + suffix,
			UserID:           "user-1",
			Title:            "task " + suffix,
			Status:           status,
			Priority:         5,
			CreatedAt:        now.Add(time.Duration(i) * time.Minute),
			UpdatedAt:        now.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("put task: %v", err)
		}
	}

	first, err := store.ListTasks(context.Background(), storage.ListTasksRequest{
		UserID:   "user-1",
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(first.Tasks) != 2 {
		t.Fatalf("page length = %d, want 2", len(first.Tasks))
	}
	if first.Tasks[0].ID != "task-d" || first.Tasks[1].ID != "task-c" {
		t.Fatalf("unexpected order: %s, %s", first.Tasks[0].ID, first.Tasks[1].ID)
	}
	if first.NextPageToken != "task-c" {
		t.Fatalf("next token = %q, want task-c", first.NextPageToken)
	}

	second, err := store.ListTasks(context.Background(), storage.ListTasksRequest{
		UserID:    "user-1",
		PageSize:  2,
		PageToken: first.NextPageToken,
	})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Tasks) != 2 || second.Tasks[0].ID != "task-b" || second.Tasks[1].ID != "task-a" {
		t.Fatalf("unexpected second page: %+v", second.Tasks)
	}
	if second.NextPageToken != "" {
		t.Fatalf("expected no next token, got %q", second.NextPageToken)
	}

	pending, err := store.ListTasks(context.Background(), storage.ListTasksRequest{
		UserID:   "user-1",
		Status:   storage.TaskStatusPending,
		PageSize: 10,
	})
	if err != nil {
		t.Fatalf("list pending tasks: %v", err)
	}
	if len(pending.Tasks) != 3 {
		t.Fatalf("pending count = %d, want 3", len(pending.Tasks))
	}

	stale, err := store.ListTasks(context.Background(), storage.ListTasksRequest{
		UserID:    "user-1",
		PageSize:  2,
		PageToken: "task-gone",
	})
	if err != nil {
		t.Fatalf("list with stale token: %v", err)
	}
	if len(stale.Tasks) != 0 || stale.NextPageToken != "" {
		t.Fatalf("expected empty page for stale token, got %+v", stale)
	}
}

func TestUpdateDeleteTask(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if err := store.PutClassification(context.Background(), storage.ClassificationRecord{
		ID:        "cls-1",
		MessageID: "msg-1",
		UserID:    "user-1",
		Label:     storage.LabelTodo,
		Priority:  6,
		Summary:   "item",
		Source:    storage.SourceOpenAI,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("put classification: %v", err)
	}
	record := storage.TaskRecord{
		ID:               "task-1",
		ClassificationID: "cls-1",
		MessageID:        "msg-1",
		UserID:           "user-1",
		Title:            "original",
		Status:           storage.TaskStatusPending,
		Priority:         6,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := store.PutTask(context.Background(), record); err != nil {
		t.Fatalf("put task: %v", err)
	}

	dueAt := now.Add(24 * time.Hour)
	record.Title = "renamed"
	record.Status = storage.TaskStatusInProgress
	record.DueAt = &dueAt
	record.UpdatedAt = now.Add(time.Hour)
	if err := store.UpdateTask(context.Background(), record); err != nil {
		t.Fatalf("update task: %v", err)
	}

	got, err := store.GetTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "renamed" || got.Status != storage.TaskStatusInProgress {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.DueAt == nil || !got.DueAt.Equal(dueAt) {
		t.Fatalf("due_at = %v, want %v", got.DueAt, dueAt)
	}

	missing := record
	missing.ID = "task-missing"
	if err := store.UpdateTask(context.Background(), missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.DeleteTask(context.Background(), "task-1"); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := store.DeleteTask(context.Background(), "task-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestPutBriefUpserts(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

	record := storage.BriefRecord{
		ID:                "brief-1",
		UserID:            "user-1",
		BriefDate:         "2026-03-02",
		TotalMessages:     12,
		TodoCount:         4,
		FollowupCount:     3,
		NoiseCount:        5,
		HighPriorityCount: 2,
		ItemsJSON:         `[{"classification_id":"cls-1"}]`,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.PutBrief(context.Background(), record); err != nil {
		t.Fatalf("put brief: %v", err)
	}

	regenerated := record
	regenerated.ID = "brief-2"
	regenerated.TotalMessages = 15
	regenerated.TodoCount = 6
	regenerated.UpdatedAt = now.Add(time.Hour)
	if err := store.PutBrief(context.Background(), regenerated); err != nil {
		t.Fatalf("regenerate brief: %v", err)
	}

	got, err := store.GetBrief(context.Background(), "user-1", "2026-03-02")
	if err != nil {
		t.Fatalf("get brief: %v", err)
	}
	if got.ID != "brief-1" {
		t.Fatalf("id = %q, want original brief-1", got.ID)
	}
	if got.TotalMessages != 15 || got.TodoCount != 6 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, now)
	}
	if !got.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, now.Add(time.Hour))
	}

	if _, err := store.GetBrief(context.Background(), "user-1", "2026-03-03"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "triage.db")
	store, err := Open(storePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Fatalf("close store: %v", closeErr)
		}
	})
	return store
}
