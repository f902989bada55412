package triage

import (
	"fmt"
	"time"

	"github.com/mailroomhq/triage/internal/services/triage/brief"
	"github.com/mailroomhq/triage/internal/services/triage/domain"
	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

type classifyRequest struct {
	MessageIDs []string `json:"message_ids"`
	Limit      int      `json:"limit"`
	Channel    string   `json:"channel"`
}

type classifyFailureResponse struct {
	MessageID string `json:"message_id"`
	Reason    string `json:"reason"`
}

type classifyResponse struct {
	Processed       int                       `json:"processed"`
	Succeeded       int                       `json:"succeeded"`
	Duplicates      int                       `json:"duplicates"`
	Failed          int                       `json:"failed"`
	Failures        []classifyFailureResponse `json:"failures,omitempty"`
	Classifications []classificationResponse  `json:"classifications"`
}

type createClassificationRequest struct {
	MessageID string `json:"message_id"`
	Label     string `json:"label"`
	Priority  int    `json:"priority"`
	Summary   string `json:"summary"`
}

type updateClassificationRequest struct {
	Label    *string `json:"label"`
	Priority *int    `json:"priority"`
}

type classificationResponse struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id,omitempty"`
	Label     string    `json:"label"`
	Priority  int       `json:"priority"`
	Summary   string    `json:"summary,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listClassificationsResponse struct {
	Classifications []classificationResponse `json:"classifications"`
	NextPageToken   string                   `json:"next_page_token,omitempty"`
}

type generateTasksRequest struct {
	ClassificationIDs []string `json:"classification_ids"`
	Limit             int      `json:"limit"`
}

type taskFailureResponse struct {
	ClassificationID string `json:"classification_id"`
	Reason           string `json:"reason"`
}

type generateTasksResponse struct {
	Processed  int                   `json:"processed"`
	Generated  int                   `json:"generated"`
	Skipped    int                   `json:"skipped"`
	Duplicates int                   `json:"duplicates"`
	Failed     int                   `json:"failed"`
	Failures   []taskFailureResponse `json:"failures,omitempty"`
	Tasks      []taskResponse        `json:"tasks"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *int       `json:"priority"`
	DueAt       *time.Time `json:"due_at"`
	ClearDueAt  bool       `json:"clear_due_at"`
}

type taskResponse struct {
	ID               string     `json:"id"`
	ClassificationID string     `json:"classification_id"`
	MessageID        string     `json:"message_id"`
	UserID           string     `json:"user_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	Priority         int        `json:"priority"`
	DueAt            *time.Time `json:"due_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type listTasksResponse struct {
	Tasks         []taskResponse `json:"tasks"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type generateBriefRequest struct {
	Date     string `json:"date"`
	MaxItems int    `json:"max_items"`
}

type briefResponse struct {
	ID                string       `json:"id"`
	UserID            string       `json:"user_id"`
	BriefDate         string       `json:"brief_date"`
	TotalMessages     int          `json:"total_messages"`
	TodoCount         int          `json:"todo_count"`
	FollowupCount     int          `json:"followup_count"`
	NoiseCount        int          `json:"noise_count"`
	HighPriorityCount int          `json:"high_priority_count"`
	Items             []brief.Item `json:"items"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func classificationView(record storage.ClassificationRecord) classificationResponse {
	return classificationResponse{
		ID:        record.ID,
		MessageID: record.MessageID,
		UserID:    record.UserID,
		Label:     string(record.Label),
		Priority:  record.Priority,
		Summary:   record.Summary,
		Source:    string(record.Source),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func classificationsView(records []storage.ClassificationRecord) []classificationResponse {
	views := make([]classificationResponse, 0, len(records))
	for _, record := range records {
		views = append(views, classificationView(record))
	}
	return views
}

func classifyView(result domain.ClassifyResult) classifyResponse {
	view := classifyResponse{
		Processed:       result.Processed,
		Succeeded:       result.Succeeded,
		Duplicates:      result.Duplicates,
		Failed:          result.Failed,
		Classifications: classificationsView(result.Classifications),
	}
	for _, failure := range result.Failures {
		view.Failures = append(view.Failures, classifyFailureResponse{
			MessageID: failure.MessageID,
			Reason:    failure.Reason,
		})
	}
	return view
}

func classificationPageView(page storage.ClassificationPage) listClassificationsResponse {
	return listClassificationsResponse{
		Classifications: classificationsView(page.Classifications),
		NextPageToken:   page.NextPageToken,
	}
}

func taskView(record storage.TaskRecord) taskResponse {
	view := taskResponse{
		ID:               record.ID,
		ClassificationID: record.ClassificationID,
		MessageID:        record.MessageID,
		UserID:           record.UserID,
		Title:            record.Title,
		Description:      record.Description,
		Status:           string(record.Status),
		Priority:         record.Priority,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
	if record.DueAt != nil {
		due := record.DueAt.UTC()
		view.DueAt = &due
	}
	return view
}

func tasksView(records []storage.TaskRecord) []taskResponse {
	views := make([]taskResponse, 0, len(records))
	for _, record := range records {
		views = append(views, taskView(record))
	}
	return views
}

func generateTasksView(result domain.GenerateTasksResult) generateTasksResponse {
	view := generateTasksResponse{
		Processed:  result.Processed,
		Generated:  result.Generated,
		Skipped:    result.Skipped,
		Duplicates: result.Duplicates,
		Failed:     result.Failed,
		Tasks:      tasksView(result.Tasks),
	}
	for _, failure := range result.Failures {
		view.Failures = append(view.Failures, taskFailureResponse{
			ClassificationID: failure.ClassificationID,
			Reason:           failure.Reason,
		})
	}
	return view
}

func taskPageView(page storage.TaskPage) listTasksResponse {
	return listTasksResponse{
		Tasks:         tasksView(page.Tasks),
		NextPageToken: page.NextPageToken,
	}
}

func briefView(record storage.BriefRecord) (briefResponse, error) {
	items, err := brief.UnmarshalItems(record.ItemsJSON)
	if err != nil {
		return briefResponse{}, fmt.Errorf("decode brief items: %w", err)
	}
	if items == nil {
		items = []brief.Item{}
	}
	return briefResponse{
		ID:                record.ID,
		UserID:            record.UserID,
		BriefDate:         record.BriefDate,
		TotalMessages:     record.TotalMessages,
		TodoCount:         record.TodoCount,
		FollowupCount:     record.FollowupCount,
		NoiseCount:        record.NoiseCount,
		HighPriorityCount: record.HighPriorityCount,
		Items:             items,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}, nil
}
