package triage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/mailroomhq/triage/internal/platform/errors"
	"github.com/mailroomhq/triage/internal/platform/httpx"
	"github.com/mailroomhq/triage/internal/platform/requestctx"
	"github.com/mailroomhq/triage/internal/services/triage/domain"
	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// Service defines the domain operations the HTTP surface exposes.
type Service interface {
	Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassifyResult, error)
	CreateClassification(ctx context.Context, req domain.CreateClassificationRequest) (storage.ClassificationRecord, error)
	GetClassification(ctx context.Context, userID, classificationID string) (storage.ClassificationRecord, error)
	ListClassifications(ctx context.Context, req domain.ListClassificationsRequest) (storage.ClassificationPage, error)
	UpdateClassification(ctx context.Context, req domain.UpdateClassificationRequest) (storage.ClassificationRecord, error)
	DeleteClassification(ctx context.Context, userID, classificationID string) error
	GenerateTasks(ctx context.Context, req domain.GenerateTasksRequest) (domain.GenerateTasksResult, error)
	GetTask(ctx context.Context, userID, taskID string) (storage.TaskRecord, error)
	ListTasks(ctx context.Context, req domain.ListTasksRequest) (storage.TaskPage, error)
	UpdateTask(ctx context.Context, req domain.UpdateTaskRequest) (storage.TaskRecord, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
	GenerateBrief(ctx context.Context, req domain.GenerateBriefRequest) (storage.BriefRecord, error)
	GetBrief(ctx context.Context, userID, date string) (storage.BriefRecord, error)
}

type handlers struct {
	service Service
}

func newHandlers(service Service) handlers {
	return handlers{service: service}
}

func (h handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handlers) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, userID := requestIdentity(r)
	result, err := h.service.Classify(ctx, domain.ClassifyRequest{
		UserID:     userID,
		MessageIDs: req.MessageIDs,
		Limit:      req.Limit,
		Channel:    req.Channel,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, classifyView(result))
}

func (h handlers) handleCreateClassification(w http.ResponseWriter, r *http.Request) {
	var req createClassificationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, userID := requestIdentity(r)
	record, err := h.service.CreateClassification(ctx, domain.CreateClassificationRequest{
		UserID:    userID,
		MessageID: req.MessageID,
		Label:     req.Label,
		Priority:  req.Priority,
		Summary:   req.Summary,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, classificationView(record))
}

func (h handlers) handleListClassifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize, err := queryInt(query, "page_size")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, userID := requestIdentity(r)
	page, err := h.service.ListClassifications(ctx, domain.ListClassificationsRequest{
		UserID:    userID,
		Filter:    query.Get("filter"),
		OrderBy:   query.Get("order_by"),
		PageSize:  pageSize,
		PageToken: query.Get("page_token"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, classificationPageView(page))
}

func (h handlers) handleGetClassification(w http.ResponseWriter, r *http.Request) {
	classificationID := strings.TrimSpace(r.PathValue("id"))
	ctx, userID := requestIdentity(r)
	record, err := h.service.GetClassification(ctx, userID, classificationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, classificationView(record))
}

func (h handlers) handleUpdateClassification(w http.ResponseWriter, r *http.Request) {
	var req updateClassificationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, userID := requestIdentity(r)
	record, err := h.service.UpdateClassification(ctx, domain.UpdateClassificationRequest{
		UserID:           userID,
		ClassificationID: strings.TrimSpace(r.PathValue("id")),
		Label:            req.Label,
		Priority:         req.Priority,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, classificationView(record))
}

func (h handlers) handleDeleteClassification(w http.ResponseWriter, r *http.Request) {
	ctx, userID := requestIdentity(r)
	if err := h.service.DeleteClassification(ctx, userID, strings.TrimSpace(r.PathValue("id"))); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handlers) handleGenerateTasks(w http.ResponseWriter, r *http.Request) {
	var req generateTasksRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, userID := requestIdentity(r)
	result, err := h.service.GenerateTasks(ctx, domain.GenerateTasksRequest{
		UserID:            userID,
		ClassificationIDs: req.ClassificationIDs,
		Limit:             req.Limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, generateTasksView(result))
}

func (h handlers) handleListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize, err := queryInt(query, "page_size")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, userID := requestIdentity(r)
	page, err := h.service.ListTasks(ctx, domain.ListTasksRequest{
		UserID:    userID,
		Status:    query.Get("status"),
		PageSize:  pageSize,
		PageToken: query.Get("page_token"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskPageView(page))
}

func (h handlers) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.PathValue("id"))
	ctx, userID := requestIdentity(r)
	record, err := h.service.GetTask(ctx, userID, taskID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskView(record))
}

func (h handlers) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, userID := requestIdentity(r)
	record, err := h.service.UpdateTask(ctx, domain.UpdateTaskRequest{
		UserID:      userID,
		TaskID:      strings.TrimSpace(r.PathValue("id")),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueAt:       req.DueAt,
		ClearDueAt:  req.ClearDueAt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskView(record))
}

func (h handlers) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, userID := requestIdentity(r)
	if err := h.service.DeleteTask(ctx, userID, strings.TrimSpace(r.PathValue("id"))); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handlers) handleGenerateBrief(w http.ResponseWriter, r *http.Request) {
	var req generateBriefRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, userID := requestIdentity(r)
	record, err := h.service.GenerateBrief(ctx, domain.GenerateBriefRequest{
		UserID:   userID,
		Date:     req.Date,
		MaxItems: req.MaxItems,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := briefView(record)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h handlers) handleGetBrief(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.PathValue("date"))
	ctx, userID := requestIdentity(r)
	record, err := h.service.GetBrief(ctx, userID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := briefView(record)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// writeError renders a translated error. Errors without a recognized kind
// are logged and rendered as an opaque internal error.
func (h handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	translated := translateError(err)
	if apperrors.KindOf(translated) == apperrors.KindUnknown {
		log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
		translated = apperrors.E(apperrors.KindUnknown, "internal error")
	}
	httpx.WriteJSONError(w, translated)
}

// translateError maps domain and storage errors onto API error kinds.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.KindOf(err) != apperrors.KindUnknown:
		return err
	case errors.Is(err, domain.ErrUserIDRequired):
		return apperrors.EK(apperrors.KindUnauthorized, "auth.user_required", "authentication is required")
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrMessageIDRequired),
		errors.Is(err, domain.ErrClassificationIDRequired),
		errors.Is(err, domain.ErrTaskIDRequired),
		errors.Is(err, storage.ErrInvalidPageToken):
		return apperrors.E(apperrors.KindInvalidInput, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.E(apperrors.KindNotFound, err.Error())
	case errors.Is(err, storage.ErrConflict):
		return apperrors.E(apperrors.KindConflict, err.Error())
	case errors.Is(err, domain.ErrStoreNotConfigured), errors.Is(err, domain.ErrGatewayNotConfigured):
		return apperrors.E(apperrors.KindUnavailable, err.Error())
	default:
		return err
	}
}

// requestIdentity returns the request context and the authenticated user
// id, empty for anonymous callers.
func requestIdentity(r *http.Request) (context.Context, string) {
	ctx := httpx.RequestContext(r)
	return ctx, requestctx.UserIDFromContext(ctx)
}

// decodeOptionalJSON decodes the request body when one is present. An
// empty body leaves target untouched.
func decodeOptionalJSON(r *http.Request, target any) error {
	if r == nil || r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return httpx.DecodeJSON(r, target)
}

func queryInt(query url.Values, key string) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.E(apperrors.KindInvalidInput, fmt.Sprintf("%s must be an integer", key))
	}
	return parsed, nil
}
