// Package triage exposes the triage service as a REST JSON API.
package triage

import (
	"net/http"

	"github.com/mailroomhq/triage/internal/platform/httpx"
	"github.com/mailroomhq/triage/internal/services/triage/auth"
)

// Config carries the collaborators the HTTP surface needs beyond the
// domain service.
type Config struct {
	// Verifier validates bearer tokens. Task and brief routes require a
	// valid token; classification routes accept anonymous callers.
	Verifier *auth.Verifier
}

// Routes builds the HTTP handler for the triage API.
func Routes(service Service, cfg Config) http.Handler {
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(service), cfg.Verifier)
	return httpx.Chain(mux, httpx.RequestID(), httpx.RecoverPanic())
}

func registerRoutes(mux *http.ServeMux, h handlers, verifier *auth.Verifier) {
	if mux == nil {
		return
	}
	optional := auth.Optional(verifier)
	required := auth.Require(verifier)

	mux.HandleFunc(http.MethodGet+" /healthz", h.handleHealthz)

	mux.Handle(http.MethodPost+" /v1/classify", optional(http.HandlerFunc(h.handleClassify)))
	mux.Handle(http.MethodPost+" /v1/classifications", optional(http.HandlerFunc(h.handleCreateClassification)))
	mux.Handle(http.MethodGet+" /v1/classifications", optional(http.HandlerFunc(h.handleListClassifications)))
	mux.Handle(http.MethodGet+" /v1/classifications/{id}", optional(http.HandlerFunc(h.handleGetClassification)))
	mux.Handle(http.MethodPatch+" /v1/classifications/{id}", optional(http.HandlerFunc(h.handleUpdateClassification)))
	mux.Handle(http.MethodDelete+" /v1/classifications/{id}", optional(http.HandlerFunc(h.handleDeleteClassification)))

	mux.Handle(http.MethodPost+" /v1/tasks/generate", required(http.HandlerFunc(h.handleGenerateTasks)))
	mux.Handle(http.MethodGet+" /v1/tasks", required(http.HandlerFunc(h.handleListTasks)))
	mux.Handle(http.MethodGet+" /v1/tasks/{id}", required(http.HandlerFunc(h.handleGetTask)))
	mux.Handle(http.MethodPatch+" /v1/tasks/{id}", required(http.HandlerFunc(h.handleUpdateTask)))
	mux.Handle(http.MethodDelete+" /v1/tasks/{id}", required(http.HandlerFunc(h.handleDeleteTask)))

	mux.Handle(http.MethodPost+" /v1/briefs/generate", required(http.HandlerFunc(h.handleGenerateBrief)))
	mux.Handle(http.MethodGet+" /v1/briefs/{date}", required(http.HandlerFunc(h.handleGetBrief)))
}
