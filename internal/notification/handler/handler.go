package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leanquest/internal/notification"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/httputil"
	"leanquest/pkg/requestcontext"
)

// Handler wires notification endpoints. All routes assume the auth middleware
// already ran, so the user id is on the context.
type Handler struct {
	service *notification.Service
	logger  *slog.Logger
}

func New(service *notification.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts notification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/notifications", h.HandleList)
	r.Put("/api/notifications/read-all", h.HandleMarkAllRead)
	r.Put("/api/notifications/{id}/read", h.HandleMarkRead)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := domain.ParseUserID(requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []notification.Notification{}
	}
	httputil.WriteData(w, http.StatusOK, items)
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := domain.ParseUserID(requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.MarkRead(r.Context(), userID, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]bool{"read": true})
}

func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, err := domain.ParseUserID(requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}

	if err := h.service.MarkAllRead(r.Context(), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]bool{"read": true})
}
