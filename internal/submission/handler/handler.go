package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leanquest/internal/player"
	"leanquest/internal/submission/service"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/httputil"
	"leanquest/pkg/requestcontext"
)

// Handler wires submission endpoints. All routes assume the auth middleware
// already ran.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts submission endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/submissions", h.HandleSubmit)
	r.Get("/api/submissions/{id}", h.HandleGet)
	r.Post("/api/submissions/{id}/review", h.HandleReview)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, err := identity(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := httputil.Decode[service.SubmitRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Submit(r.Context(), userID, tenantID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, result)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _, err := identity(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := domain.ParseSubmissionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	role := player.Role(requestcontext.Role(r.Context()))
	sub, err := h.service.Get(r.Context(), id, userID, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, sub)
}

func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	reviewerID, _, err := identity(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role := player.Role(requestcontext.Role(r.Context()))
	if role != player.RoleReviewer && role != player.RoleAdmin {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "reviewer role required"))
		return
	}
	id, err := domain.ParseSubmissionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := httputil.Decode[service.ReviewRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub, err := h.service.Review(r.Context(), id, reviewerID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, sub)
}

func identity(r *http.Request) (domain.UserID, domain.TenantID, error) {
	userID, err := domain.ParseUserID(requestcontext.UserID(r.Context()))
	if err != nil {
		return domain.UserID{}, domain.TenantID{}, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}
	tenantID, err := domain.ParseTenantID(requestcontext.TenantID(r.Context()))
	if err != nil {
		return domain.UserID{}, domain.TenantID{}, dErrors.New(dErrors.CodeUnauthorized, "tenant missing from token")
	}
	return userID, tenantID, nil
}
