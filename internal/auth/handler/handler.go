package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leanquest/internal/auth/models"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/httputil"
	"leanquest/pkg/requestcontext"
)

// Service defines the auth operations the handler exposes.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest, userAgent string) (*models.TokenResult, error)
	Login(ctx context.Context, req models.LoginRequest, userAgent string) (*models.TokenResult, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenResult, error)
	Logout(ctx context.Context, sessionID domain.SessionID) error
}

// Handler wires auth endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an auth handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public auth endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/refresh", h.HandleRefresh)
}

// RegisterProtected mounts the auth endpoints that need a valid access token.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[models.RegisterRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), req, r.UserAgent())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, result)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[models.LoginRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req, r.UserAgent())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID, err := domain.ParseSessionID(requestcontext.SessionID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[models.RefreshRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Refresh(r.Context(), req)
	if err != nil {
		h.logger.WarnContext(r.Context(), "token refresh rejected", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}
