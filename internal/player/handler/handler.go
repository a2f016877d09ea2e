package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"leanquest/internal/player"
	"leanquest/internal/player/service"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/httputil"
	"leanquest/pkg/requestcontext"
)

// UnreadCounter is the slice of the notification service the profile needs.
type UnreadCounter interface {
	CountUnread(ctx context.Context, userID domain.UserID) (int, error)
}

// Handler serves the authenticated player's profile.
type Handler struct {
	service *service.Service
	unread  UnreadCounter
	logger  *slog.Logger
}

func New(service *service.Service, unread UnreadCounter, logger *slog.Logger) *Handler {
	return &Handler{service: service, unread: unread, logger: logger}
}

// Register mounts player endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/users/me", h.HandleMe)
}

// profileResponse is the player record plus the unread notification badge, so
// clients render the home screen from one round trip.
type profileResponse struct {
	*player.Player
	UnreadNotifications int `json:"unreadNotifications"`
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := domain.ParseUserID(requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}

	var (
		p      *player.Player
		unread int
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		p, err = h.service.Profile(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = h.unread.CountUnread(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, profileResponse{Player: p, UnreadNotifications: unread})
}
