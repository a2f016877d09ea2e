// Package httpapi assembles the public HTTP surface: middleware chain, public
// auth endpoints, and the authenticated API group.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "leanquest/internal/auth/handler"
	"leanquest/internal/auth/jwttoken"
	notificationhandler "leanquest/internal/notification/handler"
	"leanquest/internal/platform/middleware"
	playerhandler "leanquest/internal/player/handler"
	"leanquest/internal/ratelimit"
	submissionhandler "leanquest/internal/submission/handler"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger        *slog.Logger
	JWT           *jwttoken.Service
	RateLimit     *ratelimit.Middleware
	Auth          *authhandler.Handler
	Players       *playerhandler.Handler
	Submissions   *submissionhandler.Handler
	Notifications *notificationhandler.Handler
}

// NewRouter wires all endpoints. Auth endpoints are public but rate limited by
// IP; everything under /api requires a valid access token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(d.RateLimit.Limit)
		d.Auth.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.JWT, d.Logger))
		r.Use(d.RateLimit.Limit)
		d.Auth.RegisterProtected(r)
		d.Players.Register(r)
		d.Submissions.Register(r)
		d.Notifications.Register(r)
	})

	return r
}
