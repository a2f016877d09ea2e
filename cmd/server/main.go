package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"leanquest/internal/activity"
	authhandler "leanquest/internal/auth/handler"
	"leanquest/internal/auth/jwttoken"
	authsvc "leanquest/internal/auth/service"
	"leanquest/internal/auth/store/refreshtoken"
	httpapi "leanquest/internal/http"
	"leanquest/internal/level"
	"leanquest/internal/notification"
	notificationhandler "leanquest/internal/notification/handler"
	"leanquest/internal/platform/config"
	"leanquest/internal/platform/httpserver"
	"leanquest/internal/platform/logger"
	"leanquest/internal/platform/metrics"
	"leanquest/internal/platform/redis"
	playerhandler "leanquest/internal/player/handler"
	playersvc "leanquest/internal/player/service"
	playerstore "leanquest/internal/player/store"
	"leanquest/internal/ratelimit"
	submissionhandler "leanquest/internal/submission/handler"
	submissionsvc "leanquest/internal/submission/service"
	submissionstore "leanquest/internal/submission/store"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	// Stores: Postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		players playerstore.Store     = playerstore.NewInMemoryStore()
		subs    submissionstore.Store = submissionstore.NewInMemoryStore()
		trail   activity.Store        = activity.NewInMemoryStore()
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		players = playerstore.NewPostgres(pool)
		subs = submissionstore.NewPostgres(pool)

		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open activity database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		trail = activity.NewPostgresStore(db)
	}

	// Refresh tokens: Redis when configured, in-memory otherwise.
	var refreshStore refreshtoken.Store = refreshtoken.NewInMemoryStore()
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		refreshStore = refreshtoken.NewRedisStore(redisClient)
	}

	playerService, err := playersvc.New(players, level.DefaultTable,
		playersvc.WithLogger(log), playersvc.WithMetrics(m))
	if err != nil {
		log.Error("failed to build player service", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.New(cfg.JWTSigningKey, cfg.JWTIssuer)
	authService, err := authsvc.New(players, refreshStore, jwtService,
		cfg.AccessTTL, cfg.RefreshTTL,
		authsvc.WithLogger(log), authsvc.WithMetrics(m),
		authsvc.WithRegistrar(playerService))
	if err != nil {
		log.Error("failed to build auth service", "error", err)
		os.Exit(1)
	}

	notificationService, err := notification.New(notification.NewInMemoryStore(),
		notification.WithLogger(log))
	if err != nil {
		log.Error("failed to build notification service", "error", err)
		os.Exit(1)
	}

	templates := submissionstore.NewInMemoryTemplateStore(submissionstore.SeedTemplates())
	submissionService, err := submissionsvc.New(subs, templates, playerService,
		submissionsvc.WithLogger(log),
		submissionsvc.WithMetrics(m),
		submissionsvc.WithNotifier(notificationService),
		submissionsvc.WithTrail(activity.NewPublisher(trail, activity.WithLogger(log))))
	if err != nil {
		log.Error("failed to build submission service", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillRate, cfg.RateLimit.RetryAfter)
	rateLimit := ratelimit.NewMiddleware(limiter, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled))

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:        log,
		JWT:           jwtService,
		RateLimit:     rateLimit,
		Auth:          authhandler.New(authService, log),
		Players:       playerhandler.New(playerService, notificationService, log),
		Submissions:   submissionhandler.New(submissionService, log),
		Notifications: notificationhandler.New(notificationService, log),
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting leanquest server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
