package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"golang.org/x/crypto/bcrypt"

	"leanquest/internal/auth/jwttoken"
	"leanquest/internal/auth/models"
	"leanquest/internal/auth/store/refreshtoken"
	"leanquest/internal/platform/metrics"
	"leanquest/internal/player"
	playerstore "leanquest/internal/player/store"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/sentinel"
)

// Registrar creates new players. Satisfied by the player service, which owns
// level-field initialization.
type Registrar interface {
	Register(ctx context.Context, p *player.Player) error
}

// Service issues and rotates the token pair. Refresh tokens are opaque,
// single-use values; access tokens are short-lived JWTs.
type Service struct {
	players    playerstore.Store
	registrar  Registrar
	refresh    refreshtoken.Store
	jwt        *jwttoken.Service
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRegistrar enables POST /auth/register.
func WithRegistrar(r Registrar) Option {
	return func(s *Service) { s.registrar = r }
}

// New constructs the auth service.
func New(players playerstore.Store, refresh refreshtoken.Store, jwt *jwttoken.Service,
	accessTTL, refreshTTL time.Duration, opts ...Option) (*Service, error) {
	if players == nil {
		return nil, fmt.Errorf("player store is required")
	}
	if refresh == nil {
		return nil, fmt.Errorf("refresh token store is required")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service is required")
	}
	svc := &Service{
		players:    players,
		refresh:    refresh,
		jwt:        jwt,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates a player and logs them in. Passwords are bcrypt-hashed;
// self-registrations without a tenant get a fresh one.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest, userAgent string) (*models.TokenResult, error) {
	if s.registrar == nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "registration is disabled")
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email, username, and password are required")
	}
	if len(req.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}

	tenantID := domain.NewTenantID()
	if req.TenantID != "" {
		parsed, err := domain.ParseTenantID(req.TenantID)
		if err != nil {
			return nil, err
		}
		tenantID = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	p := &player.Player{
		ID:           domain.NewUserID(),
		Email:        req.Email,
		Username:     req.Username,
		Role:         player.RoleAuditor,
		TenantID:     tenantID,
		PasswordHash: string(hash),
	}
	if err := s.registrar.Register(ctx, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "player registered", "user_id", p.ID, "tenant_id", tenantID)

	return s.issue(ctx, p.ID, p.TenantID, domain.NewSessionID(), string(p.Role), deviceOf(userAgent))
}

// Login verifies credentials and opens a session. The User-Agent string is
// parsed into a readable device description kept on the refresh token record.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, userAgent string) (*models.TokenResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	p, err := s.players.FindByEmail(ctx, req.Email)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Same error as a bad password so the endpoint does not leak which
		// emails exist.
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load player")
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)) != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	sessionID := domain.NewSessionID()
	return s.issue(ctx, p.ID, p.TenantID, sessionID, string(p.Role), deviceOf(userAgent))
}

// Refresh rotates a token pair: the presented refresh token is consumed
// exactly once and a fresh pair is issued for the same session. A replayed or
// expired token fails closed.
func (s *Service) Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenResult, error) {
	if req.RefreshToken == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "refreshToken is required")
	}

	rec, err := s.refresh.Consume(ctx, req.RefreshToken, s.now())
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		s.countRefresh("replay")
		s.logger.WarnContext(ctx, "refresh token replay detected")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		s.countRefresh("rejected")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	case err != nil:
		s.countRefresh("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume refresh token")
	}

	result, err := s.issue(ctx, rec.UserID, rec.TenantID, rec.SessionID, s.roleOf(ctx, rec.UserID), rec.Device)
	if err != nil {
		return nil, err
	}
	s.countRefresh("success")
	return result, nil
}

// Logout revokes every refresh token of the session.
func (s *Service) Logout(ctx context.Context, sessionID domain.SessionID) error {
	if err := s.refresh.RevokeSession(ctx, sessionID.String()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}
	return nil
}

func (s *Service) issue(ctx context.Context, userID domain.UserID, tenantID domain.TenantID,
	sessionID domain.SessionID, role, device string) (*models.TokenResult, error) {

	access, err := s.jwt.Generate(userID.String(), sessionID.String(), tenantID.String(), role, s.accessTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	now := s.now()
	refreshValue := "ref_" + uuid.NewString()
	rec := &models.RefreshTokenRecord{
		Token:     refreshValue,
		UserID:    userID,
		TenantID:  tenantID,
		SessionID: sessionID,
		Device:    device,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.refresh.Create(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store refresh token")
	}

	return &models.TokenResult{
		AccessToken:  access,
		RefreshToken: refreshValue,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) roleOf(ctx context.Context, userID domain.UserID) string {
	p, err := s.players.FindByID(ctx, userID)
	if err != nil {
		return ""
	}
	return string(p.Role)
}

func (s *Service) countRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.TokenRefreshesTotal.WithLabelValues(outcome).Inc()
	}
}

func deviceOf(userAgentString string) string {
	if userAgentString == "" {
		return "unknown"
	}
	ua := useragent.New(userAgentString)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s %s on %s", name, version, ua.OS())
}
