package models

import (
	"time"

	"leanquest/pkg/domain"
)

// RefreshTokenRecord is a single-use, opaque refresh token bound to a session.
type RefreshTokenRecord struct {
	Token     string
	UserID    domain.UserID
	TenantID  domain.TenantID
	SessionID domain.SessionID
	Device    string
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RegisterRequest carries the fields presented at POST /auth/register.
// TenantID is optional; self-registrations without one get a fresh tenant.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	TenantID string `json:"tenantId,omitempty"`
}

// LoginRequest carries the credentials presented at POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries the opaque token presented at POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResult is the pair returned by login and refresh.
type TokenResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}
