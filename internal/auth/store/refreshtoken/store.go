// Package refreshtoken persists single-use refresh tokens.
package refreshtoken

import (
	"context"
	"time"

	"leanquest/internal/auth/models"
)

// Store persists refresh token records.
//
// Consume marks a token as used and returns its record. Implementations must
// make the check-and-mark atomic so a token presented twice concurrently is
// honored at most once. Error contract:
//   - sentinel.ErrNotFound when the token does not exist
//   - sentinel.ErrExpired when the token is past its expiry
//   - sentinel.ErrAlreadyUsed when the token was consumed before (replay)
type Store interface {
	Create(ctx context.Context, rec *models.RefreshTokenRecord) error
	Consume(ctx context.Context, token string, now time.Time) (*models.RefreshTokenRecord, error)
	RevokeSession(ctx context.Context, sessionID string) error
}
