// Package store defines the player persistence contract.
//
// Error Contract:
// - Return sentinel.ErrNotFound when the player does not exist
// - Return sentinel.ErrConflict on duplicate email at creation
// - Return wrapped errors with context for infrastructure failures
package store

import (
	"context"

	"leanquest/internal/player"
	"leanquest/pkg/domain"
)

// Store persists players. Update replaces the whole aggregate; callers go
// through the player service so the progression invariants hold.
type Store interface {
	Create(ctx context.Context, p *player.Player) error
	FindByID(ctx context.Context, id domain.UserID) (*player.Player, error)
	FindByEmail(ctx context.Context, email string) (*player.Player, error)
	Update(ctx context.Context, p *player.Player) error
}
