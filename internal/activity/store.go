package activity

import (
	"context"

	"leanquest/pkg/domain"
)

// Store persists the trail. Append-only: there is no update or delete.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID domain.UserID) ([]Event, error)
}
