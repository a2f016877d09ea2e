package notification

import (
	"context"

	"leanquest/pkg/domain"
)

// Store persists notifications. MarkRead returns sentinel.ErrNotFound when the
// id does not exist or belongs to another user.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID domain.UserID) ([]Notification, error)
	MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error
	MarkAllRead(ctx context.Context, userID domain.UserID) error
	CountUnread(ctx context.Context, userID domain.UserID) (int, error)
}
