package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/sentinel"
)

// Service mediates notification reads and writes.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	svc := &Service{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Notify creates a notification for a user. Best-effort from the caller's
// point of view: failures are logged, not propagated, so a notification
// hiccup cannot fail a submission.
func (s *Service) Notify(ctx context.Context, userID domain.UserID, typ Type, title, message, relatedTask string) {
	n := &Notification{
		ID:          domain.NewNotificationID(),
		UserID:      userID,
		Title:       title,
		Message:     message,
		Type:        typ,
		RelatedTask: relatedTask,
		Timestamp:   s.now(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "failed to create notification",
			"error", err, "user_id", userID, "type", typ)
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID domain.UserID) ([]Notification, error) {
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flips the read flag on one notification.
func (s *Service) MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error {
	err := s.store.MarkRead(ctx, userID, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flips the read flag on every notification of the user.
func (s *Service) MarkAllRead(ctx context.Context, userID domain.UserID) error {
	if err := s.store.MarkAllRead(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	return nil
}

// CountUnread returns the user's unread notification count.
func (s *Service) CountUnread(ctx context.Context, userID domain.UserID) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}
	return count, nil
}
