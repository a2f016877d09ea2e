// Package notification delivers in-app messages about progression events.
// Everything but the read flag is immutable after creation.
package notification

import (
	"time"

	"leanquest/pkg/domain"
)

// Type classifies a notification for client rendering.
type Type string

const (
	TypeInfo        Type = "info"
	TypeAchievement Type = "achievement"
	TypeReview      Type = "review"
)

// Notification is one in-app message.
type Notification struct {
	ID          domain.NotificationID `json:"id"`
	UserID      domain.UserID         `json:"-"`
	Title       string                `json:"title"`
	Message     string                `json:"message"`
	Type        Type                  `json:"type"`
	Read        bool                  `json:"read"`
	RelatedTask string                `json:"relatedTask,omitempty"`
	Timestamp   time.Time             `json:"timestamp"`
}
