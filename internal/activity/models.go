// Package activity keeps the append-only audit trail of progression events.
// Entries are immutable once written; the player's RecentActivity is a capped
// view, this trail is the full history.
package activity

import (
	"time"

	"leanquest/pkg/domain"
)

// Kind classifies a progression event.
type Kind string

const (
	KindSubmissionScored    Kind = "submission_scored"
	KindSubmissionReviewed  Kind = "submission_reviewed"
	KindLevelUp             Kind = "level_up"
	KindAchievementUnlocked Kind = "achievement_unlocked"
)

// Event is one immutable row of the trail.
type Event struct {
	ID        string          `json:"id"`
	UserID    domain.UserID   `json:"userId"`
	TenantID  domain.TenantID `json:"tenantId"`
	Kind      Kind            `json:"kind"`
	Subject   string          `json:"subject"`
	Detail    string          `json:"detail,omitempty"`
	Score     int             `json:"score,omitempty"`
	XP        int             `json:"xp,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
