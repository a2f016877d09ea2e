// Package progression is the client-side completion flow: submit a finished
// activity, re-fetch the canonical player, and evaluate achievements. The
// backend stays authoritative for XP and level; the orchestrator only
// recomputes them locally when the backend is unreachable.
package progression

import (
	"context"

	"leanquest/internal/achievement"
	"leanquest/internal/player"
	"leanquest/internal/score"
)

// SubmitRequest is the scored audit sent to POST /api/submissions.
type SubmitRequest struct {
	TemplateID string                    `json:"templateId"`
	Responses  map[string]score.Response `json:"responses"`
}

// SubmittedAudit is the slice of the server's submission record the client
// cares about.
type SubmittedAudit struct {
	ID       string         `json:"id"`
	Score    int            `json:"score"`
	RiskTier score.RiskTier `json:"riskTier"`
	Status   string         `json:"status"`
}

// SubmitResponse is the server's answer to a submission: the frozen audit plus
// the refreshed player record.
type SubmitResponse struct {
	Submission      *SubmittedAudit        `json:"submission"`
	Player          *player.Player         `json:"player"`
	XPAwarded       int                    `json:"xpAwarded"`
	LeveledUp       bool                   `json:"leveledUp"`
	NewAchievements []achievement.Unlocked `json:"newAchievements"`
}

// Profile is the /api/users/me payload.
type Profile struct {
	player.Player
	UnreadNotifications int `json:"unreadNotifications"`
}

// Notification mirrors the server's notification wire shape.
type Notification struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	Read        bool   `json:"read"`
	RelatedTask string `json:"relatedTask,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Backend is the REST surface the orchestrator drives. The HTTP implementation
// rides the submission pipeline; tests substitute a generated mock.
type Backend interface {
	SubmitResult(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
	FetchPlayer(ctx context.Context) (*Profile, error)
	FetchNotifications(ctx context.Context) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}
