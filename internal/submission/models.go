// Package submission owns audit sessions: a player works through a checklist
// template, submits the responses for scoring, and a reviewer approves or
// rejects the result. Once submitted, everything but the reviewer fields is
// frozen.
package submission

import (
	"time"

	"leanquest/internal/achievement"
	"leanquest/internal/score"
	"leanquest/pkg/domain"
)

// Status is the audit session state machine. Transitions are one-directional:
// in_progress -> submitted -> approved | rejected.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// CanTransition reports whether the move from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusInProgress:
		return next == StatusSubmitted
	case StatusSubmitted:
		return next == StatusApproved || next == StatusRejected
	default:
		return false
	}
}

// Template is a reusable audit checklist. BaseReward is the XP granted at a
// perfect score; the actual award scales with the compliance score.
type Template struct {
	ID         domain.TemplateID     `json:"id"`
	Name       string                `json:"name"`
	Category   achievement.Category  `json:"category"`
	BaseReward int                   `json:"baseReward"`
	Items      []score.ChecklistItem `json:"items"`
}

// Submission is one audit session.
type Submission struct {
	ID           domain.SubmissionID `json:"id"`
	UserID       domain.UserID       `json:"userId"`
	TenantID     domain.TenantID     `json:"tenantId"`
	TemplateID   domain.TemplateID   `json:"templateId"`
	TemplateName string              `json:"templateName"`

	Category  achievement.Category      `json:"category"`
	Status    Status                    `json:"status"`
	Responses map[string]score.Response `json:"responses"`

	Score     int            `json:"score"`
	RiskTier  score.RiskTier `json:"riskTier"`
	XPAwarded int            `json:"xpAwarded"`

	ReviewedBy domain.UserID `json:"reviewedBy,omitzero"`
	ReviewNote string        `json:"reviewNote,omitempty"`
	ReviewedAt *time.Time    `json:"reviewedAt,omitempty"`

	SubmittedAt time.Time `json:"submittedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
