// Package player owns the canonical player record: identity, progression
// aggregates, unlocked achievements, and the append-only activity log. The
// backend is the single writer; clients re-fetch this record after every
// submission instead of computing progression from stale deltas.
package player

import (
	"time"

	"leanquest/internal/achievement"
	"leanquest/pkg/domain"
)

// Role gates reviewer-only operations (submission approval).
type Role string

const (
	RoleAuditor  Role = "auditor"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// Player is the aggregate root.
//
// Invariants:
//   - TotalXP is monotonically non-decreasing over the player's lifetime
//   - Level, CurrentXP, and NextLevelXP are pure functions of TotalXP
//   - RecentActivity is append-only, most-recent-last; entries never mutate
//   - Achievements is a subset of catalog ids; each id appears at most once
type Player struct {
	ID       domain.UserID   `json:"id"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Role     Role            `json:"role"`
	TenantID domain.TenantID `json:"tenantId"`

	Level       int `json:"level"`
	CurrentXP   int `json:"currentXp"`
	TotalXP     int `json:"totalXp"`
	NextLevelXP int `json:"nextLevelXp"`

	GamesCompleted int `json:"gamesCompleted"`
	TotalScore     int `json:"totalScore"`

	CategoryCompleted map[achievement.Category]int `json:"categoryCompleted,omitempty"`
	Achievements      []achievement.Unlocked       `json:"achievements"`
	RecentActivity    []ActivityEntry              `json:"recentActivity"`

	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ActivityEntry is one immutable row of the activity log.
type ActivityEntry struct {
	ID       string               `json:"id"`
	Game     string               `json:"game"`
	Category achievement.Category `json:"category,omitempty"`
	Score    int                  `json:"score"`
	XP       int                  `json:"xp"`
	Date     time.Time            `json:"date"`
}

// UnlockedSet returns the player's unlocked achievement ids keyed by unlock time.
func (p *Player) UnlockedSet() map[achievement.ID]time.Time {
	set := make(map[achievement.ID]time.Time, len(p.Achievements))
	for _, a := range p.Achievements {
		set[a.ID] = a.UnlockedAt
	}
	return set
}

// Stats projects the aggregates the achievement evaluator predicates on.
func (p *Player) Stats() achievement.PlayerStats {
	return achievement.PlayerStats{
		Level:             p.Level,
		GamesCompleted:    p.GamesCompleted,
		TotalScore:        p.TotalScore,
		CategoryCompleted: p.CategoryCompleted,
		Unlocked:          p.UnlockedSet(),
	}
}

// HasAchievement reports whether the id is already unlocked.
func (p *Player) HasAchievement(id achievement.ID) bool {
	for _, a := range p.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}
