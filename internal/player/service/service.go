package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leanquest/internal/achievement"
	"leanquest/internal/level"
	"leanquest/internal/platform/metrics"
	"leanquest/internal/player"
	"leanquest/internal/player/store"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/sentinel"
)

// recentActivityCap bounds the activity log carried on the aggregate; older
// entries survive in the activity audit trail.
const recentActivityCap = 50

// Service is the single writer of player progression. Every mutation derives
// level fields from the threshold table, so Level/CurrentXP/NextLevelXP stay
// pure functions of TotalXP.
type Service struct {
	store   store.Store
	table   level.Table
	rules   []achievement.Rule
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCatalog overrides the achievement catalog (tests use small rule sets).
func WithCatalog(rules []achievement.Rule) Option {
	return func(s *Service) { s.rules = rules }
}

// New constructs a player service over the given store and threshold table.
func New(st store.Store, table level.Table, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("player store is required")
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("level table is required")
	}
	svc := &Service{
		store:  st,
		table:  table,
		rules:  achievement.DefaultCatalog(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Profile returns the canonical player record.
func (s *Service) Profile(ctx context.Context, id domain.UserID) (*player.Player, error) {
	p, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "player not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load player")
	}
	return p, nil
}

// Register creates a fresh level-1 player.
func (s *Service) Register(ctx context.Context, p *player.Player) error {
	now := s.now()
	progress := s.table.LevelOf(0)
	p.Level = progress.Level
	p.NextLevelXP = progress.NextLevelXP
	p.CurrentXP = 0
	p.TotalXP = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.CategoryCompleted == nil {
		p.CategoryCompleted = make(map[achievement.Category]int)
	}

	err := s.store.Create(ctx, p)
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "email already registered")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create player")
	}
	return nil
}

// ApplyResult is the outcome of folding one completed activity into a player.
type ApplyResult struct {
	Player          *player.Player
	XPAwarded       int
	LeveledUp       bool
	NewAchievements []achievement.Unlocked
}

// ApplyActivity folds a completed activity into the aggregate: appends the
// immutable log entry, advances the monotonic XP/score counters, re-derives
// the level fields, and unlocks any newly satisfied achievements.
func (s *Service) ApplyActivity(ctx context.Context, id domain.UserID, entry player.ActivityEntry) (*ApplyResult, error) {
	if entry.XP < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "xp award must be non-negative")
	}

	p, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if entry.Date.IsZero() {
		entry.Date = now
	}

	prevLevel := p.Level
	p.TotalXP += entry.XP
	p.TotalScore += entry.Score
	p.GamesCompleted++
	if entry.Category != "" {
		if p.CategoryCompleted == nil {
			p.CategoryCompleted = make(map[achievement.Category]int)
		}
		p.CategoryCompleted[entry.Category]++
	}

	progress := s.table.LevelOf(p.TotalXP)
	p.Level = progress.Level
	p.NextLevelXP = progress.NextLevelXP
	p.CurrentXP = p.TotalXP - s.table.FloorOf(p.TotalXP)

	p.RecentActivity = append(p.RecentActivity, entry)
	if len(p.RecentActivity) > recentActivityCap {
		p.RecentActivity = p.RecentActivity[len(p.RecentActivity)-recentActivityCap:]
	}

	evaluator := achievement.NewEvaluator(s.rules, p.UnlockedSet(),
		achievement.WithClock(func() time.Time { return now }))
	newly := evaluator.Evaluate(p.Stats(), achievement.Activity{
		Label:    entry.Game,
		Category: entry.Category,
		Score:    entry.Score,
	})
	p.Achievements = append(p.Achievements, newly...)
	p.UpdatedAt = now

	if err := s.store.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist progression")
	}

	leveled := p.Level > prevLevel
	if s.metrics != nil {
		s.metrics.XPAwardedTotal.Add(float64(entry.XP))
		if leveled {
			s.metrics.LevelUpsTotal.Inc()
		}
		for range newly {
			s.metrics.AchievementsUnlocked.Inc()
		}
	}
	s.logger.InfoContext(ctx, "activity applied",
		"user_id", id, "game", entry.Game, "score", entry.Score, "xp", entry.XP,
		"level", p.Level, "leveled_up", leveled, "new_achievements", len(newly),
	)

	return &ApplyResult{
		Player:          p,
		XPAwarded:       entry.XP,
		LeveledUp:       leveled,
		NewAchievements: newly,
	}, nil
}
