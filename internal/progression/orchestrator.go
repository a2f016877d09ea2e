package progression

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"leanquest/internal/achievement"
	"leanquest/internal/level"
	"leanquest/internal/player"
	"leanquest/internal/score"
	dErrors "leanquest/pkg/domain-errors"
)

// ActivityResult is a finished activity ready for submission. Score may be
// precomputed by the caller; when nil it is derived from Items and Responses.
type ActivityResult struct {
	TemplateID string
	Label      string
	Category   achievement.Category
	Items      []score.ChecklistItem
	Responses  map[string]score.Response
	BaseReward int
	Score      *int
}

// Outcome is what the UI renders after a completion. Authoritative is false
// when the backend was unreachable and the progression shown is a local
// estimate pending reconciliation.
type Outcome struct {
	XPAwarded       int
	Score           int
	RiskTier        score.RiskTier
	Player          *player.Player
	NewAchievements []achievement.Unlocked
	Authoritative   bool
}

// Orchestrator drives the completion flow in strict order: submit, re-fetch
// the canonical player, evaluate achievements. One orchestrator may serve
// interleaved completions; the accumulated evaluator guarantees an
// achievement unlocks at most once across them.
type Orchestrator struct {
	backend   Backend
	table     level.Table
	evaluator *achievement.Evaluator
	logger    *slog.Logger

	mu        sync.Mutex
	lastKnown *player.Player
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTable overrides the level table used for offline estimates.
func WithTable(table level.Table) Option {
	return func(o *Orchestrator) { o.table = table }
}

// WithCatalog overrides the achievement catalog.
func WithCatalog(rules []achievement.Rule) Option {
	return func(o *Orchestrator) {
		o.evaluator = achievement.NewEvaluator(rules, nil)
	}
}

// WithLastKnownPlayer primes the offline baseline, typically from a cached
// profile loaded at startup.
func WithLastKnownPlayer(p *player.Player) Option {
	return func(o *Orchestrator) { o.lastKnown = p }
}

// New constructs an Orchestrator over the given backend.
func New(backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:   backend,
		table:     level.DefaultTable,
		evaluator: achievement.NewEvaluator(achievement.DefaultCatalog(), nil),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete runs the completion flow for one finished activity.
//
// The backend is authoritative for XP and level: on the happy path the
// returned player comes from the server and nothing is recomputed locally.
// Transport failures degrade to a local estimate (Authoritative=false); auth
// and rate-limit failures are returned to the caller untouched.
func (o *Orchestrator) Complete(ctx context.Context, res ActivityResult) (*Outcome, error) {
	sc, tier, err := o.resolveScore(res)
	if err != nil {
		return nil, err
	}

	submitted, err := o.backend.SubmitResult(ctx, SubmitRequest{
		TemplateID: res.TemplateID,
		Responses:  res.Responses,
	})
	if dErrors.HasCode(err, dErrors.CodeUnavailable) {
		o.logger.WarnContext(ctx, "backend unreachable, resolving completion locally",
			"label", res.Label, "error", err)
		return o.completeOffline(res, sc, tier), nil
	}
	if err != nil {
		return nil, err
	}

	// Server recomputed the score; prefer its numbers over the local estimate.
	if submitted.Submission != nil {
		sc = submitted.Submission.Score
		tier = submitted.Submission.RiskTier
	}

	canonical := submitted.Player
	profile, err := o.backend.FetchPlayer(ctx)
	switch {
	case err == nil:
		canonical = &profile.Player
	case dErrors.HasCode(err, dErrors.CodeUnavailable) && canonical != nil:
		// The submission landed; its embedded player is still server truth.
	default:
		return nil, err
	}

	newly := o.evaluator.Evaluate(canonical.Stats(), achievement.Activity{
		Label:    res.Label,
		Category: res.Category,
		Score:    sc,
	})

	o.setLastKnown(canonical)
	return &Outcome{
		XPAwarded:       submitted.XPAwarded,
		Score:           sc,
		RiskTier:        tier,
		Player:          canonical,
		NewAchievements: newly,
		Authoritative:   true,
	}, nil
}

// Notifications fetches the player's notification feed.
func (o *Orchestrator) Notifications(ctx context.Context) ([]Notification, error) {
	return o.backend.FetchNotifications(ctx)
}

// MarkNotificationRead marks one notification read.
func (o *Orchestrator) MarkNotificationRead(ctx context.Context, id string) error {
	return o.backend.MarkNotificationRead(ctx, id)
}

// MarkAllNotificationsRead marks the whole feed read.
func (o *Orchestrator) MarkAllNotificationsRead(ctx context.Context) error {
	return o.backend.MarkAllNotificationsRead(ctx)
}

// resolveScore uses the precomputed score when present, else derives it.
func (o *Orchestrator) resolveScore(res ActivityResult) (int, score.RiskTier, error) {
	if res.Score != nil {
		return *res.Score, score.TierFor(*res.Score), nil
	}
	result, err := score.Calculate(res.Items, res.Responses)
	if err != nil {
		return 0, "", err
	}
	return result.Score, result.RiskTier, nil
}

// completeOffline synthesizes a non-authoritative outcome from the last-known
// player so a finished activity is never lost to a network blip. The next
// successful completion replaces the estimate with server truth.
func (o *Orchestrator) completeOffline(res ActivityResult, sc int, tier score.RiskTier) *Outcome {
	offlineFallbacksTotal.Inc()

	o.mu.Lock()
	base := clonePlayer(o.lastKnown)
	o.mu.Unlock()

	xp := score.XPAward(res.BaseReward, sc)
	base.TotalXP += xp
	base.TotalScore += sc
	base.GamesCompleted++
	if res.Category != "" {
		if base.CategoryCompleted == nil {
			base.CategoryCompleted = make(map[achievement.Category]int)
		}
		base.CategoryCompleted[res.Category]++
	}
	progress := o.table.LevelOf(base.TotalXP)
	base.Level = progress.Level
	base.NextLevelXP = progress.NextLevelXP
	base.CurrentXP = base.TotalXP - o.table.FloorOf(base.TotalXP)
	base.UpdatedAt = time.Now()

	newly := o.evaluator.Evaluate(base.Stats(), achievement.Activity{
		Label:    res.Label,
		Category: res.Category,
		Score:    sc,
	})
	base.Achievements = append(base.Achievements, newly...)

	o.setLastKnown(base)
	return &Outcome{
		XPAwarded:       xp,
		Score:           sc,
		RiskTier:        tier,
		Player:          base,
		NewAchievements: newly,
		Authoritative:   false,
	}
}

func (o *Orchestrator) setLastKnown(p *player.Player) {
	o.mu.Lock()
	o.lastKnown = p
	o.mu.Unlock()
}

func clonePlayer(p *player.Player) *player.Player {
	if p == nil {
		return &player.Player{}
	}
	c := *p
	if p.CategoryCompleted != nil {
		c.CategoryCompleted = make(map[achievement.Category]int, len(p.CategoryCompleted))
		for k, v := range p.CategoryCompleted {
			c.CategoryCompleted[k] = v
		}
	}
	c.Achievements = append([]achievement.Unlocked(nil), p.Achievements...)
	c.RecentActivity = append([]player.ActivityEntry(nil), p.RecentActivity...)
	return &c
}
