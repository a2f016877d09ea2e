package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leanquest/internal/achievement"
	"leanquest/internal/activity"
	"leanquest/internal/notification"
	"leanquest/internal/platform/metrics"
	"leanquest/internal/player"
	playersvc "leanquest/internal/player/service"
	"leanquest/internal/score"
	"leanquest/internal/submission"
	"leanquest/internal/submission/store"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/platform/sentinel"
)

// PlayerApplier is the slice of the player service submissions need.
type PlayerApplier interface {
	ApplyActivity(ctx context.Context, id domain.UserID, entry player.ActivityEntry) (*playersvc.ApplyResult, error)
}

// Notifier creates in-app notifications. Satisfied by notification.Service.
type Notifier interface {
	Notify(ctx context.Context, userID domain.UserID, typ notification.Type, title, message, relatedTask string)
}

// Service runs the submission flow: validate against the template, score,
// award XP, fold into the player aggregate, and record the audit trail.
type Service struct {
	subs      store.Store
	templates store.TemplateStore
	players   PlayerApplier
	notifier  Notifier
	trail     *activity.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
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

// WithNotifier attaches the notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithTrail attaches the activity audit trail.
func WithTrail(trail *activity.Publisher) Option {
	return func(s *Service) { s.trail = trail }
}

// New constructs the submission service.
func New(subs store.Store, templates store.TemplateStore, players PlayerApplier, opts ...Option) (*Service, error) {
	if subs == nil {
		return nil, fmt.Errorf("submission store is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template store is required")
	}
	if players == nil {
		return nil, fmt.Errorf("player applier is required")
	}
	svc := &Service{
		subs:      subs,
		templates: templates,
		players:   players,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitRequest is the scored audit presented by the client.
type SubmitRequest struct {
	TemplateID domain.TemplateID         `json:"templateId"`
	Responses  map[string]score.Response `json:"responses"`
}

// SubmitResult is everything the client needs after a submission: the frozen
// submission plus the refreshed, authoritative player record.
type SubmitResult struct {
	Submission      *submission.Submission `json:"submission"`
	Player          *player.Player         `json:"player"`
	XPAwarded       int                    `json:"xpAwarded"`
	LeveledUp       bool                   `json:"leveledUp"`
	NewAchievements []achievement.Unlocked `json:"newAchievements"`
}

// Submit scores the responses, freezes the submission, and folds the result
// into the player aggregate.
func (s *Service) Submit(ctx context.Context, userID domain.UserID, tenantID domain.TenantID, req SubmitRequest) (*SubmitResult, error) {
	tpl, err := s.templates.FindByID(ctx, req.TemplateID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit template not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load template")
	}

	result, err := score.Calculate(tpl.Items, req.Responses)
	if err != nil {
		return nil, err
	}
	xp := score.XPAward(tpl.BaseReward, result.Score)

	now := s.now()
	sub := &submission.Submission{
		ID:           domain.NewSubmissionID(),
		UserID:       userID,
		TenantID:     tenantID,
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		Category:     tpl.Category,
		Status:       submission.StatusSubmitted,
		Responses:    req.Responses,
		Score:        result.Score,
		RiskTier:     result.RiskTier,
		XPAwarded:    xp,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store submission")
	}

	applied, err := s.players.ApplyActivity(ctx, userID, player.ActivityEntry{
		ID:       sub.ID.String(),
		Game:     tpl.Name,
		Category: tpl.Category,
		Score:    result.Score,
		XP:       xp,
		Date:     now,
	})
	if err != nil {
		return nil, err
	}

	s.recordSubmitted(ctx, sub, applied)

	if s.metrics != nil {
		s.metrics.SubmissionsTotal.WithLabelValues(string(result.RiskTier)).Inc()
	}
	s.logger.InfoContext(ctx, "submission scored",
		"submission_id", sub.ID, "user_id", userID, "template", tpl.Name,
		"score", result.Score, "risk_tier", result.RiskTier, "xp", xp,
	)

	return &SubmitResult{
		Submission:      sub,
		Player:          applied.Player,
		XPAwarded:       applied.XPAwarded,
		LeveledUp:       applied.LeveledUp,
		NewAchievements: applied.NewAchievements,
	}, nil
}

// Get returns a submission. Only the owner and reviewers may read it.
func (s *Service) Get(ctx context.Context, id domain.SubmissionID, requester domain.UserID, role player.Role) (*submission.Submission, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load submission")
	}
	if sub.UserID != requester && role != player.RoleReviewer && role != player.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "not allowed to view this submission")
	}
	return sub, nil
}

// ReviewRequest is a reviewer's verdict on a submitted audit.
type ReviewRequest struct {
	Decision submission.Status `json:"decision"`
	Note     string            `json:"note,omitempty"`
}

// Review moves a submitted audit to approved or rejected. Only the reviewer
// fields change; the scored content stays frozen.
func (s *Service) Review(ctx context.Context, id domain.SubmissionID, reviewer domain.UserID, req ReviewRequest) (*submission.Submission, error) {
	if req.Decision != submission.StatusApproved && req.Decision != submission.StatusRejected {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "decision must be approved or rejected")
	}

	sub, err := s.subs.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load submission")
	}
	if sub.UserID == reviewer {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot review your own submission")
	}
	if !sub.Status.CanTransition(req.Decision) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "submission is %s and cannot move to %s", sub.Status, req.Decision)
	}

	now := s.now()
	sub.Status = req.Decision
	sub.ReviewedBy = reviewer
	sub.ReviewNote = req.Note
	sub.ReviewedAt = &now
	sub.UpdatedAt = now
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist review")
	}

	s.recordReviewed(ctx, sub)
	s.logger.InfoContext(ctx, "submission reviewed",
		"submission_id", sub.ID, "reviewer", reviewer, "decision", sub.Status)
	return sub, nil
}

func (s *Service) recordSubmitted(ctx context.Context, sub *submission.Submission, applied *playersvc.ApplyResult) {
	if s.trail != nil {
		s.trail.Emit(ctx, activity.Event{
			UserID:   sub.UserID,
			TenantID: sub.TenantID,
			Kind:     activity.KindSubmissionScored,
			Subject:  sub.ID.String(),
			Detail:   sub.TemplateName,
			Score:    sub.Score,
			XP:       sub.XPAwarded,
		})
		if applied.LeveledUp {
			s.trail.Emit(ctx, activity.Event{
				UserID:   sub.UserID,
				TenantID: sub.TenantID,
				Kind:     activity.KindLevelUp,
				Subject:  fmt.Sprintf("level %d", applied.Player.Level),
			})
		}
		for _, a := range applied.NewAchievements {
			s.trail.Emit(ctx, activity.Event{
				UserID:   sub.UserID,
				TenantID: sub.TenantID,
				Kind:     activity.KindAchievementUnlocked,
				Subject:  string(a.ID),
			})
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, sub.UserID, notification.TypeInfo,
			"Audit scored",
			fmt.Sprintf("%s scored %d (%s), +%d XP", sub.TemplateName, sub.Score, sub.RiskTier, sub.XPAwarded),
			sub.ID.String())
		for _, a := range applied.NewAchievements {
			s.notifier.Notify(ctx, sub.UserID, notification.TypeAchievement,
				"Achievement unlocked",
				fmt.Sprintf("You unlocked %s", a.ID),
				sub.ID.String())
		}
	}
}

func (s *Service) recordReviewed(ctx context.Context, sub *submission.Submission) {
	if s.trail != nil {
		s.trail.Emit(ctx, activity.Event{
			UserID:   sub.UserID,
			TenantID: sub.TenantID,
			Kind:     activity.KindSubmissionReviewed,
			Subject:  sub.ID.String(),
			Detail:   string(sub.Status),
		})
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, sub.UserID, notification.TypeReview,
			"Audit reviewed",
			fmt.Sprintf("%s was %s", sub.TemplateName, sub.Status),
			sub.ID.String())
	}
}
