package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leanquest/internal/activity"
	"leanquest/internal/level"
	"leanquest/internal/notification"
	"leanquest/internal/player"
	playersvc "leanquest/internal/player/service"
	playerstore "leanquest/internal/player/store"
	"leanquest/internal/score"
	"leanquest/internal/submission"
	"leanquest/internal/submission/store"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
)

type recordedNote struct {
	userID  domain.UserID
	typ     notification.Type
	title   string
	message string
}

type fakeNotifier struct {
	notes []recordedNote
}

func (f *fakeNotifier) Notify(_ context.Context, userID domain.UserID, typ notification.Type, title, message, _ string) {
	f.notes = append(f.notes, recordedNote{userID: userID, typ: typ, title: title, message: message})
}

type ServiceSuite struct {
	suite.Suite
	subs     *store.InMemoryStore
	trail    *activity.Publisher
	notifier *fakeNotifier
	svc      *Service
	players  *playersvc.Service

	auditor  domain.UserID
	reviewer domain.UserID
	tenant   domain.TenantID
	template submission.Template
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	ps := playerstore.NewInMemoryStore()
	players, err := playersvc.New(ps, level.DefaultTable,
		playersvc.WithLogger(logger),
		playersvc.WithClock(func() time.Time { return s.now }),
		playersvc.WithCatalog(nil))
	s.Require().NoError(err)
	s.players = players

	s.tenant = domain.NewTenantID()
	s.auditor = s.register(players, "auditor@plant.example", player.RoleAuditor)
	s.reviewer = s.register(players, "reviewer@plant.example", player.RoleReviewer)

	s.template = store.SeedTemplates()[0] // 5S, five items, weight 5 each, base reward 100
	s.subs = store.NewInMemoryStore()
	s.notifier = &fakeNotifier{}
	s.trail = activity.NewPublisher(activity.NewInMemoryStore(),
		activity.WithLogger(logger),
		activity.WithClock(func() time.Time { return s.now }))

	svc, err := New(s.subs, store.NewInMemoryTemplateStore(store.SeedTemplates()), players,
		WithLogger(logger),
		WithClock(func() time.Time { return s.now }),
		WithNotifier(s.notifier),
		WithTrail(s.trail))
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) register(players *playersvc.Service, email string, role player.Role) domain.UserID {
	p := &player.Player{
		ID:       domain.NewUserID(),
		Email:    email,
		Username: email,
		Role:     role,
		TenantID: s.tenant,
	}
	s.Require().NoError(players.Register(context.Background(), p))
	return p.ID
}

// responses answers the first n template items as expected and the rest wrong.
func (s *ServiceSuite) responses(n int) map[string]score.Response {
	out := make(map[string]score.Response, len(s.template.Items))
	for i, item := range s.template.Items {
		answer := "no"
		if i < n {
			answer = item.Expected
		}
		out[item.ID] = score.Response{ItemID: item.ID, Answer: answer}
	}
	return out
}

// ============================================================================
// Submit
// ============================================================================

func (s *ServiceSuite) TestSubmitScoresAndAwardsXP() {
	// 4 of 5 equally weighted items correct: score 80, Yellow, XP 80 of the
	// 100 base reward.
	result, err := s.svc.Submit(context.Background(), s.auditor, s.tenant, SubmitRequest{
		TemplateID: s.template.ID,
		Responses:  s.responses(4),
	})
	s.Require().NoError(err)

	s.Equal(80, result.Submission.Score)
	s.Equal(score.TierYellow, result.Submission.RiskTier)
	s.Equal(80, result.XPAwarded)
	s.Equal(submission.StatusSubmitted, result.Submission.Status)
	s.Equal(s.now, result.Submission.SubmittedAt)

	s.Equal(80, result.Player.TotalXP, "player aggregate folds in the award")
	s.Equal(1, result.Player.GamesCompleted)
}

func (s *ServiceSuite) TestSubmitFreezesResponses() {
	responses := s.responses(5)
	result, err := s.svc.Submit(context.Background(), s.auditor, s.tenant, SubmitRequest{
		TemplateID: s.template.ID,
		Responses:  responses,
	})
	s.Require().NoError(err)

	responses["sort"] = score.Response{ItemID: "sort", Answer: "tampered"}

	stored, err := s.svc.Get(context.Background(), result.Submission.ID, s.auditor, player.RoleAuditor)
	s.Require().NoError(err)
	s.Equal("yes", stored.Responses["sort"].Answer, "stored responses are a frozen copy")
}

func (s *ServiceSuite) TestSubmitUnknownTemplate() {
	_, err := s.svc.Submit(context.Background(), s.auditor, s.tenant, SubmitRequest{
		TemplateID: domain.NewTemplateID(),
		Responses:  s.responses(5),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSubmitRecordsTrailAndNotification() {
	_, err := s.svc.Submit(context.Background(), s.auditor, s.tenant, SubmitRequest{
		TemplateID: s.template.ID,
		Responses:  s.responses(5),
	})
	s.Require().NoError(err)

	events, err := s.trail.List(context.Background(), s.auditor)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(activity.KindSubmissionScored, events[0].Kind)
	s.Equal(100, events[0].Score)

	s.Require().Len(s.notifier.notes, 1)
	s.Equal(notification.TypeInfo, s.notifier.notes[0].typ)
	s.Equal(s.auditor, s.notifier.notes[0].userID)
}

// ============================================================================
// Get
// ============================================================================

func (s *ServiceSuite) TestGetDeniedForOtherAuditors() {
	result, err := s.svc.Submit(context.Background(), s.auditor, s.tenant, SubmitRequest{
		TemplateID: s.template.ID,
		Responses:  s.responses(5),
	})
	s.Require().NoError(err)
	id := result.Submission.ID

	_, err = s.svc.Get(context.Background(), id, domain.NewUserID(), player.RoleAuditor)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.Get(context.Background(), id, s.reviewer, player.RoleReviewer)
	s.NoError(err, "reviewers may read any submission")
}

func (s *ServiceSuite) TestGetUnknownSubmission() {
	_, err := s.svc.Get(context.Background(), domain.NewSubmissionID(), s.auditor, player.RoleAuditor)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// ============================================================================
// Review
// ============================================================================

func (s *ServiceSuite) submitOne() domain.SubmissionID {
	result, err := s.svc.Submit(context.Background(), s.auditor, s.tenant, SubmitRequest{
		TemplateID: s.template.ID,
		Responses:  s.responses(3),
	})
	s.Require().NoError(err)
	return result.Submission.ID
}

func (s *ServiceSuite) TestReviewApproves() {
	id := s.submitOne()
	s.notifier.notes = nil

	reviewed, err := s.svc.Review(context.Background(), id, s.reviewer, ReviewRequest{
		Decision: submission.StatusApproved,
		Note:     "good catch on the tool shadows",
	})
	s.Require().NoError(err)

	s.Equal(submission.StatusApproved, reviewed.Status)
	s.Equal(s.reviewer, reviewed.ReviewedBy)
	s.Equal("good catch on the tool shadows", reviewed.ReviewNote)
	s.Require().NotNil(reviewed.ReviewedAt)
	s.Equal(s.now, *reviewed.ReviewedAt)

	s.Require().Len(s.notifier.notes, 1)
	s.Equal(notification.TypeReview, s.notifier.notes[0].typ)
	s.Equal(s.auditor, s.notifier.notes[0].userID, "the submitter gets the verdict, not the reviewer")
}

func (s *ServiceSuite) TestReviewTwiceConflicts() {
	id := s.submitOne()

	_, err := s.svc.Review(context.Background(), id, s.reviewer, ReviewRequest{Decision: submission.StatusApproved})
	s.Require().NoError(err)

	_, err = s.svc.Review(context.Background(), id, s.reviewer, ReviewRequest{Decision: submission.StatusRejected})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestReviewOwnSubmissionForbidden() {
	id := s.submitOne()

	_, err := s.svc.Review(context.Background(), id, s.auditor, ReviewRequest{Decision: submission.StatusApproved})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestReviewDecisionMustBeTerminal() {
	id := s.submitOne()

	_, err := s.svc.Review(context.Background(), id, s.reviewer, ReviewRequest{Decision: submission.StatusInProgress})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
