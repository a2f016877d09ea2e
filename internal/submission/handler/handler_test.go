package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"leanquest/internal/level"
	"leanquest/internal/player"
	playersvc "leanquest/internal/player/service"
	playerstore "leanquest/internal/player/store"
	"leanquest/internal/score"
	"leanquest/internal/submission"
	"leanquest/internal/submission/service"
	"leanquest/internal/submission/store"
	"leanquest/pkg/domain"
	dErrors "leanquest/pkg/domain-errors"
	"leanquest/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router   chi.Router
	svc      *service.Service
	auditor  domain.UserID
	reviewer domain.UserID
	tenant   domain.TenantID
	template submission.Template
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ps := playerstore.NewInMemoryStore()
	players, err := playersvc.New(ps, level.DefaultTable,
		playersvc.WithLogger(logger), playersvc.WithCatalog(nil))
	s.Require().NoError(err)

	s.tenant = domain.NewTenantID()
	s.auditor = s.register(players, "auditor@plant.example", player.RoleAuditor)
	s.reviewer = s.register(players, "reviewer@plant.example", player.RoleReviewer)

	s.template = store.SeedTemplates()[0]
	svc, err := service.New(store.NewInMemoryStore(),
		store.NewInMemoryTemplateStore(store.SeedTemplates()), players,
		service.WithLogger(logger))
	s.Require().NoError(err)
	s.svc = svc

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func (s *HandlerSuite) register(players *playersvc.Service, email string, role player.Role) domain.UserID {
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

func (s *HandlerSuite) asAuditor(req *http.Request) *http.Request {
	return testutil.WithAuth(req, s.auditor.String(), s.tenant.String(), string(player.RoleAuditor))
}

func (s *HandlerSuite) asReviewer(req *http.Request) *http.Request {
	return testutil.WithAuth(req, s.reviewer.String(), s.tenant.String(), string(player.RoleReviewer))
}

func (s *HandlerSuite) responses() map[string]score.Response {
	out := make(map[string]score.Response, len(s.template.Items))
	for _, item := range s.template.Items {
		out[item.ID] = score.Response{ItemID: item.ID, Answer: item.Expected}
	}
	return out
}

func (s *HandlerSuite) submit() *service.SubmitResult {
	req := s.asAuditor(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/submissions", service.SubmitRequest{
		TemplateID: s.template.ID,
		Responses:  s.responses(),
	}))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.DecodeData[service.SubmitResult](s.T(), rr)
}

// ============================================================================
// POST /api/submissions
// ============================================================================

func (s *HandlerSuite) TestSubmitReturnsScoredResult() {
	result := s.submit()

	s.Equal(100, result.Submission.Score)
	s.Equal(score.TierGreen, result.Submission.RiskTier)
	s.Equal(100, result.XPAwarded)
	s.Equal(100, result.Player.TotalXP)
}

func (s *HandlerSuite) TestSubmitWithoutIdentity() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/submissions", service.SubmitRequest{
		TemplateID: s.template.ID,
		Responses:  s.responses(),
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}

func (s *HandlerSuite) TestSubmitMalformedBody() {
	req := s.asAuditor(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/submissions", "{not json"))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

// ============================================================================
// GET /api/submissions/{id}
// ============================================================================

func (s *HandlerSuite) TestGetOwnSubmission() {
	created := s.submit()

	req := s.asAuditor(testutil.NewRequest(s.T(), http.MethodGet, "/api/submissions/"+created.Submission.ID.String()))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	got := testutil.DecodeData[submission.Submission](s.T(), rr)
	s.Equal(created.Submission.ID, got.ID)
	s.Equal(submission.StatusSubmitted, got.Status)
}

func (s *HandlerSuite) TestGetUnknownSubmission() {
	req := s.asAuditor(testutil.NewRequest(s.T(), http.MethodGet, "/api/submissions/"+domain.NewSubmissionID().String()))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

// ============================================================================
// POST /api/submissions/{id}/review
// ============================================================================

func (s *HandlerSuite) TestReviewApproves() {
	created := s.submit()
	path := fmt.Sprintf("/api/submissions/%s/review", created.Submission.ID)

	req := s.asReviewer(testutil.NewJSONRequest(s.T(), http.MethodPost, path, service.ReviewRequest{
		Decision: submission.StatusApproved,
	}))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	got := testutil.DecodeData[submission.Submission](s.T(), rr)
	s.Equal(submission.StatusApproved, got.Status)
	s.Equal(s.reviewer, got.ReviewedBy)
}

func (s *HandlerSuite) TestReviewRequiresReviewerRole() {
	created := s.submit()
	path := fmt.Sprintf("/api/submissions/%s/review", created.Submission.ID)

	req := s.asAuditor(testutil.NewJSONRequest(s.T(), http.MethodPost, path, service.ReviewRequest{
		Decision: submission.StatusApproved,
	}))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
}
