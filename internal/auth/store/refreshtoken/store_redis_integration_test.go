//go:build integration

package refreshtoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leanquest/internal/auth/models"
	platformredis "leanquest/internal/platform/redis"
	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
	"leanquest/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(&platformredis.Client{Client: s.redis.Client})
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) newRecord(token string, ttl time.Duration) *models.RefreshTokenRecord {
	now := time.Now()
	return &models.RefreshTokenRecord{
		Token:     token,
		UserID:    domain.NewUserID(),
		TenantID:  domain.NewTenantID(),
		SessionID: domain.NewSessionID(),
		Device:    "Chrome 120.0 on Windows 10",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *RedisStoreSuite) TestConsumeReturnsRecordOnce() {
	rec := s.newRecord("ref_once", time.Hour)
	s.Require().NoError(s.store.Create(context.Background(), rec))

	got, err := s.store.Consume(context.Background(), "ref_once", time.Now())
	s.Require().NoError(err)
	s.Equal(rec.UserID, got.UserID)
	s.Equal(rec.SessionID, got.SessionID)
	s.Equal(rec.Device, got.Device)

	_, err = s.store.Consume(context.Background(), "ref_once", time.Now())
	s.ErrorIs(err, sentinel.ErrAlreadyUsed, "second presentation is a replay")
}

func (s *RedisStoreSuite) TestConsumeUnknownToken() {
	_, err := s.store.Consume(context.Background(), "ref_missing", time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestConsumeConcurrentlyAdmitsExactlyOne() {
	rec := s.newRecord("ref_race", time.Hour)
	s.Require().NoError(s.store.Create(context.Background(), rec))

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := s.store.Consume(context.Background(), "ref_race", time.Now())
			errs <- err
		}()
	}

	var ok, replayed int
	for i := 0; i < attempts; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		default:
			s.ErrorIs(err, sentinel.ErrAlreadyUsed)
			replayed++
		}
	}
	s.Equal(1, ok, "the consume script must admit exactly one caller")
	s.Equal(attempts-1, replayed)
}

func (s *RedisStoreSuite) TestCreateRejectsPastExpiry() {
	rec := s.newRecord("ref_stale", -time.Minute)
	s.ErrorIs(s.store.Create(context.Background(), rec), sentinel.ErrExpired)
}

func (s *RedisStoreSuite) TestCreateRejectsDuplicateToken() {
	s.Require().NoError(s.store.Create(context.Background(), s.newRecord("ref_dup", time.Hour)))
	s.ErrorIs(s.store.Create(context.Background(), s.newRecord("ref_dup", time.Hour)), sentinel.ErrConflict)
}

func (s *RedisStoreSuite) TestRevokeSessionDeletesAllSessionTokens() {
	rec := s.newRecord("ref_a", time.Hour)
	sibling := s.newRecord("ref_b", time.Hour)
	sibling.SessionID = rec.SessionID
	other := s.newRecord("ref_other", time.Hour)

	for _, r := range []*models.RefreshTokenRecord{rec, sibling, other} {
		s.Require().NoError(s.store.Create(context.Background(), r))
	}

	s.Require().NoError(s.store.RevokeSession(context.Background(), rec.SessionID.String()))

	_, err := s.store.Consume(context.Background(), "ref_a", time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Consume(context.Background(), "ref_b", time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Consume(context.Background(), "ref_other", time.Now())
	s.NoError(err, "other sessions are untouched")
}
