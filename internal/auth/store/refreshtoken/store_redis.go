package refreshtoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leanquest/internal/auth/models"
	platformredis "leanquest/internal/platform/redis"
	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
)

const keyPrefix = "rt:"

// consumeScript atomically checks the used flag and sets it, so two
// concurrent presentations of the same token cannot both succeed. Returns the
// record JSON as stored before marking, or "USED" on replay.
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return false
end
local rec = cjson.decode(v)
if rec.used then
  return 'USED'
end
rec.used = true
redis.call('SET', KEYS[1], cjson.encode(rec), 'KEEPTTL')
return v
`)

type storedToken struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
	Device    string `json:"device"`
	Used      bool   `json:"used"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// RedisStore persists refresh tokens in Redis with a TTL matching their
// expiry, so stale tokens age out without a sweeper.
type RedisStore struct {
	client *platformredis.Client
}

func NewRedisStore(client *platformredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, rec *models.RefreshTokenRecord) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return sentinel.ErrExpired
	}

	payload, err := json.Marshal(storedToken{
		Token:     rec.Token,
		UserID:    rec.UserID.String(),
		TenantID:  rec.TenantID.String(),
		SessionID: rec.SessionID.String(),
		Device:    rec.Device,
		Used:      rec.Used,
		CreatedAt: rec.CreatedAt.Unix(),
		ExpiresAt: rec.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+rec.Token, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, token string, now time.Time) (*models.RefreshTokenRecord, error) {
	raw, err := consumeScript.Run(ctx, s.client, []string{keyPrefix + token}).Text()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if raw == "USED" {
		return nil, sentinel.ErrAlreadyUsed
	}

	var st storedToken
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("unmarshal refresh token: %w", err)
	}
	rec, err := st.toRecord()
	if err != nil {
		return nil, err
	}
	if now.After(rec.ExpiresAt) {
		return nil, sentinel.ErrExpired
	}
	return rec, nil
}

func (s *RedisStore) RevokeSession(ctx context.Context, sessionID string) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("scan session tokens: %w", err)
		}
		var st storedToken
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			continue
		}
		if st.SessionID == sessionID {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("revoke session token: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan session tokens: %w", err)
	}
	return nil
}

func (st storedToken) toRecord() (*models.RefreshTokenRecord, error) {
	rec := &models.RefreshTokenRecord{
		Token:     st.Token,
		Device:    st.Device,
		Used:      st.Used,
		CreatedAt: time.Unix(st.CreatedAt, 0),
		ExpiresAt: time.Unix(st.ExpiresAt, 0),
	}
	var err error
	if rec.UserID, err = domain.ParseUserID(st.UserID); err != nil {
		return nil, err
	}
	if rec.TenantID, err = domain.ParseTenantID(st.TenantID); err != nil {
		return nil, err
	}
	if rec.SessionID, err = domain.ParseSessionID(st.SessionID); err != nil {
		return nil, err
	}
	return rec, nil
}
