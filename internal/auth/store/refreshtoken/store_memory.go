package refreshtoken

import (
	"context"
	"sync"
	"time"

	"leanquest/internal/auth/models"
	"leanquest/pkg/platform/sentinel"
)

// InMemoryStore keeps refresh tokens in a map. Used tokens are retained so a
// replay is distinguishable from an unknown token.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshTokenRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]*models.RefreshTokenRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[rec.Token]; exists {
		return sentinel.ErrConflict
	}
	clone := *rec
	s.tokens[rec.Token] = &clone
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, token string, now time.Time) (*models.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.Used {
		return nil, sentinel.ErrAlreadyUsed
	}
	if now.After(rec.ExpiresAt) {
		return nil, sentinel.ErrExpired
	}
	rec.Used = true
	clone := *rec
	return &clone, nil
}

func (s *InMemoryStore) RevokeSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, rec := range s.tokens {
		if rec.SessionID.String() == sessionID {
			delete(s.tokens, token)
		}
	}
	return nil
}
