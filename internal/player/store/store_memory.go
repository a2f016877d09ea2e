package store

import (
	"context"
	"strings"
	"sync"

	"leanquest/internal/achievement"
	"leanquest/internal/player"
	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
)

// InMemoryStore keeps players in memory for tests and development.
type InMemoryStore struct {
	mu      sync.RWMutex
	players map[domain.UserID]*player.Player
	byEmail map[string]domain.UserID
}

// NewInMemoryStore constructs an empty in-memory player store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		players: make(map[domain.UserID]*player.Player),
		byEmail: make(map[string]domain.UserID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(p.Email)
	if _, exists := s.byEmail[email]; exists {
		return sentinel.ErrConflict
	}
	cp := clone(p)
	s.players[p.ID] = cp
	s.byEmail[email] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.UserID) (*player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.players[id]), nil
}

func (s *InMemoryStore) Update(_ context.Context, p *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.players[p.ID] = clone(p)
	return nil
}

// clone deep-copies the aggregate so callers can never mutate stored state.
func clone(p *player.Player) *player.Player {
	cp := *p
	cp.Achievements = append([]achievement.Unlocked(nil), p.Achievements...)
	cp.RecentActivity = append([]player.ActivityEntry(nil), p.RecentActivity...)
	if p.CategoryCompleted != nil {
		cp.CategoryCompleted = make(map[achievement.Category]int, len(p.CategoryCompleted))
		for k, v := range p.CategoryCompleted {
			cp.CategoryCompleted[k] = v
		}
	}
	return &cp
}
