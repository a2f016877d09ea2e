package notification

import (
	"context"
	"sort"
	"sync"

	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications per user.
type InMemoryStore struct {
	mu     sync.RWMutex
	byUser map[domain.UserID][]*Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byUser: make(map[domain.UserID][]*Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *n
	s.byUser[n.UserID] = append(s.byUser[n.UserID], &clone)
	return nil
}

// ListByUser returns a user's notifications, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID domain.UserID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.byUser[userID]
	out := make([]Notification, 0, len(items))
	for _, n := range items {
		out = append(out, *n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, userID domain.UserID, id domain.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		n.Read = true
	}
	return nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byUser[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
