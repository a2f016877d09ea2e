package store

import (
	"context"
	"sort"
	"sync"

	"leanquest/internal/score"
	"leanquest/internal/submission"
	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
)

// InMemoryStore keeps submissions in a map.
type InMemoryStore struct {
	mu   sync.RWMutex
	subs map[domain.SubmissionID]*submission.Submission
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subs: make(map[domain.SubmissionID]*submission.Submission)}
}

func (s *InMemoryStore) Create(_ context.Context, sub *submission.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[sub.ID]; exists {
		return sentinel.ErrConflict
	}
	s.subs[sub.ID] = clone(sub)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.SubmissionID) (*submission.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(sub), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID domain.UserID) ([]submission.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []submission.Submission
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, *clone(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, sub *submission.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.subs[sub.ID] = clone(sub)
	return nil
}

// clone deep-copies the owned responses map so callers cannot mutate stored
// state through a returned pointer.
func clone(sub *submission.Submission) *submission.Submission {
	c := *sub
	if sub.Responses != nil {
		c.Responses = make(map[string]score.Response, len(sub.Responses))
		for k, v := range sub.Responses {
			c.Responses[k] = v
		}
	}
	return &c
}
