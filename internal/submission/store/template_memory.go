package store

import (
	"context"
	"sync"

	"leanquest/internal/submission"
	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
)

// InMemoryTemplateStore holds the audit checklist catalog.
type InMemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[domain.TemplateID]*submission.Template
}

func NewInMemoryTemplateStore(templates []submission.Template) *InMemoryTemplateStore {
	s := &InMemoryTemplateStore{templates: make(map[domain.TemplateID]*submission.Template, len(templates))}
	for i := range templates {
		t := templates[i]
		s.templates[t.ID] = &t
	}
	return s
}

func (s *InMemoryTemplateStore) FindByID(_ context.Context, id domain.TemplateID) (*submission.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (s *InMemoryTemplateStore) List(_ context.Context) ([]submission.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]submission.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, *t)
	}
	return out, nil
}
