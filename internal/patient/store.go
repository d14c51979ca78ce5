package patient

import (
	"context"
	"sync"

	"sante/pkg/platform/sentinel"
)

type Repository interface {
	Create(ctx context.Context, p *Profile) error
	FindByUserID(ctx context.Context, userID string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
}

type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]Profile)}
}

func (s *InMemoryStore) Create(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UserID]; ok {
		return sentinel.ErrConflict
	}
	s.profiles[p.UserID] = *p
	return nil
}

func (s *InMemoryStore) FindByUserID(_ context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) Update(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UserID]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[p.UserID] = *p
	return nil
}
