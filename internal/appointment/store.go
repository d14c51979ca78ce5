package appointment

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"sante/pkg/platform/sentinel"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListByProfessional(ctx context.Context, professionalID string) ([]*Appointment, error)
}

type InMemoryStore struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]Appointment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{appointments: make(map[uuid.UUID]Appointment)}
}

func (s *InMemoryStore) Create(_ context.Context, a *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.appointments[a.ID] = *a
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (s *InMemoryStore) Update(_ context.Context, a *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.appointments[a.ID] = *a
	return nil
}

// ListByProfessional returns the professional's appointments ordered by start time.
func (s *InMemoryStore) ListByProfessional(_ context.Context, professionalID string) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Appointment
	for _, a := range s.appointments {
		if a.ProfessionalID == professionalID {
			a := a
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(x, y *Appointment) int {
		return x.ScheduledAt.Compare(y.ScheduledAt)
	})
	return out, nil
}
