package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"sante/internal/auth/models"
	"sante/pkg/platform/sentinel"
)

// InMemoryUserStore indexes users by id and by normalised identifier.
type InMemoryUserStore struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*models.User
	byIdentifier map[string]uuid.UUID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:        make(map[uuid.UUID]*models.User),
		byIdentifier: make(map[string]uuid.UUID),
	}
}

// Create inserts user. An identifier already in use yields sentinel.ErrConflict.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byIdentifier[user.Identifier]; taken {
		return fmt.Errorf("identifier %s: %w", user.Identifier, sentinel.ErrConflict)
	}
	if _, taken := s.users[user.ID]; taken {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrConflict)
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byIdentifier[user.Identifier] = user.ID
	return nil
}

// Update replaces an existing user. The identifier cannot change.
func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Identifier != user.Identifier {
		return fmt.Errorf("identifier is immutable: %w", sentinel.ErrInvalidState)
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		found := *user
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdentifier[identifier]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *s.users[id]
	return &found, nil
}

func (s *InMemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
