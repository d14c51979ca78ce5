// Package reset tracks outstanding password-reset token ids so that each
// reset token can be consumed exactly once.
package reset

import (
	"context"
	"sync"
	"time"

	"sante/pkg/platform/sentinel"
)

type entry struct {
	userID    string
	expiresAt time.Time
}

// InMemoryStore is a process-local reset token registry.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]entry
	now    func() time.Time
}

type MemoryOption func(*InMemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		tokens: make(map[string]entry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue records jti for userID until ttl elapses.
func (s *InMemoryStore) Issue(_ context.Context, jti, userID string, ttl time.Duration) error {
	if err := validate(jti, ttl); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.tokens[jti] = entry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

// Consume removes jti and returns its user. Unknown, used and expired ids all
// yield sentinel.ErrNotFound or sentinel.ErrExpired.
func (s *InMemoryStore) Consume(_ context.Context, jti string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[jti]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	delete(s.tokens, jti)
	if !s.now().Before(e.expiresAt) {
		return "", sentinel.ErrExpired
	}
	return e.userID, nil
}

func (s *InMemoryStore) sweepLocked() {
	now := s.now()
	for jti, e := range s.tokens {
		if !now.Before(e.expiresAt) {
			delete(s.tokens, jti)
		}
	}
}
