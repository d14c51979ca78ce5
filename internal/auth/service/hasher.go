package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// passwordHasher bounds how many bcrypt operations run at once. Callers wait
// for a slot or give up when ctx ends.
type passwordHasher struct {
	sem  *semaphore.Weighted
	cost int
}

func newPasswordHasher(concurrency int64, cost int) *passwordHasher {
	if concurrency <= 0 {
		concurrency = 1
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &passwordHasher{sem: semaphore.NewWeighted(concurrency), cost: cost}
}

func (h *passwordHasher) hash(ctx context.Context, password string) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)
	return bcrypt.GenerateFromPassword([]byte(password), h.cost)
}

// compare returns nil on match and bcrypt.ErrMismatchedHashAndPassword otherwise.
func (h *passwordHasher) compare(ctx context.Context, hash []byte, password string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}
