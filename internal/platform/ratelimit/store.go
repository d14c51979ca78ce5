// Package ratelimit throttles unauthenticated endpoints per client address.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	return max(secs, 1)
}

// Store counts requests per key within a window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// MemoryStore is a sliding-window store for a single process. Keys whose
// window has emptied are swept at most once per window.
type MemoryStore struct {
	mu        sync.Mutex
	windows   map[string][]time.Time
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time), now: time.Now}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)
	if now.Sub(s.lastSweep) >= window {
		s.sweep(cutoff)
		s.lastSweep = now
	}
	stamps := live(s.windows[key], cutoff)
	if limit <= 0 {
		return Result{Allowed: false, Limit: limit, ResetAt: now.Add(window)}, nil
	}
	if len(stamps) >= limit {
		s.windows[key] = stamps
		return Result{Allowed: false, Limit: limit, ResetAt: stamps[0].Add(window)}, nil
	}
	stamps = append(stamps, now)
	s.windows[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(stamps),
		ResetAt:   stamps[0].Add(window),
	}, nil
}

func (s *MemoryStore) sweep(cutoff time.Time) {
	for key, stamps := range s.windows {
		if stamps = live(stamps, cutoff); len(stamps) == 0 {
			delete(s.windows, key)
		} else {
			s.windows[key] = stamps
		}
	}
}

// live drops the timestamps at or before cutoff; stamps is ascending.
func live(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

const redisKeyPrefix = "ratelimit:"

// RedisStore is a fixed-window store shared by every instance.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	k := redisKeyPrefix + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, window)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	count := int(incr.Val())
	reset := time.Now().Add(ttl.Val())
	if count > limit {
		return Result{Allowed: false, Limit: limit, ResetAt: reset}, nil
	}
	return Result{Allowed: true, Limit: limit, Remaining: limit - count, ResetAt: reset}, nil
}
