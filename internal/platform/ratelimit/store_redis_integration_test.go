//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sante/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))
	store := NewRedisStore(rc.Client)

	for i := range 2 {
		res, err := store.Allow(ctx, "198.51.100.7", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1-i, res.Remaining)
	}
	res, err := store.Allow(ctx, "198.51.100.7", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.WithinDuration(t, time.Now().Add(time.Minute), res.ResetAt, 5*time.Second)

	ttl, err := rc.Client.TTL(ctx, redisKeyPrefix+"198.51.100.7").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute, "later hits do not extend the window")
}
