//go:build integration

package reset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sante/pkg/platform/sentinel"
	"sante/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))
	store := NewRedisStore(rc.Client)

	require.NoError(t, store.Issue(ctx, "jti-1", "user-1", time.Minute))

	ttl, err := rc.Client.TTL(ctx, resetTokenKeyPrefix+"jti-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	userID, err := store.Consume(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = store.Consume(ctx, "jti-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
