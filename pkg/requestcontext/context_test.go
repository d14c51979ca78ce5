package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrincipalRoundTrip(t *testing.T) {
	perms := []string{"read_own_dmp"}
	ctx := WithPrincipal(context.Background(), "user-1", "patient", perms)

	assert.Equal(t, "user-1", UserID(ctx))
	assert.Equal(t, "patient", Role(ctx))
	assert.Equal(t, []string{"read_own_dmp"}, Permissions(ctx))

	perms[0] = "tampered"
	got := Permissions(ctx)
	got[0] = "also-tampered"
	assert.Equal(t, []string{"read_own_dmp"}, Permissions(ctx))
}

func TestDefaultsWhenUnset(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, UserID(ctx))
	assert.Empty(t, Role(ctx))
	assert.Nil(t, Permissions(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestWithTime(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), fixed)
	assert.Equal(t, fixed, Now(ctx))
}
