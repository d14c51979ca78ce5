package patient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sante/pkg/domain-errors"
)

func TestContactUpdateValidate(t *testing.T) {
	str := func(v string) *string { return &v }
	tests := []struct {
		name  string
		email *string
		valid bool
	}{
		{"unchanged", nil, true},
		{"cleared", str(""), true},
		{"padded and mixed case", str(" Nadia@Example.com "), true},
		{"display name", str("Nadia <nadia@example.com>"), false},
		{"no domain dot", str("nadia@localhost"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ContactUpdate{Email: tt.email}.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestApplyStoresNormalisedEmail(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := &Profile{UserID: "u-1"}
	u := ContactUpdate{Email: new(string)}
	*u.Email = " Nadia@Example.com "
	require.NoError(t, u.Validate())

	assert.Equal(t, []string{"email"}, p.Apply(u, now))
	assert.Equal(t, "nadia@example.com", p.Email)
	assert.Equal(t, now, p.UpdatedAt)
}
