package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "awa.mba@example.ga", Normalize("  Awa.Mba@Example.GA "))
}

func TestIsValid(t *testing.T) {
	for _, addr := range []string{"awa@example.ga", "j.doe+test@clinic.example.com"} {
		assert.True(t, IsValid(addr), addr)
	}
	for _, addr := range []string{"", "awa", "awa@localhost", "Awa <awa@example.ga>", "@example.ga"} {
		assert.False(t, IsValid(addr), addr)
	}
}

func TestDeriveNameFromEmail(t *testing.T) {
	first, last := DeriveNameFromEmail("jean.paul-obiang@example.ga")
	assert.Equal(t, "Jean", first)
	assert.Equal(t, "Obiang", last)

	first, last = DeriveNameFromEmail("awa@example.ga")
	assert.Equal(t, "Awa", first)
	assert.Equal(t, "User", last)
}
