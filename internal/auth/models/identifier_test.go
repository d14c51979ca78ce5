package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentifier(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		kind IdentifierKind
		ok   bool
	}{
		{" Awa@Example.GA ", "awa@example.ga", IdentifierEmail, true},
		{"+241 06 12 34 56", "+24106123456", IdentifierPhone, true},
		{"077-12-34-56", "077123456", IdentifierPhone, true},
		{"", "", "", false},
		{"not an identifier", "", "", false},
		{"awa@", "", "", false},
		{"12345", "", "", false},
	}
	for _, tc := range cases {
		got, kind, ok := NormalizeIdentifier(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
		assert.Equal(t, tc.kind, kind, tc.raw)
	}
}
