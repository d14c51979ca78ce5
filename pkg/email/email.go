// Package email holds helpers for email-shaped login identifiers.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

// Normalize trims and lower-cases an address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValid reports whether address is a bare RFC 5322 address with a dotted
// domain. Display names ("Awa <awa@x.ga>") are rejected.
func IsValid(address string) bool {
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return false
	}
	at := strings.LastIndexByte(address, '@')
	return at > 0 && strings.Contains(address[at+1:], ".")
}

// DeriveNameFromEmail guesses a first and last name from the local part, for
// accounts registered without a profile name.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
