package models

import (
	"regexp"
	"strings"

	"sante/pkg/email"
)

var (
	phonePattern   = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	phoneSeparator = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// NormalizeIdentifier returns the canonical form of an email or phone number
// and its kind. ok is false when raw is neither.
func NormalizeIdentifier(raw string) (normalized string, kind IdentifierKind, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", false
	}
	if strings.Contains(trimmed, "@") {
		addr := email.Normalize(trimmed)
		if !email.IsValid(addr) {
			return "", "", false
		}
		return addr, IdentifierEmail, true
	}
	phone := phoneSeparator.Replace(trimmed)
	if !phonePattern.MatchString(phone) {
		return "", "", false
	}
	return phone, IdentifierPhone, true
}
