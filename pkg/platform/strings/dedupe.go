// Package strings holds small helpers for list-valued settings.
package strings

import (
	"strings"
)

// NormalizeList trims and lowercases each value, drops blanks and keeps the
// first occurrence of every value in order.
//
//	NormalizeList([]string{" Appointment.Scheduled", "", "appointment.scheduled"})
//	// []string{"appointment.scheduled"}
func NormalizeList(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
