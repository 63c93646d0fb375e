package utils

import (
	"regexp"
	"strings"
)

var phoneStripper = regexp.MustCompile(`[^\d+]`)

// NormalizePhone strips formatting characters, keeping digits and a leading
// plus. It does not invent a country code.
func NormalizePhone(phone string) string {
	normalized := phoneStripper.ReplaceAllString(strings.TrimSpace(phone), "")
	if strings.HasPrefix(normalized, "+") {
		return "+" + strings.ReplaceAll(normalized[1:], "+", "")
	}
	return strings.ReplaceAll(normalized, "+", "")
}

func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return phone
	}

	// Show last 4 digits
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
