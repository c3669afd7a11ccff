package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal
// whitespace runs. It is used for trip name normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail lowercases and trims an email address. It returns "" when the
// result is not plausibly an address (must contain "@").
func NormalizeEmail(s string) string {
	e := strings.ToLower(strings.TrimSpace(s))
	if !strings.Contains(e, "@") {
		return ""
	}
	return e
}

// NormalizeIATACode uppercases, trims, and truncates a location code to the
// 3-character IATA form. It returns "" for blank input.
func NormalizeIATACode(s string) string {
	c := strings.ToUpper(strings.TrimSpace(s))
	if r := []rune(c); len(r) > 3 {
		c = string(r[:3])
	}
	return c
}
