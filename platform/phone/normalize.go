// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "IN"

// Normalize canonicalizes a raw phone string for matching and storage.
//
// Rules, in order:
//   - strip every character except digits and a leading "+"
//   - already "+"-prefixed numbers are kept as-is
//   - 10-digit Indian mobile numbers (starting 6-9) get "+91" prefixed
//   - 12-digit numbers starting "91" get "+" prefixed
//   - anything longer than 10 digits gets "+" prefixed
//
// The function is idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return ""
	}

	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}

	switch {
	case len(cleaned) == 10 && cleaned[0] >= '6' && cleaned[0] <= '9':
		return "+91" + cleaned
	case len(cleaned) == 12 && strings.HasPrefix(cleaned, "91"):
		return "+" + cleaned
	case len(cleaned) > 10:
		return "+" + cleaned
	}

	return cleaned
}

// NormalizeE164 formats a phone number to strict E.164 using libphonenumber
// with an Indian default region. If parsing fails or the number is invalid,
// it falls back to the looser Normalize rules so a lead is never dropped
// over formatting.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return Normalize(trimmed)
	}

	if !phonenumbers.IsValidNumber(number) {
		return Normalize(trimmed)
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// LastTenDigits returns the trailing ten digits of a phone string, ignoring
// any non-digit characters. Returns the full digit string when shorter than
// ten. Used as the country-code-insensitive fallback in duplicate detection.
func LastTenDigits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}
