// Package validate contains the pure input validators for the intake flow.
// Each function is deterministic and side-effect free: it returns the
// cleaned value and whether the raw input was acceptable. Callers re-prompt
// on failure without changing conversation state.
package validate

import (
	"strings"
	"unicode"
)

// Phone digit-count bounds, inclusive.
const (
	MinPhoneDigits = 10
	MaxPhoneDigits = 15
)

// Name trims whitespace and accepts only alphabetic characters and interior
// spaces. Digits, punctuation, and empty input are rejected.
func Name(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", false
	}
	for _, r := range name {
		if r == ' ' {
			continue
		}
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	return name, true
}

// Phone strips every non-digit character and accepts the result only when
// the digit count is within [MinPhoneDigits, MaxPhoneDigits]. Both bounds
// are valid.
func Phone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < MinPhoneDigits || len(digits) > MaxPhoneDigits {
		return "", false
	}
	return digits, true
}

// Answer trims whitespace and accepts any non-empty remainder.
func Answer(raw string) (string, bool) {
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", false
	}
	return answer, true
}
