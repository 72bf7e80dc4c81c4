// Package phone normalizes the loosely formatted numbers calling platforms send.
package phone

import (
	"strings"
)

const DefaultMatchDigits = 10

// Digits drops every non-digit character.
func Digits(number string) string {
	var builder strings.Builder

	builder.Grow(len(number))

	for _, r := range number {
		if r >= '0' && r <= '9' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// LastDigits keeps the trailing n digits of number. Shorter numbers are returned whole.
func LastDigits(number string, n int) string {
	digits := Digits(number)
	if n <= 0 || len(digits) <= n {
		return digits
	}

	return digits[len(digits)-n:]
}

// International prefixes the trailing n digits with countryCode, e.g. "+52".
// It returns "" when number has no digits.
func International(number, countryCode string, n int) string {
	local := LastDigits(number, n)
	if local == "" {
		return ""
	}

	return countryCode + local
}
