package validation

import "strings"

const MinPasswordLength = 8

const specialChars = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// HasSpecialChar reports whether the password contains at least one special
// character.
func HasSpecialChar(password string) bool {
	return strings.ContainsAny(password, specialChars)
}

// ValidPassword applies the password policy: minimum length plus at least
// one special character.
func ValidPassword(password string) bool {
	return len(password) >= MinPasswordLength && HasSpecialChar(password)
}
