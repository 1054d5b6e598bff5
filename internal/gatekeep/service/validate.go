package service

import "strings"

const (
	minEmailLength    = 3
	minPasswordLength = 8
)

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if len(email) < minEmailLength {
		return payloadError("email is too short")
	}
	if !strings.Contains(email, "@") {
		return payloadError("email must contain @")
	}
	return nil
}

func validateNewPassword(password string) error {
	if len(password) < minPasswordLength {
		return payloadError("password must be at least 8 characters")
	}
	return nil
}
