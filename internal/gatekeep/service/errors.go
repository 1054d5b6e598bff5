package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrInvalidMFACode       = errors.New("invalid_mfa_code")
	ErrNotAuthenticated     = errors.New("not_authenticated")
	ErrUserExists           = errors.New("user_exists")
	ErrRegistrationDisabled = errors.New("registration_disabled")
	ErrRateLimited          = errors.New("rate_limited")
	ErrMFARequired          = errors.New("mfa_required")
	ErrMFANotEnrolled       = errors.New("mfa_not_enrolled")
	ErrMFAAlreadyEnabled    = errors.New("mfa_already_enabled")
)

// RateLimitedError carries how long the caller must wait. It matches
// ErrRateLimited under errors.Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// payloadError wraps ErrInvalidPayload with the offending field.
func payloadError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, msg)
}
