package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// Error codes carried in the "error" field of every failure response.
const (
	ErrorCodeInvalidPayload       = "invalid_payload"
	ErrorCodeInvalidCredentials   = "invalid_credentials"
	ErrorCodeInvalidMFACode       = "invalid_mfa_code"
	ErrorCodeNotAuthenticated     = "not_authenticated"
	ErrorCodeUserExists           = "user_exists"
	ErrorCodeRegistrationDisabled = "registration_disabled"
	ErrorCodeRateLimited          = "rate_limited"
	ErrorCodeMFARequired          = "mfa_required"
	ErrorCodeMFANotEnrolled       = "mfa_not_enrolled"
	ErrorCodeMFAAlreadyEnabled    = "mfa_already_enabled"
	ErrorCodeServerError          = "server_error"
)

// APIError is the error type shared by the server and the SDK client. The
// server writes it with WriteError; the client parses failure responses back
// into it.
type APIError struct {
	// StatusCode is the HTTP status code for this error.
	StatusCode int `json:"-"`

	// Code is one of the ErrorCode constants.
	Code string `json:"error"`

	// Description is a human-readable description of the error.
	Description string `json:"error_description"`

	// RetryAfter is the Retry-After value in seconds on 429 responses.
	RetryAfter int `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches another *APIError with the same Code, so callers can write
// errors.Is(err, authsdk.ErrMFARequired).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as a JSON response. A positive RetryAfter is sent as
// the Retry-After header.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	if e.Code == ErrorCodeNotAuthenticated {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// WithRetryAfter returns a copy of e carrying seconds.
func (e *APIError) WithRetryAfter(seconds int) *APIError {
	cp := *e
	cp.RetryAfter = seconds
	return &cp
}

var (
	ErrInvalidPayload = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidPayload,
		Description: "the request body is malformed or fails validation",
	}

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid credentials",
	}

	ErrMFARequired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeMFARequired,
		Description: "a TOTP code is required for this account",
	}

	ErrInvalidMFACode = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidMFACode,
		Description: "invalid TOTP code",
	}

	ErrNotAuthenticated = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeNotAuthenticated,
		Description: "the bearer token is missing, invalid or expired",
	}

	ErrRegistrationDisabled = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeRegistrationDisabled,
		Description: "registration is disabled",
	}

	ErrUserExists = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUserExists,
		Description: "an account with this email already exists",
	}

	ErrMFANotEnrolled = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeMFANotEnrolled,
		Description: "MFA enrolment has not been started",
	}

	ErrMFAAlreadyEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeMFAAlreadyEnabled,
		Description: "MFA is already enabled for this account",
	}

	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimited,
		Description: "too many requests, try again later",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewAPIError creates an APIError with a custom description.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies that
// are not in the error format still yield an APIError built from the status.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = secs
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Error
		apiErr.Description = errResp.ErrorDescription
		return apiErr
	}

	apiErr.Code = ErrorCodeServerError
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.Code = ErrorCodeRateLimited
	}
	apiErr.Description = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return apiErr
}
