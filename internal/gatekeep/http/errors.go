package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// writeServiceError maps a service error onto its wire form. Unrecognised
// errors are logged and reported as a bare server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *service.RateLimitedError

	switch {
	case errors.As(err, &rl):
		authsdk.ErrRateLimited.WithRetryAfter(retryAfterSeconds(rl.RetryAfter)).WriteError(w)
	case errors.Is(err, service.ErrInvalidPayload):
		invalidPayload(w, strings.TrimPrefix(err.Error(), service.ErrInvalidPayload.Error()+": "))
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrMFARequired):
		authsdk.ErrMFARequired.WriteError(w)
	case errors.Is(err, service.ErrInvalidMFACode):
		authsdk.ErrInvalidMFACode.WriteError(w)
	case errors.Is(err, service.ErrNotAuthenticated):
		authsdk.ErrNotAuthenticated.WriteError(w)
	case errors.Is(err, service.ErrUserExists):
		authsdk.ErrUserExists.WriteError(w)
	case errors.Is(err, service.ErrRegistrationDisabled):
		authsdk.ErrRegistrationDisabled.WriteError(w)
	case errors.Is(err, service.ErrMFANotEnrolled):
		authsdk.ErrMFANotEnrolled.WriteError(w)
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		authsdk.ErrMFAAlreadyEnabled.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

func invalidPayload(w http.ResponseWriter, desc string) {
	authsdk.NewAPIError(http.StatusBadRequest, authsdk.ErrorCodeInvalidPayload, desc).WriteError(w)
}

// retryAfterSeconds rounds d up to whole seconds, never below one.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}
