package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register an account
//	@Description	Creates an account. When registration is closed only the first account can be created, and it becomes an admin.
//	@Description	Attempts are rate limited per client IP.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Email and password (min 8 characters)"
//	@Success		201		{object}	authsdk.User			"The new account"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request body"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Registration is disabled"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already registered"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited, see Retry-After"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		slogx.FromContext(ctx).Warn("failed to parse request", "err", err)
		invalidPayload(w, err.Error())
		return
	}
	if errs := req.Validate(); errs != nil {
		invalidPayload(w, authsdk.ValidationMessage(errs))
		return
	}

	user, err := h.AuthService.Register(ctx, httpx.IPKeyExtractor(r), service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toSDKUser(user))
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in
//	@Description	Exchanges email and password for a session token. Accounts with MFA enabled must also send a current TOTP code.
//	@Description	Unknown email and wrong password produce the same response. Attempts are rate limited per client IP.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Session token"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials, MFA required or invalid TOTP code"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited, see Retry-After"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		slogx.FromContext(ctx).Warn("failed to parse request", "err", err)
		invalidPayload(w, err.Error())
		return
	}
	if errs := req.Validate(); errs != nil {
		invalidPayload(w, authsdk.ValidationMessage(errs))
		return
	}

	token, err := h.AuthService.Login(ctx, httpx.IPKeyExtractor(r), service.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		TOTP:     req.TOTP,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{Token: token})
}

func toSDKUser(u domain.PublicUser) authsdk.User {
	return authsdk.User{
		ID:         u.ID,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		MFAEnabled: u.MFAEnabled,
		CreatedAt:  u.CreatedAt,
	}
}
