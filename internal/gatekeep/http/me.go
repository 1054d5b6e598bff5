package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// MeHandler returns the authenticated account.
type MeHandler struct{}

// ServeHTTP handles GET /v1/me
//
//	@Summary		Current account
//	@Description	Returns the account the bearer token was issued to.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.User			"The authenticated account"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		429	{object}	authsdk.ErrorResponse	"Rate limited"
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Set by AuthnMiddleware
	user, ok := httpx.PrincipalFromContext[domain.PublicUser](r.Context())
	if !ok {
		authsdk.ErrNotAuthenticated.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSDKUser(user))
}
