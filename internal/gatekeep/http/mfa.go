package http

import (
	"encoding/base64"
	"net/http"

	"github.com/skip2/go-qrcode"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

const qrCodeSize = 256 // pixels

// MFAHandler handles TOTP enrolment and verification.
type MFAHandler struct {
	AuthService *service.AuthService
}

// HandleEnroll handles POST /v1/auth/mfa/enroll
//
//	@Summary		Start TOTP enrolment
//	@Description	Generates a new TOTP secret for the authenticated account and returns it with an otpauth:// URL and a QR code.
//	@Description	MFA is not enabled until the code is confirmed with /v1/auth/mfa/verify. Enrolling again replaces a pending secret.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MFAEnrollResponse	"TOTP secret, provisioning URL and QR code"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Missing, invalid or expired token"
//	@Failure		409	{object}	authsdk.ErrorResponse		"MFA already enabled"
//	@Failure		429	{object}	authsdk.ErrorResponse		"Rate limited"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/auth/mfa/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	enrollment, err := h.AuthService.EnrollMFA(ctx, httpx.BearerToken(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	qr, err := qrDataURI(enrollment.OTPAuthURL)
	if err != nil {
		// The secret and URL are still usable without the image.
		slogx.FromContext(ctx).Warn("failed to render QR code", "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAEnrollResponse{
		Secret:     enrollment.Secret,
		OTPAuthURL: enrollment.OTPAuthURL,
		QRCode:     qr,
	})
}

// HandleVerify handles POST /v1/auth/mfa/verify
//
//	@Summary		Confirm TOTP enrolment
//	@Description	Checks a current code against the pending secret and enables MFA. Later logins must include a TOTP code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFAVerifyRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.MFAVerifyResponse	"MFA enabled"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Invalid request or MFA not enrolled"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid token or invalid TOTP code"
//	@Failure		409		{object}	authsdk.ErrorResponse		"MFA already enabled"
//	@Failure		429		{object}	authsdk.ErrorResponse		"Rate limited"
//	@Failure		500		{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/auth/mfa/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.MFAVerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		slogx.FromContext(ctx).Warn("failed to parse request", "err", err)
		invalidPayload(w, err.Error())
		return
	}

	if err := h.AuthService.VerifyMFA(ctx, httpx.BearerToken(r), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAVerifyResponse{OK: true, MFAEnabled: true})
}

// qrDataURI renders content as a PNG QR code in a data URI.
func qrDataURI(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
