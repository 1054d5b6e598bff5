/*
Package authsdk provides a client SDK for the gatekeep credential service,
together with the request, response and error types the server writes.

# SDKClient vs Session

  - SDKClient: registration, login and health checks
  - Session: calls that need a session token (/v1/me and MFA)

	client := authsdk.NewSDKClient("https://auth.example.com")

	user, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-horse-battery",
	})

	session, err := client.Authenticate(ctx, "alice@example.com", "correct-horse-battery", "")
	me, err := session.Me(ctx)

Session tokens are not refreshed. When one expires, calls fail with
ErrNotAuthenticated; call Session.Relogin to obtain a new token.

# MFA

Enrolment is two steps. EnrollMFA returns a secret, an otpauth:// URL and a
PNG QR code of that URL. MFA is enabled only after VerifyMFA accepts a
current code. From then on, login requires the TOTP field:

	enrol, err := session.EnrollMFA(ctx)
	// show enrol.QRCode to the user, read a code from their app
	_, err = session.VerifyMFA(ctx, code)

	_, err = client.Login(ctx, authsdk.LoginRequest{Email: email, Password: pw})
	if errors.Is(err, authsdk.ErrMFARequired) {
		// ask for a code and retry with TOTP set
	}

# Error Handling

Every non-2xx response is returned as *APIError. APIError matches the
predefined errors by code under errors.Is, and carries RetryAfter (seconds)
on rate-limited responses:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeRateLimited {
		time.Sleep(time.Duration(apiErr.RetryAfter) * time.Second)
	}

Request types expose Validate for client-side checks that mirror the
server's rules.
*/
package authsdk
