package authsdk

import "time"

// ErrorResponse is the body of every failure response.
type ErrorResponse struct {
	// Error is one of the ErrorCode constants.
	Error string `json:"error" example:"invalid_credentials"`

	// ErrorDescription is human readable and not meant for matching.
	ErrorDescription string `json:"error_description" example:"invalid credentials"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct-horse-battery"`
}

// LoginRequest exchanges credentials for a session token. TOTP is required
// only once the account has MFA enabled.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct-horse-battery"`
	TOTP     string `json:"totp,omitempty" example:"123456"`
}

// LoginResponse carries the signed session token.
type LoginResponse struct {
	Token string `json:"token" example:"v1.eyJlbWFpbCI6ImFsaWNlQGV4YW1wbGUuY29tIn0.c2ln"`
}

// User is the public view of an account.
type User struct {
	ID         string    `json:"id" example:"01HZX3Y5M4Q8W6E2R7T9A1B3C5"`
	Email      string    `json:"email" example:"alice@example.com"`
	IsAdmin    bool      `json:"is_admin"`
	MFAEnabled bool      `json:"mfa_enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// MFAEnrollResponse is returned once per enrolment. The secret is not
// retrievable afterwards.
type MFAEnrollResponse struct {
	Secret     string `json:"secret" example:"JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"`
	OTPAuthURL string `json:"otpauth_url" example:"otpauth://totp/Gatekeep:alice@example.com?issuer=Gatekeep&secret=JBSWY3DPEHPK3PXP"`

	// QRCode is a data:image/png;base64 URI encoding OTPAuthURL.
	QRCode string `json:"qr_code"`
}

// MFAVerifyRequest confirms enrolment with a current code.
type MFAVerifyRequest struct {
	Code string `json:"code" example:"123456"`
}

type MFAVerifyResponse struct {
	OK         bool `json:"ok"`
	MFAEnabled bool `json:"mfa_enabled"`
}

// HealthResponse is returned by /health, /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Version string        `json:"version" example:"0.1.0"`
	Time    time.Time     `json:"time"`
	Uptime  string        `json:"uptime,omitempty" example:"1h2m3s"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or "error: <reason>".
type HealthChecks struct {
	Database    string `json:"database" example:"ok"`
	RateLimiter string `json:"rate_limiter,omitempty" example:"ok"`
}
