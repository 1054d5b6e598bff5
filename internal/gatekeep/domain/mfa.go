package domain

// MFAEnrollment is handed back exactly once, when a secret is generated.
type MFAEnrollment struct {
	Secret     string // raw base32 TOTP secret
	OTPAuthURL string // otpauth://totp/... provisioning URI
}
