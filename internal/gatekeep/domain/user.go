package domain

import "time"

type User struct {
	ID           string
	Email        string // lowercase, unique
	PasswordHash string // pbkdf2$<iterations>$<salt>$<digest>
	IsAdmin      bool
	CreatedAt    time.Time
	MFASecret    *string // vault-sealed TOTP secret, nil until enrolment
	MFAEnabled   bool    // true only once a code has been verified against MFASecret
}

// PublicUser is the view of a User returned to callers. It never carries the
// password hash or the MFA secret.
type PublicUser struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	IsAdmin    bool      `json:"is_admin"`
	MFAEnabled bool      `json:"mfa_enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// Public returns the caller-facing view of u.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		MFAEnabled: u.MFAEnabled,
		CreatedAt:  u.CreatedAt,
	}
}
