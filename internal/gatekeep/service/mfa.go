package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// DefaultMFAIssuer labels the account in authenticator apps.
const DefaultMFAIssuer = "Gatekeep"

func (s *AuthService) issuer() string {
	if s.MFAIssuer != "" {
		return s.MFAIssuer
	}
	return DefaultMFAIssuer
}

// EnrollMFA generates a fresh TOTP secret for the caller and stores it sealed.
// MFA stays disabled until VerifyMFA confirms a code. Enrolling again before
// that replaces the pending secret.
func (s *AuthService) EnrollMFA(ctx context.Context, bearer string) (domain.MFAEnrollment, error) {
	user, err := s.authenticate(ctx, bearer)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}
	if user.MFAEnabled {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	secret, err := s.TOTP.GenerateSecret()
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	url, err := s.TOTP.ProvisioningURI(secret, s.issuer(), user.Email)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	sealed, err := s.Vault.Seal(secret)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("failed to seal mfa secret: %w", err)
	}

	if err := s.Store.Users().UpdateMFASecret(ctx, user.ID, sealed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MFAEnrollment{}, ErrNotAuthenticated
		}
		return domain.MFAEnrollment{}, fmt.Errorf("failed to store mfa secret: %w", err)
	}

	slogx.FromContext(ctx).Info("mfa enrolment started", "user_id", user.ID)
	return domain.MFAEnrollment{Secret: secret, OTPAuthURL: url}, nil
}

// VerifyMFA confirms the pending secret with a current code and enables MFA.
func (s *AuthService) VerifyMFA(ctx context.Context, bearer, code string) error {
	user, err := s.authenticate(ctx, bearer)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if user.MFASecret == nil || *user.MFASecret == "" {
		return ErrMFANotEnrolled
	}

	secret, err := s.Vault.Open(*user.MFASecret)
	if err != nil {
		return fmt.Errorf("failed to open mfa secret: %w", err)
	}
	if !s.TOTP.Verify(secret, code) {
		return ErrInvalidMFACode
	}

	if err := s.Store.Users().EnableMFA(ctx, user.ID, *user.MFASecret); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Re-enrolled since the secret was read; the code was for the old one.
			slogx.FromContext(ctx).Info("mfa secret replaced during verification", "user_id", user.ID)
			return ErrInvalidMFACode
		}
		return fmt.Errorf("failed to enable mfa: %w", err)
	}

	slogx.FromContext(ctx).Info("mfa enabled", "user_id", user.ID)
	return nil
}
