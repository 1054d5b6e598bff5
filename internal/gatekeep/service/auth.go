package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
	"github.com/aussiebroadwan/gatekeep/pkg/ratelimit"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/aussiebroadwan/gatekeep/pkg/tokenx"
)

const (
	DefaultTokenTTL          = time.Hour
	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = time.Minute
)

// Rate-limit key prefixes. The full key is "<route>:<caller>".
const (
	RouteRegister = "register"
	RouteLogin    = "login"
)

type RegisterRequest struct {
	Email    string
	Password string
}

type LoginRequest struct {
	Email    string
	Password string
	TOTP     string // empty when the caller sent no code
}

// AuthService registers accounts, authenticates logins and issues session
// tokens. register and login are throttled per caller by Limiter.
type AuthService struct {
	Store   store.Store
	Hasher  *cryptox.Hasher
	Tokens  *tokenx.Codec
	TOTP    *otpx.Engine
	Vault   cryptox.Vault
	Limiter *ratelimit.Limiter

	TokenSecret       []byte
	TokenTTL          time.Duration
	AllowRegistration bool
	MFAIssuer         string

	// RateLimitRequests are admitted per RateLimitWindow for each route and
	// caller.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return DefaultTokenTTL
}

// throttle records one attempt for route by caller.
func (s *AuthService) throttle(ctx context.Context, route, caller string) error {
	if s.Limiter == nil {
		return nil
	}
	if caller == "" {
		caller = "unknown"
	}

	requests, window := s.RateLimitRequests, s.RateLimitWindow
	if requests <= 0 {
		requests = DefaultRateLimitRequests
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}

	res, err := s.Limiter.Check(ctx, route+":"+caller, requests, window)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !res.Allowed {
		slogx.FromContext(ctx).Warn("rate limit exceeded",
			"route", route,
			"caller", caller,
			"retry_after_s", res.ResetAfterSeconds(),
		)
		return &RateLimitedError{RetryAfter: res.ResetAfter}
	}
	return nil
}

// Register creates an account. When registration is closed, only the very
// first account may be created and it becomes an admin.
func (s *AuthService) Register(ctx context.Context, caller string, req RegisterRequest) (domain.PublicUser, error) {
	if err := s.throttle(ctx, RouteRegister, caller); err != nil {
		return domain.PublicUser{}, err
	}

	email := NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return domain.PublicUser{}, err
	}
	if err := validateNewPassword(req.Password); err != nil {
		return domain.PublicUser{}, err
	}

	// Hash outside the transaction; it dominates the request time.
	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return domain.PublicUser{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		count, err := tx.Users().CountUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if !s.AllowRegistration {
			if count > 0 {
				return ErrRegistrationDisabled
			}
			user.IsAdmin = true
		}

		_, err = tx.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return ErrUserExists
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to look up user: %w", err)
		}

		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.PublicUser{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user.Public(), nil
}

// Login checks the password (and TOTP code when MFA is on) and returns a
// signed session token. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, caller string, req LoginRequest) (string, error) {
	if err := s.throttle(ctx, RouteLogin, caller); err != nil {
		return "", err
	}

	email := NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if req.Password == "" {
		return "", payloadError("password is required")
	}

	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.Hasher.VerifyMissing(req.Password)
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if !s.Hasher.Verify(req.Password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if req.TOTP == "" {
			return "", ErrMFARequired
		}
		if user.MFASecret == nil {
			log.Error("mfa enabled without a stored secret", "user_id", user.ID)
			return "", ErrInvalidMFACode
		}
		secret, err := s.Vault.Open(*user.MFASecret)
		if err != nil {
			return "", fmt.Errorf("failed to open mfa secret: %w", err)
		}
		if !s.TOTP.Verify(secret, req.TOTP) {
			log.Info("login rejected: invalid mfa code", "user_id", user.ID)
			return "", ErrInvalidMFACode
		}
	}

	token, err := s.Tokens.Create(tokenx.NewPayload(user.ID, user.Email, s.now(), s.tokenTTL()), s.TokenSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	log.Info("login succeeded", "user_id", user.ID, "mfa", user.MFAEnabled)
	return token, nil
}

// authenticate resolves a bearer token to its user record.
func (s *AuthService) authenticate(ctx context.Context, bearer string) (domain.User, error) {
	if bearer == "" {
		return domain.User{}, ErrNotAuthenticated
	}

	payload, err := s.Tokens.Verify(bearer, s.TokenSecret)
	if err != nil || payload.Sub == "" {
		return domain.User{}, ErrNotAuthenticated
	}

	user, err := s.Store.Users().GetUserByID(ctx, payload.Sub)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNotAuthenticated
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// Identify returns the public view of the token's user.
func (s *AuthService) Identify(ctx context.Context, bearer string) (domain.PublicUser, error) {
	user, err := s.authenticate(ctx, bearer)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}
