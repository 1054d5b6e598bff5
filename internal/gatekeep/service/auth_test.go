package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/tokenx"
)

func TestAuthService_FullFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Register(ctx, "10.0.0.1", RegisterRequest{Email: "alice@x.io", Password: "longpassword1"})
	require.NoError(t, err)
	require.Equal(t, "alice@x.io", user.Email)
	require.False(t, user.IsAdmin)
	require.False(t, user.MFAEnabled)
	require.NotEmpty(t, user.ID)

	token, err := f.svc.Login(ctx, "10.0.0.1", LoginRequest{Email: "alice@x.io", Password: "longpassword1"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, "v1."))

	me, err := f.svc.Identify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user, me)

	enrollment, err := f.svc.EnrollMFA(ctx, token)
	require.NoError(t, err)
	require.Len(t, enrollment.Secret, 32)
	require.True(t, strings.HasPrefix(enrollment.OTPAuthURL, "otpauth://totp/"))

	// Enrolment alone does not enable MFA.
	_, err = f.svc.Login(ctx, "10.0.0.1", LoginRequest{Email: "alice@x.io", Password: "longpassword1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyMFA(ctx, token, f.currentCode(enrollment.Secret)))

	me, err = f.svc.Identify(ctx, token)
	require.NoError(t, err)
	require.True(t, me.MFAEnabled)

	_, err = f.svc.Login(ctx, "10.0.0.1", LoginRequest{Email: "alice@x.io", Password: "longpassword1"})
	require.ErrorIs(t, err, ErrMFARequired)

	_, err = f.svc.Login(ctx, "10.0.0.1", LoginRequest{
		Email:    "alice@x.io",
		Password: "longpassword1",
		TOTP:     f.wrongCode(enrollment.Secret),
	})
	require.ErrorIs(t, err, ErrInvalidMFACode)

	token, err = f.svc.Login(ctx, "10.0.0.1", LoginRequest{
		Email:    "alice@x.io",
		Password: "longpassword1",
		TOTP:     f.currentCode(enrollment.Secret),
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestAuthService_TokenPayload(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob@example.com", "password-123")
	token := f.login(t, "bob@example.com", "password-123")

	payload, err := f.svc.Tokens.Verify(token, f.svc.TokenSecret)
	require.NoError(t, err)

	stored, err := f.store.Users().GetUserByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)

	require.Equal(t, stored.ID, payload.Sub)
	require.Equal(t, "bob@example.com", payload.Email)
	require.Equal(t, f.clock.Now().Unix(), payload.Iat.Unix())
	require.Equal(t, f.clock.Now().Add(time.Hour).Unix(), payload.Exp.Unix())
}

func TestAuthService_RegisterNormalisesEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Register(ctx, "c", RegisterRequest{Email: "  Alice@Example.COM ", Password: "password-123"})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)

	_, err = f.svc.Register(ctx, "c", RegisterRequest{Email: "ALICE@example.com", Password: "password-456"})
	require.ErrorIs(t, err, ErrUserExists)

	token, err := f.svc.Login(ctx, "c", LoginRequest{Email: "aLiCe@example.com", Password: "password-123"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"missing at sign", "alice.example.com", "password-123"},
		{"email too short", "@a", "password-123"},
		{"empty email", "", "password-123"},
		{"whitespace email", "   ", "password-123"},
		{"short password", "alice@example.com", "short"},
		{"seven character password", "alice@example.com", "1234567"},
		{"empty password", "alice@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Register(context.Background(), "c", RegisterRequest{Email: tt.email, Password: tt.password})
			require.ErrorIs(t, err, ErrInvalidPayload)

			count, err := f.store.Users().CountUsers(context.Background())
			require.NoError(t, err)
			require.Zero(t, count)
		})
	}
}

func TestAuthService_RegistrationClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.AllowRegistration = false

	first, err := f.svc.Register(ctx, "c", RegisterRequest{Email: "root@example.com", Password: "password-123"})
	require.NoError(t, err)
	require.True(t, first.IsAdmin, "first account on a closed instance becomes admin")

	_, err = f.svc.Register(ctx, "c", RegisterRequest{Email: "second@example.com", Password: "password-123"})
	require.ErrorIs(t, err, ErrRegistrationDisabled)

	// Closed registration is reported before the duplicate check.
	_, err = f.svc.Register(ctx, "c", RegisterRequest{Email: "root@example.com", Password: "password-123"})
	require.ErrorIs(t, err, ErrRegistrationDisabled)

	count, err := f.store.Users().CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestAuthService_OpenRegistrationNeverGrantsAdmin(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Register(context.Background(), "c", RegisterRequest{Email: "first@example.com", Password: "password-123"})
	require.NoError(t, err)
	require.False(t, user.IsAdmin)
}

func TestAuthService_LoginFailures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "carol@example.com", "password-123")

	tests := []struct {
		name    string
		req     LoginRequest
		wantErr error
	}{
		{"wrong password", LoginRequest{Email: "carol@example.com", Password: "password-124"}, ErrInvalidCredentials},
		{"unknown email", LoginRequest{Email: "nobody@example.com", Password: "password-123"}, ErrInvalidCredentials},
		{"empty password", LoginRequest{Email: "carol@example.com", Password: ""}, ErrInvalidPayload},
		{"invalid email", LoginRequest{Email: "carol", Password: "password-123"}, ErrInvalidPayload},
		{"totp ignored without mfa", LoginRequest{Email: "carol@example.com", Password: "nope-nope", TOTP: "123456"}, ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := f.svc.Login(context.Background(), "c", tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			require.Empty(t, token)
		})
	}
}

func TestAuthService_LoginAcceptsAnyTOTPWithoutMFA(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dave@example.com", "password-123")

	token, err := f.svc.Login(context.Background(), "c", LoginRequest{
		Email:    "dave@example.com",
		Password: "password-123",
		TOTP:     "not-a-code",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestAuthService_RateLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.RateLimitRequests = 2
	f.svc.RateLimitWindow = time.Minute

	f.register(t, "erin@example.com", "password-123")

	req := LoginRequest{Email: "erin@example.com", Password: "wrong-password"}
	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, "10.0.0.9", req)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	f.clock.Advance(10 * time.Second)

	// The limit applies before credentials are checked.
	_, err := f.svc.Login(ctx, "10.0.0.9", LoginRequest{Email: "erin@example.com", Password: "password-123"})
	require.ErrorIs(t, err, ErrRateLimited)

	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
	require.Equal(t, 50*time.Second, rl.RetryAfter)

	// Other callers and other routes keep their own budgets.
	_, err = f.svc.Login(ctx, "10.0.0.10", LoginRequest{Email: "erin@example.com", Password: "password-123"})
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "10.0.0.9", RegisterRequest{Email: "frank@example.com", Password: "password-123"})
	require.NoError(t, err)

	f.clock.Advance(51 * time.Second)
	_, err = f.svc.Login(ctx, "10.0.0.9", LoginRequest{Email: "erin@example.com", Password: "password-123"})
	require.NoError(t, err)
}

func TestAuthService_RateLimitRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.RateLimitRequests = 1

	f.register(t, "gina@example.com", "password-123")

	_, err := f.svc.Register(ctx, "10.0.0.1", RegisterRequest{Email: "hank@example.com", Password: "password-123"})
	require.ErrorIs(t, err, ErrRateLimited)

	_, err = f.store.Users().GetUserByEmail(ctx, "hank@example.com")
	require.Error(t, err)
}

func TestAuthService_Identify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "ivy@example.com", "password-123")
	token := f.login(t, "ivy@example.com", "password-123")

	t.Run("valid", func(t *testing.T) {
		me, err := f.svc.Identify(ctx, token)
		require.NoError(t, err)
		require.Equal(t, "ivy@example.com", me.Email)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := f.svc.Identify(ctx, "")
		require.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.svc.Identify(ctx, "v1.garbage.token")
		require.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("signed with another secret", func(t *testing.T) {
		other, err := f.svc.Tokens.Create(tokenx.NewPayload("someone", "x@y.z", f.clock.Now(), time.Hour), []byte("other"))
		require.NoError(t, err)
		_, err = f.svc.Identify(ctx, other)
		require.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("unknown subject", func(t *testing.T) {
		ghost, err := f.svc.Tokens.Create(tokenx.NewPayload("01HZZZZZZZZZZZZZZZZZZZZZZZ", "ghost@example.com", f.clock.Now(), time.Hour), f.svc.TokenSecret)
		require.NoError(t, err)
		_, err = f.svc.Identify(ctx, ghost)
		require.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("empty subject", func(t *testing.T) {
		anon, err := f.svc.Tokens.Create(tokenx.NewPayload("", "anon@example.com", f.clock.Now(), time.Hour), f.svc.TokenSecret)
		require.NoError(t, err)
		_, err = f.svc.Identify(ctx, anon)
		require.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestAuthService_IdentifyExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "jack@example.com", "password-123")
	token := f.login(t, "jack@example.com", "password-123")

	f.clock.Advance(time.Hour)
	_, err := f.svc.Identify(ctx, token)
	require.NoError(t, err, "token is valid up to and including exp")

	f.clock.Advance(time.Second)
	_, err = f.svc.Identify(ctx, token)
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "a@b.c", NormalizeEmail(" A@B.C\t"))
	require.Equal(t, "", NormalizeEmail("   "))
}

type countingProvider struct {
	cryptox.Provider
	mu     sync.Mutex
	pbkdf2 int
}

func (p *countingProvider) PBKDF2(password, salt []byte, iterations, keyLen int) []byte {
	p.mu.Lock()
	p.pbkdf2++
	p.mu.Unlock()
	return p.Provider.PBKDF2(password, salt, iterations, keyLen)
}

func (p *countingProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pbkdf2
}

func TestAuthService_LoginUnknownEmailHashes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := &countingProvider{Provider: cryptox.DefaultProvider}
	f.svc.Hasher = &cryptox.Hasher{Provider: p, Iterations: 1_000}
	f.register(t, "lena@example.com", "password-123")

	attempt := func(email string) int {
		before := p.calls()
		_, err := f.svc.Login(ctx, "10.0.0.1", LoginRequest{Email: email, Password: "wrong-password"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
		return p.calls() - before
	}

	attempt("ghost@example.com") // builds the decoy hash

	require.Equal(t, 1, attempt("lena@example.com"))
	require.Equal(t, 1, attempt("ghost@example.com"), "an unknown email costs one key derivation like a wrong password")
}
