package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
	"github.com/aussiebroadwan/gatekeep/pkg/ratelimit"
	"github.com/aussiebroadwan/gatekeep/pkg/tokenx"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc    *AuthService
	store  *sqlite.Store
	limits *ratelimit.MemoryStore
	clock  *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "gatekeep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}

	limits := ratelimit.NewMemoryStore()
	limiter, err := ratelimit.NewLimiter(limits)
	require.NoError(t, err)

	vault, err := cryptox.NewVault(cryptox.VaultModeXOR, "server-mfa-key", nil)
	require.NoError(t, err)

	return &fixture{
		svc: &AuthService{
			Store:             st,
			Hasher:            &cryptox.Hasher{Provider: cryptox.DefaultProvider, Iterations: 1_000},
			Tokens:            tokenx.NewCodec(nil).WithClock(clock.Now),
			TOTP:              otpx.NewEngine(nil).WithClock(clock.Now),
			Vault:             vault,
			Limiter:           limiter.WithClock(clock.Now),
			TokenSecret:       []byte("test-token-secret"),
			TokenTTL:          time.Hour,
			AllowRegistration: true,
			MFAIssuer:         "Gatekeep Test",
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			Now:               clock.Now,
		},
		store:  st,
		limits: limits,
		clock:  clock,
	}
}

// currentCode returns the valid TOTP code for secret at the fixture's time.
func (f *fixture) currentCode(secret string) string {
	return f.svc.TOTP.CodeAt(secret, f.clock.Now().Unix())
}

// wrongCode returns a well-formed code rejected for every accepted step.
func (f *fixture) wrongCode(secret string) string {
	now := f.clock.Now().Unix()
	accepted := map[string]bool{}
	for step := -otpx.Skew; step <= otpx.Skew; step++ {
		accepted[f.svc.TOTP.CodeAt(secret, now+int64(step*otpx.Period))] = true
	}
	for i := 0; ; i++ {
		code := fmt.Sprintf("%06d", i)
		if !accepted[code] {
			return code
		}
	}
}

func (f *fixture) register(t *testing.T, email, password string) {
	t.Helper()
	_, err := f.svc.Register(context.Background(), "10.0.0.1", RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)
}

func (f *fixture) login(t *testing.T, email, password string) string {
	t.Helper()
	token, err := f.svc.Login(context.Background(), "10.0.0.1", LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	return token
}
