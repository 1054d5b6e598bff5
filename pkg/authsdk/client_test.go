package authsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gatekeephttp "github.com/aussiebroadwan/gatekeep/internal/gatekeep/http"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
	"github.com/aussiebroadwan/gatekeep/pkg/ratelimit"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/aussiebroadwan/gatekeep/pkg/tokenx"
)

func newTestClient(t *testing.T, rateLimit int) (*authsdk.SDKClient, *otpx.Engine) {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "gatekeep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	limiter, err := ratelimit.NewLimiter(ratelimit.NewMemoryStore())
	require.NoError(t, err)

	vault, err := cryptox.NewVault(cryptox.VaultModeXOR, "sdk-test-key", nil)
	require.NoError(t, err)

	engine := otpx.NewEngine(nil)

	router := gatekeephttp.NewRouter("sdk-test", st, slogx.Discard())
	router.AuthService = &service.AuthService{
		Store:             st,
		Hasher:            &cryptox.Hasher{Provider: cryptox.DefaultProvider, Iterations: 1_000},
		Tokens:            tokenx.NewCodec(nil),
		TOTP:              engine,
		Vault:             vault,
		Limiter:           limiter,
		TokenSecret:       []byte("sdk-test-secret"),
		AllowRegistration: true,
		RateLimitRequests: rateLimit,
		RateLimitWindow:   time.Minute,
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return authsdk.NewSDKClient(srv.URL + "/"), engine
}

func TestSDKClient_FullFlow(t *testing.T) {
	ctx := context.Background()
	client, engine := newTestClient(t, 50)

	user, err := client.Register(ctx, authsdk.RegisterRequest{Email: "alice@x.io", Password: "longpassword1"})
	require.NoError(t, err)
	require.Equal(t, "alice@x.io", user.Email)

	session, err := client.Authenticate(ctx, "alice@x.io", "longpassword1", "")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token())

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, user.ID, me.ID)
	require.False(t, me.MFAEnabled)

	enroll, err := session.EnrollMFA(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, enroll.QRCode)

	verified, err := session.VerifyMFA(ctx, engine.CodeAt(enroll.Secret, time.Now().Unix()))
	require.NoError(t, err)
	require.True(t, verified.OK)
	require.True(t, verified.MFAEnabled)

	_, err = client.Authenticate(ctx, "alice@x.io", "longpassword1", "")
	require.ErrorIs(t, err, authsdk.ErrMFARequired)

	err = session.Relogin(ctx, authsdk.LoginRequest{
		Email:    "alice@x.io",
		Password: "longpassword1",
		TOTP:     engine.CodeAt(enroll.Secret, time.Now().Unix()),
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.Token())

	me, err = session.Me(ctx)
	require.NoError(t, err)
	require.True(t, me.MFAEnabled)
}

func TestSDKClient_Errors(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, 50)

	_, err := client.Register(ctx, authsdk.RegisterRequest{Email: "bob@example.com", Password: "password-123"})
	require.NoError(t, err)

	_, err = client.Register(ctx, authsdk.RegisterRequest{Email: "bob@example.com", Password: "password-123"})
	require.ErrorIs(t, err, authsdk.ErrUserExists)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)

	_, err = client.Login(ctx, authsdk.LoginRequest{Email: "bob@example.com", Password: "nope-nope"})
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = client.NewSession("v1.bogus.token").Me(ctx)
	require.ErrorIs(t, err, authsdk.ErrNotAuthenticated)

	_, err = client.NewSession("").Me(ctx)
	require.Error(t, err)
}

func TestSDKClient_RateLimited(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, 1)

	_, err := client.Login(ctx, authsdk.LoginRequest{Email: "carol@example.com", Password: "password-123"})
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = client.Login(ctx, authsdk.LoginRequest{Email: "carol@example.com", Password: "password-123"})
	require.ErrorIs(t, err, authsdk.ErrRateLimited)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Positive(t, apiErr.RetryAfter)
}

func TestSDKClient_Health(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, 50)

	health, err := client.GetHealth(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "sdk-test", health.Version)

	live, err := client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)
}
