package otpx

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
)

// rfcSecret is the SHA1 seed "12345678901234567890" from RFC 6238 appendix B.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCodeAt_RFC6238Vectors(t *testing.T) {
	e := NewEngine(nil)

	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, e.CodeAt(rfcSecret, tt.unix), "t=%d", tt.unix)
	}
}

func TestCodeAt_MatchesReferenceImplementation(t *testing.T) {
	e := NewEngine(nil)

	for i := 0; i < 20; i++ {
		secret, err := e.GenerateSecret()
		require.NoError(t, err)

		at := time.Unix(1_700_000_000+int64(i)*977, 0)
		want, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
			Period:    Period,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		require.NoError(t, err)
		require.Equal(t, want, e.CodeAt(secret, at.Unix()))
	}
}

func TestGenerateSecret(t *testing.T) {
	e := NewEngine(nil)

	s1, err := e.GenerateSecret()
	require.NoError(t, err)
	require.Len(t, s1, 32)
	require.NotContains(t, s1, "=")
	require.Len(t, cryptox.Base32Decode(s1), SecretSize)

	s2, err := e.GenerateSecret()
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)
}

func TestVerify_SkewWindow(t *testing.T) {
	now := time.Unix(1111111111, 0)
	e := NewEngine(nil).WithClock(fixedClock(now))

	tests := []struct {
		name   string
		offset time.Duration
		valid  bool
	}{
		{"current step", 0, true},
		{"previous step", -30 * time.Second, true},
		{"next step", 30 * time.Second, true},
		{"two steps back", -60 * time.Second, false},
		{"two steps ahead", 60 * time.Second, false},
		{"four stale lookups", -4 * 31 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := e.CodeAt(rfcSecret, now.Add(tt.offset).Unix())
			require.Equal(t, tt.valid, e.Verify(rfcSecret, code))
		})
	}
}

func TestVerify_CurrentCode(t *testing.T) {
	e := NewEngine(nil)
	secret, err := e.GenerateSecret()
	require.NoError(t, err)

	require.True(t, e.Verify(secret, e.CodeAt(secret, time.Now().Unix())))
}

// countingProvider records HMAC calls so tests can assert a fast failure.
type countingProvider struct {
	cryptox.Provider
	hmacCalls int
}

func (p *countingProvider) HMAC(h cryptox.Hash, key, msg []byte) []byte {
	p.hmacCalls++
	return p.Provider.HMAC(h, key, msg)
}

func TestVerify_MalformedCodeFailsFast(t *testing.T) {
	p := &countingProvider{Provider: cryptox.DefaultProvider}
	e := NewEngine(p)

	for _, code := range []string{
		"",
		"12345",
		"1234567",
		"12345a",
		" 12345",
		"12 456",
		"١٢٣٤٥٦", // Arabic-Indic digits
		"-12345",
		"+12345",
	} {
		require.False(t, e.Verify(rfcSecret, code), "code %q", code)
	}
	require.Zero(t, p.hmacCalls)

	e.Verify(rfcSecret, "000000")
	require.Equal(t, 2*Skew+1, p.hmacCalls)
}

func TestProvisioningURI(t *testing.T) {
	e := NewEngine(nil)

	raw, err := e.ProvisioningURI(rfcSecret, "Gatekeep", "alice@example.com")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, "otpauth://totp/"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "Gatekeep:alice@example.com", strings.TrimPrefix(u.Path, "/"))

	q := u.Query()
	require.Equal(t, rfcSecret, q.Get("secret"))
	require.Equal(t, "Gatekeep", q.Get("issuer"))
	require.Equal(t, "SHA1", q.Get("algorithm"))
	require.Equal(t, "6", q.Get("digits"))
	require.Equal(t, "30", q.Get("period"))

	key, err := otp.NewKeyFromURL(raw)
	require.NoError(t, err)
	require.Equal(t, rfcSecret, key.Secret())
}
