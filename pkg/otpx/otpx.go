// Package otpx implements RFC 6238 time-based one-time passwords with
// HMAC-SHA1, six digits and a 30 second step.
package otpx

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
)

const (
	Digits     = 6
	Period     = 30 // seconds
	SecretSize = 20 // bytes, 32 base32 characters

	// Skew is the number of steps accepted either side of the current one.
	Skew = 1

	modulus = 1_000_000
)

// Engine generates and checks TOTP codes.
type Engine struct {
	provider cryptox.Provider
	now      func() time.Time
}

// NewEngine returns an Engine backed by p (cryptox.DefaultProvider when nil).
func NewEngine(p cryptox.Provider) *Engine {
	if p == nil {
		p = cryptox.DefaultProvider
	}
	return &Engine{provider: p, now: time.Now}
}

// WithClock returns a copy of e that reads the current time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// GenerateSecret returns a fresh base32 secret without padding.
func (e *Engine) GenerateSecret() (string, error) {
	raw, err := e.provider.RandomBytes(SecretSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return cryptox.Base32Encode(raw), nil
}

// CodeAt returns the code for the step containing unixSeconds.
//
// Only the low 32 bits of the step counter are used; the high four bytes of
// the HMAC message are always zero.
func (e *Engine) CodeAt(secret string, unixSeconds int64) string {
	key := cryptox.Base32Decode(secret)

	counter := unixSeconds / Period
	if unixSeconds < 0 && unixSeconds%Period != 0 {
		counter--
	}

	var msg [8]byte
	binary.BigEndian.PutUint32(msg[4:], uint32(counter))

	sum := e.provider.HMAC(cryptox.SHA1, key, msg[:])
	offset := sum[len(sum)-1] & 0x0F
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF

	return fmt.Sprintf("%0*d", Digits, value%modulus)
}

// Verify reports whether code matches the current step or one step either
// side of it. Anything that is not exactly six ASCII digits is rejected
// before any HMAC is computed.
func (e *Engine) Verify(secret, code string) bool {
	if !wellFormed(code) {
		return false
	}

	now := e.now().Unix()
	ok := false
	for step := -Skew; step <= Skew; step++ {
		candidate := e.CodeAt(secret, now+int64(step*Period))
		if cryptox.ConstantTimeEqual([]byte(candidate), []byte(code)) {
			ok = true
		}
	}
	return ok
}

func wellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// ProvisioningURI returns the otpauth:// URL authenticator apps scan to
// import secret.
func (e *Engine) ProvisioningURI(secret, issuer, account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		Secret:      cryptox.Base32Decode(secret),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build provisioning uri: %w", err)
	}
	return key.URL(), nil
}
