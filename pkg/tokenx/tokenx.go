// Package tokenx implements the v1 session token:
//
//	v1.<base64url(payload JSON)>.<base64url(HMAC-SHA256(secret, encoded payload))>
//
// The MAC covers the encoded payload segment, not the raw JSON, so the
// verifier never has to re-serialise anything before checking it.
package tokenx

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
)

const version = "v1"

// ErrInvalidToken is returned for every verification failure. Callers get
// no detail about which check failed.
var ErrInvalidToken = errors.New("tokenx: invalid token")

// Payload is the signed body of a session token. Fields are declared in
// key order so the encoded JSON is canonical.
type Payload struct {
	Email string           `json:"email,omitempty"`
	Exp   *jwt.NumericDate `json:"exp,omitempty"`
	Iat   *jwt.NumericDate `json:"iat,omitempty"`
	Sub   string           `json:"sub"`
}

// NewPayload builds a payload issued at now and valid for ttl.
func NewPayload(sub, email string, now time.Time, ttl time.Duration) Payload {
	return Payload{
		Email: email,
		Exp:   jwt.NewNumericDate(now.Add(ttl)),
		Iat:   jwt.NewNumericDate(now),
		Sub:   sub,
	}
}

// Codec creates and verifies tokens.
type Codec struct {
	mac *cryptox.MAC
	now func() time.Time
}

// NewCodec returns a Codec signing with p (cryptox.DefaultProvider when nil).
func NewCodec(p cryptox.Provider) *Codec {
	return &Codec{mac: cryptox.NewMAC(p), now: time.Now}
}

// WithClock returns a copy of c that reads the current time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Create serialises p, encodes it and appends the MAC computed with secret.
func (c *Codec) Create(p Payload, secret []byte) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	encoded := cryptox.Base64URLEncode(body)
	sig := c.mac.Sign(secret, []byte(encoded))

	return version + "." + encoded + "." + cryptox.Base64URLEncode(sig), nil
}

// Verify checks the token's MAC under secret and returns its payload. A token
// whose exp lies before the current time is rejected even when the MAC is
// correct. exp is compared in whole epoch seconds, so a token is still
// accepted throughout the second named by exp.
func (c *Codec) Verify(token string, secret []byte) (Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] != version {
		return Payload{}, ErrInvalidToken
	}

	sig, err := cryptox.Base64URLDecode(parts[2])
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	if !c.mac.Verify(secret, []byte(parts[1]), sig) {
		return Payload{}, ErrInvalidToken
	}

	body, err := cryptox.Base64URLDecode(parts[1])
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, ErrInvalidToken
	}

	if p.Exp != nil && p.Exp.Unix() < c.now().Unix() {
		return Payload{}, ErrInvalidToken
	}

	return p, nil
}
