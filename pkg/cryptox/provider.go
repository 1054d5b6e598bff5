package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" // #nosec G505 - HMAC-SHA1 is mandated by RFC 6238 TOTP
	"crypto/sha256"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

// Hash selects the digest used by a Provider's HMAC.
type Hash int

const (
	SHA256 Hash = iota
	SHA1
)

func (h Hash) new() func() hash.Hash {
	if h == SHA1 {
		return sha1.New
	}
	return sha256.New
}

// Provider is the set of host cryptographic primitives the rest of the
// service is built on. Everything that needs randomness, a MAC or a key
// derivation takes one of these so tests and alternative runtimes can swap it.
type Provider interface {
	// HMAC returns the keyed MAC of msg.
	HMAC(h Hash, key, msg []byte) []byte

	// PBKDF2 derives keyLen bytes from password and salt using HMAC-SHA256.
	PBKDF2(password, salt []byte, iterations, keyLen int) []byte

	// RandomBytes returns n bytes from a cryptographically secure source.
	RandomBytes(n int) ([]byte, error)
}

// StdProvider implements Provider with the Go standard library and x/crypto.
type StdProvider struct{}

// DefaultProvider is used by the package level helpers.
var DefaultProvider Provider = StdProvider{}

func (StdProvider) HMAC(h Hash, key, msg []byte) []byte {
	m := hmac.New(h.new(), key)
	m.Write(msg)
	return m.Sum(nil)
}

func (StdProvider) PBKDF2(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha256.New)
}

func (StdProvider) RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("random byte count must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}
