package cryptox

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Configuration for PBKDF2 hashing.
const (
	passwordScheme     = "pbkdf2"
	DefaultIterations  = 120_000
	passwordKeyLength  = 32 // 256-bit digest
	passwordSaltLength = TokenSize128
)

// Hasher produces and checks self-describing password hashes of the form
// pbkdf2$<iterations>$<salt>$<digest>.
type Hasher struct {
	Provider   Provider
	Iterations int

	decoyOnce sync.Once
	decoy     string
}

// NewHasher returns a Hasher using p (DefaultProvider when nil) and the
// default iteration count.
func NewHasher(p Provider) *Hasher {
	if p == nil {
		p = DefaultProvider
	}
	return &Hasher{Provider: p, Iterations: DefaultIterations}
}

var defaultHasher = NewHasher(nil)

// HashPassword hashes password with the default Hasher.
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// VerifyPassword checks password against stored with the default Hasher.
func VerifyPassword(password, stored string) bool {
	return defaultHasher.Verify(password, stored)
}

// Hash derives a fresh salted digest for password.
func (h *Hasher) Hash(password string) (string, error) {
	iterations := h.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	salt, err := generateToken(h.Provider, passwordSaltLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := h.Provider.PBKDF2([]byte(password), []byte(salt), iterations, passwordKeyLength)

	return fmt.Sprintf("%s$%d$%s$%s",
		passwordScheme,
		iterations,
		salt,
		Base64URLEncode(digest),
	), nil
}

// VerifyMissing spends the same work as Verify against a real hash and
// always reports false. Call it when no stored hash exists for the account
// so a lookup miss takes as long as a wrong password.
func (h *Hasher) VerifyMissing(password string) bool {
	h.decoyOnce.Do(func() {
		h.decoy, _ = h.Hash("missing-account")
	})
	h.Verify(password, h.decoy)
	return false
}

// Verify recomputes the digest using the salt and iteration count recorded
// in stored. Any malformed input yields false.
func (h *Hasher) Verify(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 {
		return false
	}
	if parts[0] != passwordScheme || parts[2] == "" {
		return false
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}

	expected, err := Base64URLDecode(parts[3])
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := h.Provider.PBKDF2([]byte(password), []byte(parts[2]), iterations, len(expected))
	return ConstantTimeEqual(computed, expected)
}
