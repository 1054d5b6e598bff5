package cryptox

import (
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, returned base64url-encoded without padding.
func GenerateToken(size int) (string, error) {
	return generateToken(DefaultProvider, size)
}

func generateToken(p Provider, size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf, err := p.RandomBytes(size)
	if err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return Base64URLEncode(buf), nil
}
