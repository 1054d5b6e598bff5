package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

var (
	ErrEmptyVaultKey    = errors.New("vault: server key must not be empty")
	ErrVaultCorrupted   = errors.New("vault: stored secret cannot be decoded")
	ErrUnknownVaultMode = errors.New("vault: unknown mode")
)

// Vault protects the TOTP secret before it is written to the user store.
type Vault interface {
	Seal(secret string) (string, error)
	Open(encoded string) (string, error)
}

// Vault modes accepted by NewVault.
const (
	VaultModeXOR  = "xor"
	VaultModeAEAD = "aead"
)

// NewVault returns the vault implementation for mode keyed by serverKey.
func NewVault(mode, serverKey string, p Provider) (Vault, error) {
	if serverKey == "" {
		return nil, ErrEmptyVaultKey
	}
	switch mode {
	case "", VaultModeXOR:
		return XORVault{Key: serverKey}, nil
	case VaultModeAEAD:
		return NewAEADVault(serverKey, p), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVaultMode, mode)
	}
}

// EncodeSecret XORs the secret with serverKey repeated to the secret's
// length and base64url-encodes the result.
//
// This is reversible obfuscation, not encryption: anyone holding a stored
// value and a known secret recovers the key. AEADVault is the authenticated
// alternative; switching makes existing stored secrets unreadable.
func EncodeSecret(secret, serverKey string) (string, error) {
	if serverKey == "" {
		return "", ErrEmptyVaultKey
	}
	return Base64URLEncode(xorKeystream([]byte(secret), []byte(serverKey))), nil
}

// DecodeSecret reverses EncodeSecret.
func DecodeSecret(encoded, serverKey string) (string, error) {
	if serverKey == "" {
		return "", ErrEmptyVaultKey
	}
	raw, err := Base64URLDecode(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVaultCorrupted, err)
	}
	return string(xorKeystream(raw, []byte(serverKey))), nil
}

func xorKeystream(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

// XORVault is the Vault form of EncodeSecret/DecodeSecret.
type XORVault struct {
	Key string
}

func (v XORVault) Seal(secret string) (string, error)  { return EncodeSecret(secret, v.Key) }
func (v XORVault) Open(encoded string) (string, error) { return DecodeSecret(encoded, v.Key) }

// aeadKeyLabel domain-separates the AES key from other uses of the server key.
const aeadKeyLabel = "gatekeep/totp-vault"

// AEADVault seals secrets with AES-256-GCM. The output format is
// base64url([12-byte nonce][ciphertext][16-byte tag]).
type AEADVault struct {
	key      []byte
	provider Provider
}

// NewAEADVault derives a 32-byte AES key as HMAC-SHA256(serverKey, label).
func NewAEADVault(serverKey string, p Provider) *AEADVault {
	mac := NewMAC(p)
	return &AEADVault{
		key:      mac.Sign([]byte(serverKey), []byte(aeadKeyLabel)),
		provider: mac.Provider,
	}
}

func (v *AEADVault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func (v *AEADVault) Seal(secret string) (string, error) {
	gcm, err := v.gcm()
	if err != nil {
		return "", err
	}

	nonce, err := v.provider.RandomBytes(gcm.NonceSize())
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	return Base64URLEncode(gcm.Seal(nonce, nonce, []byte(secret), nil)), nil
}

func (v *AEADVault) Open(encoded string) (string, error) {
	data, err := Base64URLDecode(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVaultCorrupted, err)
	}

	gcm, err := v.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrVaultCorrupted)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVaultCorrupted, err)
	}

	return string(plaintext), nil
}
