package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeSecret_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		key    string
	}{
		{"base32 secret", "JBSWY3DPEHPK3PXP", "server-key"},
		{"key longer than secret", "ABC", "a-much-longer-server-key"},
		{"single byte key", "GEZDGNBVGY3TQOJQ", "k"},
		{"empty secret", "", "server-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeSecret(tt.secret, tt.key)
			require.NoError(t, err)
			if tt.secret != "" {
				require.NotEqual(t, tt.secret, encoded)
			}

			decoded, err := DecodeSecret(encoded, tt.key)
			require.NoError(t, err)
			require.Equal(t, tt.secret, decoded)
		})
	}
}

func TestEncodeSecret_KnownValue(t *testing.T) {
	// 'A'^'k' = 0x2a, 'B'^'k' = 0x29
	encoded, err := EncodeSecret("AB", "k")
	require.NoError(t, err)
	require.Equal(t, Base64URLEncode([]byte{0x2a, 0x29}), encoded)
}

func TestEncodeSecret_EmptyKey(t *testing.T) {
	_, err := EncodeSecret("secret", "")
	require.ErrorIs(t, err, ErrEmptyVaultKey)

	_, err = DecodeSecret("c2VjcmV0", "")
	require.ErrorIs(t, err, ErrEmptyVaultKey)
}

func TestDecodeSecret_Corrupted(t *testing.T) {
	_, err := DecodeSecret("not base64!", "server-key")
	require.ErrorIs(t, err, ErrVaultCorrupted)
}

func TestDecodeSecret_WrongKey(t *testing.T) {
	encoded, err := EncodeSecret("JBSWY3DPEHPK3PXP", "right-key")
	require.NoError(t, err)

	decoded, err := DecodeSecret(encoded, "wrong-key")
	require.NoError(t, err)
	require.NotEqual(t, "JBSWY3DPEHPK3PXP", decoded)
}

func TestAEADVault_RoundTrip(t *testing.T) {
	v := NewAEADVault("server-key", nil)

	sealed, err := v.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	again, err := v.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonces should differ")

	opened, err := v.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", opened)
}

func TestAEADVault_Tampered(t *testing.T) {
	v := NewAEADVault("server-key", nil)

	sealed, err := v.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	raw, err := Base64URLDecode(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01

	_, err = v.Open(Base64URLEncode(raw))
	require.ErrorIs(t, err, ErrVaultCorrupted)

	_, err = v.Open(Base64URLEncode([]byte("short")))
	require.ErrorIs(t, err, ErrVaultCorrupted)

	_, err = NewAEADVault("other-key", nil).Open(sealed)
	require.ErrorIs(t, err, ErrVaultCorrupted)
}

func TestNewVault(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		key     string
		wantErr error
	}{
		{"default mode", "", "k", nil},
		{"xor", VaultModeXOR, "k", nil},
		{"aead", VaultModeAEAD, "k", nil},
		{"unknown mode", "rot13", "k", ErrUnknownVaultMode},
		{"empty key", VaultModeXOR, "", ErrEmptyVaultKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVault(tt.mode, tt.key, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			sealed, err := v.Seal("GEZDGNBVGY3TQOJQ")
			require.NoError(t, err)
			opened, err := v.Open(sealed)
			require.NoError(t, err)
			require.Equal(t, "GEZDGNBVGY3TQOJQ", opened)
		})
	}
}
