package cryptox

// MAC signs and verifies messages with HMAC-SHA256.
type MAC struct {
	Provider Provider
}

// NewMAC returns a MAC backed by p, or DefaultProvider when p is nil.
func NewMAC(p Provider) *MAC {
	if p == nil {
		p = DefaultProvider
	}
	return &MAC{Provider: p}
}

// Sign returns HMAC-SHA256(key, msg).
func (m *MAC) Sign(key, msg []byte) []byte {
	return m.Provider.HMAC(SHA256, key, msg)
}

// Verify reports whether mac is the HMAC-SHA256 of msg under key.
func (m *MAC) Verify(key, msg, mac []byte) bool {
	return ConstantTimeEqual(m.Sign(key, msg), mac)
}

// ConstantTimeEqual compares a and b without short-circuiting on the first
// differing byte. A length mismatch returns false before any content is
// read.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
