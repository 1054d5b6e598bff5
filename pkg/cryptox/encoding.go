package cryptox

import (
	"encoding/base64"
	"strings"
)

// base64url with the padding put back before decoding. Strict mode rejects
// non-zero trailing bits, so two different encodings never decode to the
// same bytes.
var b64url = base64.URLEncoding.Strict()

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// Base64URLEncode encodes data with the URL-safe alphabet and strips padding.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode reverses Base64URLEncode. Input with or without trailing
// padding is accepted.
func Base64URLDecode(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return b64url.DecodeString(s)
}

// Base32Encode encodes data with the RFC 4648 alphabet, five bits per
// character, without padding. The final partial group is right-padded with
// zero bits.
func Base32Encode(data []byte) string {
	var sb strings.Builder
	sb.Grow((len(data)*8 + 4) / 5)

	var buf uint32
	var bits uint
	for _, b := range data {
		buf = buf<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			sb.WriteByte(base32Alphabet[(buf>>bits)&0x1F])
		}
	}
	if bits > 0 {
		sb.WriteByte(base32Alphabet[(buf<<(5-bits))&0x1F])
	}
	return sb.String()
}

// Base32Decode decodes an RFC 4648 base32 string leniently: trailing '='
// is ignored, input is uppercased and characters outside the alphabet are
// skipped. Bits that do not fill a whole byte are dropped.
func Base32Decode(s string) []byte {
	s = strings.ToUpper(strings.TrimRight(s, "="))
	out := make([]byte, 0, len(s)*5/8)

	var buf uint32
	var bits uint
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(base32Alphabet, s[i])
		if idx < 0 {
			continue
		}
		buf = buf<<5 | uint32(idx)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>bits))
		}
	}
	return out
}
