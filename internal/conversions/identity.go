package conversions

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashIdentifier lower-cases and trims the value, then applies SHA-256. Empty
// input yields an empty string so callers can tell "no identifier" apart from
// a digest of emptiness. Ad platform matching depends on both sides applying
// the same normalize-then-hash recipe, so the normalization here must stay
// stable.
func HashIdentifier(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizePhone strips everything but digits, prepends the default country
// code when absent, and prefixes the international marker. The result is a
// single canonical dial string regardless of how the number was typed.
// Normalizing an already-normalized number is a no-op.
func NormalizePhone(raw, defaultCountryCode string) string {
	digits := keepDigits(raw)
	if digits == "" {
		return ""
	}
	code := keepDigits(defaultCountryCode)
	if code != "" && !strings.HasPrefix(digits, code) {
		digits = code + digits
	}
	return "+" + digits
}

// HashPhone canonicalizes then hashes a phone number. This is the only phone
// representation allowed to cross the network boundary to an ad platform.
func HashPhone(raw, defaultCountryCode string) string {
	normalized := NormalizePhone(raw, defaultCountryCode)
	if normalized == "" {
		return ""
	}
	return HashIdentifier(normalized)
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
