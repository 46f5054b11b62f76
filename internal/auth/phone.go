package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrEmptyPhone is returned when a phone number contains no digits at all.
// Hashing an empty string would produce a perfectly valid-looking fingerprint
// that every digit-free input collides on, so we fail closed instead.
var ErrEmptyPhone = errors.New("phone number contains no digits")

// NormalizePhone strips every character that is not an ASCII digit. The result
// may be empty. No locale or country-code handling happens here: the same
// normalization must run at registration and at login or fingerprint lookups
// will never match.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

// PhoneFingerprint returns the hex SHA-256 digest of the normalized phone
// number. The fingerprint is deterministic so it can serve as a unique lookup
// key without the plaintext phone ever being stored.
//
// A fast digest is acceptable here, unlike for PINs: phone numbers are lookup
// keys, not secrets being verified against guesses.
func PhoneFingerprint(rawPhone string) (string, error) {
	normalized := NormalizePhone(rawPhone)
	if normalized == "" {
		return "", ErrEmptyPhone
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}

// ValidPhoneLength reports whether a normalized phone has an acceptable
// number of digits for registration.
func ValidPhoneLength(normalized string) bool {
	return len(normalized) >= 10 && len(normalized) <= 15
}
