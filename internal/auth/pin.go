package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PINLength is the exact number of digits a PIN must have.
const PINLength = 6

// ErrPINMismatch is returned when a submitted PIN does not verify against the
// stored hash.
var ErrPINMismatch = errors.New("pin mismatch")

// ValidPIN reports whether the submitted PIN is exactly six ASCII digits.
// Anything else is rejected before the store is ever consulted.
func ValidPIN(pin string) bool {
	if len(pin) != PINLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// HashPIN hashes a PIN with bcrypt at the configured cost. A six-digit PIN
// has only a million possible values, so the hash must be slow and salted per
// record; a bare fast digest would be brute-forceable offline in seconds.
func HashPIN(pin string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPIN checks a submitted PIN against a stored hash, dispatching on the
// scheme the hash was written with. Current records are bcrypt. Records from
// before the bcrypt migration hold an unsalted hex SHA-256 digest; those
// still verify (read-only) so existing accounts keep working, but every new
// write goes through HashPIN.
func VerifyPIN(storedHash, pin string) error {
	if strings.HasPrefix(storedHash, "$2") {
		if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(pin)); err != nil {
			return ErrPINMismatch
		}
		return nil
	}
	if isHexDigest(storedHash) {
		sum := sha256.Sum256([]byte(pin))
		if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(storedHash))) == 1 {
			return nil
		}
		return ErrPINMismatch
	}
	return ErrPINMismatch
}

// NeedsRehash reports whether a stored hash predates the bcrypt scheme and
// should be rewritten on the next credential update.
func NeedsRehash(storedHash string) bool {
	return !strings.HasPrefix(storedHash, "$2")
}

func isHexDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
