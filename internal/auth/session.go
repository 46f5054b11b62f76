package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidSession is the single outcome for every verification failure:
// bad signature, expired, malformed. Errors returned by Verify wrap it with
// the underlying cause for internal logs; the cause must never reach a
// client response.
var ErrInvalidSession = errors.New("invalid session")

// SessionManager issues and verifies the signed session tokens that are the
// sole proof of authentication. Tokens are stateless: nothing is stored
// server-side and nothing can be revoked before expiry.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionManager builds a manager around an explicit secret. The secret is
// injected here rather than read from the environment so tests can substitute
// their own; config.Load already guarantees it is non-empty.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl}
}

// SessionClaims is the JWT payload binding a user identity to a validity
// window.
type SessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Issue signs a token for the verified user, valid for the configured window
// starting now.
func (m *SessionManager) Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := &SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry atomically and returns the bound user
// id. Every failure satisfies errors.Is(err, ErrInvalidSession).
func (m *SessionManager) Verify(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("%w: invalid token claims", ErrInvalidSession)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: token missing user id", ErrInvalidSession)
	}
	return claims.UserID, nil
}

// TTL exposes the validity window for cookie max-age alignment.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}
