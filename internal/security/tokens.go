// Package security decodes the backend's bearer tokens on the client side.
// The client never holds the signing key, so tokens are parsed without signature verification
// and only used to detect expiry early; the backend remains the authority.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoExpiry is returned when a token carries no exp claim.
	ErrNoExpiry = errors.New("token has no exp claim")
)

// Claims holds the claims the client reads from the backend's access token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// ParseClaims decodes tokenString without verifying its signature.
func ParseClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of tokenString.
func ExpiresAt(tokenString string) (time.Time, error) {
	claims, err := ParseClaims(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether tokenString is unusable at now: malformed, or exp not after now.
// A well-formed token without exp is treated as not expired.
func IsExpired(tokenString string, now time.Time) bool {
	exp, err := ExpiresAt(tokenString)
	if errors.Is(err, ErrNoExpiry) {
		return false
	}
	if err != nil {
		return true
	}
	return !exp.After(now)
}
