package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testSigningKey signs tokens minted by NewTestToken. For unit tests only.
var testSigningKey = []byte("envmonitor-test-key")

// NewTestToken returns an HS256 token for subject and role expiring at exp.
// A zero exp omits the claim. For unit tests only; callers must not use in production.
func NewTestToken(subject, role string, exp time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
		Role: role,
	}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
}
