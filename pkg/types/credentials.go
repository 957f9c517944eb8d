package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the explicit auth value handed to the session controller at
// construction or login time. There is no process-wide ambient session state.
type Credentials struct {
	Token  string `json:"token" db:"token"`
	UserID string `json:"user_id" db:"user_id"`
}

// Expired reports whether the bearer token's exp claim is already in the past.
// The signature is not verified here; the backend is the authority and an
// expired-but-sent token simply comes back as Unauthorized. This check only
// lets callers skip a remote call that is guaranteed to fail.
func (c *Credentials) Expired(now time.Time) bool {
	if c.Token == "" {
		return true
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(c.Token, claims); err != nil {
		// Opaque (non-JWT) tokens carry no expiry we can inspect
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
