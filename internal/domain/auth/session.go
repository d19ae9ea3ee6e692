// Package auth provides credentials sign-in and stateless JWT sessions.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ecalcano/estore/internal/domain/user"
)

// SessionTTL is how long an issued session token stays valid.
const SessionTTL = 30 * 24 * time.Hour

// Claims is the JWT payload for a signed-in user.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// Session is the identity view the rest of the application consumes. It is
// derived from token claims and never mutated in place.
type Session struct {
	UserID string
	Name   string
	Role   user.Role
}

// NewClaims builds the token claims for a user. It is a pure transform of
// the user record; issuance time is passed in to keep it deterministic.
func NewClaims(u *user.User, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
		Name: u.Name,
		Role: string(u.Role),
	}
}

// SessionFromClaims derives the session view from validated token claims.
func SessionFromClaims(c Claims) Session {
	return Session{
		UserID: c.Subject,
		Name:   c.Name,
		Role:   user.Role(c.Role),
	}
}
