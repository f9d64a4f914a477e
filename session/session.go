/*
Package session holds the signed-in user's credentials for the lifetime of
a sign-in.

PURPOSE:
  A Session is created at sign-in, passed explicitly to whatever talks to
  the backend, and invalidated at sign-out or when it expires. There is no
  package-level token.

EXPIRY:
  When the backend token is a JWT its "exp" claim is used. The token is
  parsed without verification; the backend that issued it is the one that
  verifies it. Opaque tokens, and JWTs without "exp", expire after the
  configured TTL.

SEE ALSO:
  - manager.go: Open sessions keyed by token
  - issuer.go:  Local token issuer for standalone runs
*/
package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSession = errors.New("no session")
	ErrExpired   = errors.New("session expired")
)

type Session struct {
	Token      string
	EmployeeID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// New builds a session for a token the backend just returned.
func New(token, employeeID string, now time.Time, ttl time.Duration) Session {
	s := Session{
		Token:      token,
		EmployeeID: employeeID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	if exp, ok := tokenExpiry(token); ok {
		s.ExpiresAt = exp
	}
	return s
}

// Valid reports whether the session can still be used at now.
func (s Session) Valid(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}

// tokenExpiry reads the exp claim of a JWT without verifying it.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// =============================================================================
// CONTEXT
// =============================================================================

type contextKey struct{}

// WithContext attaches a session to a request context.
func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by WithContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
