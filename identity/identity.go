// Package identity supplies the current user's identifier and the bearer
// credential attached to every remote call.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSubject is returned when a token carries no subject claim.
var ErrNoSubject = errors.New("token has no subject claim")

// Provider supplies the acting user and their bearer credential.
type Provider interface {
	// UserID returns the current user's identifier.
	UserID() string
	// Token returns the bearer credential for remote calls.
	Token() string
}

// Static is a fixed identity, used for tests and token-less deployments.
type Static struct {
	User   string
	Bearer string
}

// NewStatic creates a fixed identity provider.
func NewStatic(user, bearer string) *Static {
	return &Static{User: user, Bearer: bearer}
}

func (s *Static) UserID() string { return s.User }
func (s *Static) Token() string  { return s.Bearer }

// TokenIdentity derives the user from a JWT bearer token. The token is not
// verified here; verification is the backend's job. The client only needs
// the subject and expiry claims.
type TokenIdentity struct {
	user    string
	token   string
	expires time.Time
}

// FromToken parses an unverified JWT and extracts the subject and expiry.
func FromToken(token string) (*TokenIdentity, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse bearer token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrNoSubject
	}

	ident := &TokenIdentity{user: sub, token: token}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ident.expires = exp.Time
	}
	return ident, nil
}

func (t *TokenIdentity) UserID() string { return t.user }
func (t *TokenIdentity) Token() string  { return t.token }

// Expired reports whether the token's expiry claim has passed. Tokens
// without an expiry never expire locally.
func (t *TokenIdentity) Expired(now time.Time) bool {
	return !t.expires.IsZero() && now.After(t.expires)
}
