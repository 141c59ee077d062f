package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Access and step-up tokens are stateless, so a short
// lifetime is the only revocation mechanism they have.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultStepUpTokenTTL is the default lifetime for step-up tokens.
	// Must stay shorter than the access-token TTL.
	DefaultStepUpTokenTTL = 5 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for the opaque,
	// store-backed refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// PurposeStepUp tags step-up tokens. The tag plus a disjoint signing key
// keeps a step-up token from ever passing as an access token.
const PurposeStepUp = "step-up"

// Claims are the signed token claims shared by the access and step-up token
// classes. Which fields are populated depends on the class: access tokens
// carry identity and role, step-up tokens carry only the user ID and the
// purpose tag.
type Claims struct {
	jwt.RegisteredClaims

	// UserID identifies the authenticated user. Always >= 1.
	UserID int64 `json:"uid"`

	// Email of the user, access tokens only.
	Email string `json:"email,omitempty"`

	// Role of the user ("admin" or "user"), access tokens only.
	Role string `json:"role,omitempty"`

	// Purpose tags single-purpose tokens, e.g. "step-up".
	Purpose string `json:"purpose,omitempty"`
}

// NewAccessClaims builds claims for an access token.
func NewAccessClaims(userID int64, email, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(issuer, ttl, now),
		UserID:           userID,
		Email:            email,
		Role:             role,
	}
}

// NewStepUpClaims builds claims for a step-up token.
func NewStepUpClaims(userID int64, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(issuer, ttl, now),
		UserID:           userID,
		Purpose:          PurposeStepUp,
	}
}

func registered(issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// ValidatePurpose checks the purpose tag against the expected value.
func (c *Claims) ValidatePurpose(expected string) error {
	if c.Purpose != expected {
		return ErrPurpose
	}
	return nil
}
