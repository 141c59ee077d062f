package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrExpired   = errors.New("jwtx: token expired")
	ErrInvalid   = errors.New("jwtx: invalid token")
	ErrPurpose   = errors.New("jwtx: purpose mismatch")
)

// MinKeyLength is the minimum accepted HMAC key length in bytes. HS256 keys
// shorter than the hash output weaken the MAC.
const MinKeyLength = 32

// Verifier validates a signed token and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies tokens for a single token class with a single
// static HMAC key. Each token class (access, step-up) gets its own instance
// with a disjoint key so tokens cannot be replayed across classes.
type HS256 struct {
	key    []byte
	issuer string
}

// NewHS256 creates a signer/verifier pair around one HMAC key.
func NewHS256(key []byte, issuer string) (*HS256, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("jwtx: HS256 key must be at least %d bytes, got %d", MinKeyLength, len(key))
	}
	return &HS256{key: key, issuer: issuer}, nil
}

// Issuer returns the issuer this instance signs and verifies for.
func (h *HS256) Issuer() string { return h.issuer }

// Sign produces a compact signed token for the claims.
func (h *HS256) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.key)
}

// Verify parses the token, checks the signature, algorithm, issuer and
// time-based claims, and returns the decoded claims. All failures map onto
// the package sentinel errors so callers can translate them uniformly.
func (h *HS256) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.issuer),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return h.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, ErrInvalid
		}
	}

	if claims.UserID < 1 {
		return Claims{}, ErrInvalid
	}

	return claims, nil
}
