package domain

import "time"

// User is an account row. Balances are integer cents to keep arithmetic
// exact.
type User struct {
	ID           int64
	Email        string
	PasswordHash string // argon2id PHC-encoded
	Role         Role
	BalanceCents int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated identity reconstructed per request from a
// verified access token. It is never persisted.
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}
