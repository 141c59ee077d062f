package domain

import "time"

// Session is the persisted record of one issued refresh token. Refresh
// tokens are the only token class with storage behind them because they must
// be revocable (logout) and enumerable per user (logout-all). The raw token
// never touches the database; rows are keyed by its SHA-256 fingerprint.
type Session struct {
	ID        string // ULID
	UserID    int64
	TokenHash string // fingerprint of the opaque refresh token, unique
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session's lifetime has passed at now.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
