package store

import (
	"context"
	"errors"
	"time"

	"github.com/tabwave/payvault/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, redis
// for sessions) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Users() Users
	Sessions() Sessions
	MerchantConfigs() MerchantConfigs
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the returned
	// Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user and returns the assigned ID.
	// Duplicate emails fail with ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail is used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns all users ordered by id.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdatePasswordHash sets the password_hash (argon2id) and bumps
	// updated_at.
	UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error

	// UpdateEmail changes the account email. Duplicates fail with
	// ErrAlreadyExists.
	UpdateEmail(ctx context.Context, userID int64, email string) error

	// UpdateRole changes the account role.
	UpdateRole(ctx context.Context, userID int64, role domain.Role) error

	// AddToBalance adjusts the balance atomically and returns the new value.
	AddToBalance(ctx context.Context, userID int64, amountCents int64) (int64, error)

	// DeleteUser cascades to sessions and merchant_configs (per schema).
	DeleteUser(ctx context.Context, userID int64) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Sessions interface {
	// CreateSession stores a new refresh-token session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash is the point lookup on the presented refresh
	// token's fingerprint. Absent rows return ErrNotFound.
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// DeleteSessionByTokenHash removes one session. Deleting an absent
	// session is not an error.
	DeleteSessionByTokenHash(ctx context.Context, hash string) error

	// DeleteSessionsByUser removes every session for a user (logout-all)
	// and returns the number removed.
	DeleteSessionsByUser(ctx context.Context, userID int64) (int64, error)

	// DeleteExpiredSessions sweeps rows whose expiry has passed and returns
	// the number removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type MerchantConfigs interface {
	// UpsertCallbackURL creates or replaces the user's callback
	// configuration. The URL must already be validated.
	UpsertCallbackURL(ctx context.Context, userID int64, url string) error

	// GetByUserID returns the user's callback configuration, or ErrNotFound
	// when none has been set.
	GetByUserID(ctx context.Context, userID int64) (domain.MerchantConfig, error)
}

type AuditLogs interface {
	// CreateAuditLog appends one record.
	CreateAuditLog(ctx context.Context, e domain.AuditLog) error

	// ListByUser returns a user's most recent records, newest first.
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.AuditLog, error)

	// ListRecent returns the most recent records across all users, newest
	// first.
	ListRecent(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
