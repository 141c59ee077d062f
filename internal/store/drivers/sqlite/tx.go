package sqlite

import (
	"context"
	"database/sql"

	"github.com/tabwave/payvault/internal/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits or rolls back; outer DB stays open

// Ping is a no-op for transactions. The connection is already established
// when the transaction is created.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations are applied before any tx starts

func (t *txStore) Users() store.Users                     { return &usersRepo{db: t.tx} }
func (t *txStore) Sessions() store.Sessions               { return &sessionsRepo{db: t.tx} }
func (t *txStore) MerchantConfigs() store.MerchantConfigs { return &merchantConfigsRepo{db: t.tx} }
func (t *txStore) AuditLogs() store.AuditLogs             { return &auditLogsRepo{db: t.tx} }
