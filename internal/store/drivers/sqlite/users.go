package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, password_hash, role, balance_cents, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, role, balance_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, string(u.Role), u.BalanceCents, now, now,
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.BalanceCents, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = domain.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) UpdateEmail(ctx context.Context, userID int64, email string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().UTC(), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireAffected(res)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) AddToBalance(ctx context.Context, userID int64, amountCents int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET balance_cents = balance_cents + ?, updated_at = ? WHERE id = ?`,
		amountCents, time.Now().UTC(), userID,
	)
	if err != nil {
		return 0, err
	}
	if err := requireAffected(res); err != nil {
		return 0, err
	}

	var balance int64
	err = r.db.QueryRowContext(ctx, `
		SELECT balance_cents FROM users WHERE id = ?`, userID).Scan(&balance)
	return balance, mapNotFound(err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.BalanceCents, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	return u, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
