package sqlite

import (
	"context"
	"time"

	"github.com/tabwave/payvault/internal/domain"
)

type merchantConfigsRepo struct {
	db dbtx
}

func (r *merchantConfigsRepo) UpsertCallbackURL(ctx context.Context, userID int64, url string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO merchant_configs (user_id, callback_url, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			callback_url = excluded.callback_url,
			updated_at = excluded.updated_at`,
		userID, url, now, now,
	)
	return err
}

func (r *merchantConfigsRepo) GetByUserID(ctx context.Context, userID int64) (domain.MerchantConfig, error) {
	var mc domain.MerchantConfig
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, callback_url, created_at, updated_at
		FROM merchant_configs WHERE user_id = ?`, userID,
	).Scan(&mc.UserID, &mc.CallbackURL, &mc.CreatedAt, &mc.UpdatedAt)
	if err != nil {
		return domain.MerchantConfig{}, mapNotFound(err)
	}
	return mc, nil
}
