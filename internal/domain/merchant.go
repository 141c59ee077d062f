package domain

import "time"

// MerchantConfig holds a user's payout-callback configuration. One row per
// user; updates are idempotent upserts and the row is never implicitly
// deleted.
type MerchantConfig struct {
	UserID      int64     `json:"user_id"`
	CallbackURL string    `json:"callback_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
