package service

import (
	"context"
	"errors"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/store"
	"github.com/tabwave/payvault/pkg/urlguard"
)

// MerchantService manages per-user payout-callback configuration. Every
// write passes through the URL validator; there is no unvalidated path into
// the merchant_configs table.
type MerchantService struct {
	Store     store.Store
	Validator *urlguard.Validator
	Audit     *AuditService
}

// UpdateCallbackURL validates and stores the user's callback URL. Step-up
// verification happens at the boundary before this is called.
func (s *MerchantService) UpdateCallbackURL(ctx context.Context, userID int64, rawURL, ip string) (domain.MerchantConfig, error) {
	if err := s.Validator.Validate(rawURL); err != nil {
		return domain.MerchantConfig{}, apperr.Validation(err.Error())
	}

	// Best effort: the previous URL goes in the audit record when one exists.
	var oldURL string
	if prev, err := s.Store.MerchantConfigs().GetByUserID(ctx, userID); err == nil {
		oldURL = prev.CallbackURL
	}

	if err := s.Store.MerchantConfigs().UpsertCallbackURL(ctx, userID, rawURL); err != nil {
		return domain.MerchantConfig{}, apperr.Wrap(apperr.KindInternal, err, "callback url upsert failed")
	}

	mc, err := s.Store.MerchantConfigs().GetByUserID(ctx, userID)
	if err != nil {
		return domain.MerchantConfig{}, apperr.Wrap(apperr.KindInternal, err, "callback url readback failed")
	}

	s.Audit.Record(ctx, userID, "merchant.callback_url.update", "merchant_config",
		map[string]string{"old_url": oldURL, "new_url": rawURL}, ip)

	return mc, nil
}

// GetCallbackURL returns the user's callback configuration.
func (s *MerchantService) GetCallbackURL(ctx context.Context, userID int64) (domain.MerchantConfig, error) {
	mc, err := s.Store.MerchantConfigs().GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MerchantConfig{}, apperr.NotFound("no callback url configured")
		}
		return domain.MerchantConfig{}, apperr.Wrap(apperr.KindInternal, err, "callback url lookup failed")
	}
	return mc, nil
}
