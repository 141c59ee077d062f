package service

import (
	"context"
	"errors"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/store"
)

// MaxCreditCents bounds a single credit so a typo cannot mint an absurd
// balance in one call.
const MaxCreditCents = 1_000_000_00

// BalanceService adjusts and reads account balances. Amounts are integer
// cents throughout.
type BalanceService struct {
	Store store.Store
	Audit *AuditService
}

// Credit adds a positive amount to the target user's balance and returns
// the new balance. actorID identifies who performed the credit for the
// audit trail; role checks happen at the boundary before this is called.
func (s *BalanceService) Credit(ctx context.Context, actorID, targetUserID, amountCents int64, ip string) (int64, error) {
	if amountCents <= 0 {
		return 0, apperr.Validation("amount must be positive")
	}
	if amountCents > MaxCreditCents {
		return 0, apperr.Validation("amount exceeds single-credit limit")
	}

	balance, err := s.Store.Users().AddToBalance(ctx, targetUserID, amountCents)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, apperr.NotFound("user not found")
		}
		return 0, apperr.Wrap(apperr.KindInternal, err, "balance credit failed")
	}

	s.Audit.Record(ctx, actorID, "balance.credit", "balance", map[string]int64{
		"target_user_id": targetUserID,
		"amount_cents":   amountCents,
		"balance_cents":  balance,
	}, ip)

	return balance, nil
}

// Get returns the user's current balance in cents.
func (s *BalanceService) Get(ctx context.Context, userID int64) (int64, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, apperr.NotFound("user not found")
		}
		return 0, apperr.Wrap(apperr.KindInternal, err, "user lookup failed")
	}
	return user.BalanceCents, nil
}
