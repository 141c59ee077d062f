package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/store"
	"github.com/tabwave/payvault/pkg/idx"
)

// DefaultAuditListLimit caps how many records list calls return when the
// caller does not say.
const DefaultAuditListLimit = 100

// AuditService appends audit records for sensitive state changes. Recording
// is fire-and-forget: a failed append is logged and swallowed so the
// operation that triggered it still succeeds.
type AuditService struct {
	Store  store.Store
	Logger *slog.Logger
}

// Record appends one audit record. details is JSON-encoded when non-nil.
// Errors are never returned; auditing must not fail the audited operation.
func (s *AuditService) Record(ctx context.Context, userID int64, action, resource string, details any, ip string) {
	var encoded string
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			s.Logger.Error("audit details encoding failed", "action", action, "err", err)
		} else {
			encoded = string(b)
		}
	}

	entry := domain.AuditLog{
		ID:        idx.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   encoded,
		IP:        ip,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Store.AuditLogs().CreateAuditLog(ctx, entry); err != nil {
		s.Logger.Error("audit record failed",
			"action", action,
			"resource", resource,
			"user_id", userID,
			"err", err,
		)
	}
}

// ListForUser returns a user's most recent records, newest first.
func (s *AuditService) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 || limit > DefaultAuditListLimit {
		limit = DefaultAuditListLimit
	}
	return s.Store.AuditLogs().ListByUser(ctx, userID, limit)
}

// ListRecent returns the most recent records across all users, newest first.
func (s *AuditService) ListRecent(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 || limit > DefaultAuditListLimit {
		limit = DefaultAuditListLimit
	}
	return s.Store.AuditLogs().ListRecent(ctx, limit)
}
