package httpx

import (
	"context"

	"github.com/tabwave/payvault/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyClaims ctxKey = "claims"
)

// ClaimsFromContext returns the verified token claims attached by
// AuthnMiddleware, if any.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// UserIDFromContext returns the authenticated user ID, or 0 when the
// request carries no verified token.
func UserIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(CtxKeyUserID).(int64); ok {
		return id
	}
	return 0
}
