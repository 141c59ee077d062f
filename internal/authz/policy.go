// Package authz evaluates role and ownership rules against an authenticated
// principal. Evaluation is pure and synchronous: it never touches storage,
// and the caller supplies the target user ID from already-validated input.
// The default posture is fail-closed: no principal means no access.
package authz

import (
	"slices"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/domain"
)

// RequireRole passes when the principal's role is one of allowed.
func RequireRole(p *domain.Principal, allowed ...domain.Role) error {
	if p == nil || !p.Role.Valid() {
		return apperr.Forbidden("not authenticated")
	}
	if !slices.Contains(allowed, p.Role) {
		return apperr.Forbidden("insufficient role")
	}
	return nil
}

// RequireOwnerOrRole passes when the principal owns the target resource or
// holds one of the allowed roles.
func RequireOwnerOrRole(p *domain.Principal, targetUserID int64, allowed ...domain.Role) error {
	if p == nil || !p.Role.Valid() {
		return apperr.Forbidden("not authenticated")
	}
	if p.UserID == targetUserID {
		return nil
	}
	if slices.Contains(allowed, p.Role) {
		return nil
	}
	return apperr.Forbidden("cannot access another user's resource")
}

// RequireAdmin is shorthand for the admin-only rule.
func RequireAdmin(p *domain.Principal) error {
	return RequireRole(p, domain.RoleAdmin)
}

// RequireOwnerOrAdmin is shorthand for the owner-or-admin rule.
func RequireOwnerOrAdmin(p *domain.Principal, targetUserID int64) error {
	return RequireOwnerOrRole(p, targetUserID, domain.RoleAdmin)
}
