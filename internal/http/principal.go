package http

import (
	"net/http"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/pkg/httpx"
)

// principalFrom rebuilds the authenticated principal from the verified
// claims AuthnMiddleware attached. A token carrying an unknown role or a
// purpose tag is rejected, not coerced.
func principalFrom(r *http.Request) (*domain.Principal, error) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		return nil, apperr.Unauthorized("missing bearer token")
	}

	if claims.Purpose != "" {
		// Single-purpose tokens (step-up) are not access tokens.
		return nil, apperr.Unauthorized("token is not an access token")
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, apperr.Forbidden("unknown role")
	}

	return &domain.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}
