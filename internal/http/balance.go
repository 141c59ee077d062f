package http

import (
	"net/http"

	"github.com/tabwave/payvault/internal/authz"
	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/pkg/httpx"
)

// BalanceHandler serves the /v1/balance endpoints.
type BalanceHandler struct {
	Balance *service.BalanceService
}

type balanceResponse struct {
	UserID       int64 `json:"user_id"`
	BalanceCents int64 `json:"balance_cents"`
}

// HandleGetOwn serves GET /v1/balance/me.
func (h *BalanceHandler) HandleGetOwn(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	balance, err := h.Balance.Get(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, balanceResponse{UserID: p.UserID, BalanceCents: balance})
}

// HandleGet serves GET /v1/balance/{id}. Owner or admin.
func (h *BalanceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	targetID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := authz.RequireOwnerOrAdmin(p, targetID); err != nil {
		writeError(w, r, err)
		return
	}

	balance, err := h.Balance.Get(r.Context(), targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, balanceResponse{UserID: targetID, BalanceCents: balance})
}

// HandleCredit serves POST /v1/balance/credit. Admin only; role is checked
// before the body is even read.
func (h *BalanceHandler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := authz.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		UserID      int64 `json:"user_id"`
		AmountCents int64 `json:"amount_cents"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	balance, err := h.Balance.Credit(r.Context(), p.UserID, req.UserID, req.AmountCents, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, balanceResponse{UserID: req.UserID, BalanceCents: balance})
}
