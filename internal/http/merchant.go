package http

import (
	"net/http"

	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/pkg/httpx"
)

// MerchantHandler serves the /v1/merchant endpoints.
type MerchantHandler struct {
	Auth     *service.AuthService
	Merchant *service.MerchantService
}

// HandleGetCallbackURL serves GET /v1/merchant/callback-url.
func (h *MerchantHandler) HandleGetCallbackURL(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	mc, err := h.Merchant.GetCallbackURL(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mc)
}

// HandleUpdateCallbackURL serves PUT /v1/merchant/callback-url. A valid
// access token is not enough: the request must also carry a fresh step-up
// token in X-Step-Up-Token.
func (h *MerchantHandler) HandleUpdateCallbackURL(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Auth.VerifyStepUp(r.Header.Get(StepUpHeader), p.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		CallbackURL string `json:"callback_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	mc, err := h.Merchant.UpdateCallbackURL(r.Context(), p.UserID, req.CallbackURL, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mc)
}
