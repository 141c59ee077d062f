package http

import (
	"net/http"

	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/pkg/httpx"
)

// StepUpHeader carries the step-up token on requests to step-up-gated
// endpoints.
const StepUpHeader = "X-Step-Up-Token"

// AuthHandler serves the /v1/auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// HandleLogin serves POST /v1/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Email, req.Password, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

// HandleRefresh serves POST /v1/auth/refresh.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

// HandleReauth serves POST /v1/auth/reauth. The caller is already
// authenticated; re-entering the password buys a short-lived step-up token
// for sensitive operations.
func (h *AuthHandler) HandleReauth(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	token, expiresIn, err := h.Auth.IssueStepUp(r.Context(), p.UserID, req.Password, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"step_up_token": token,
		"expires_in":    expiresIn,
	})
}

// HandleLogout serves POST /v1/auth/logout. The caller must hold a valid
// access token; revocation itself is idempotent, so the response is 200
// whether or not the refresh token was live.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := principalFrom(r); err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleLogoutAll serves POST /v1/auth/logout-all.
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	n, err := h.Auth.LogoutAll(r.Context(), p.UserID, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}
