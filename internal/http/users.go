package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/authz"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/internal/store"
	"github.com/tabwave/payvault/pkg/httpx"
)

// UsersHandler serves the /v1/users endpoints.
type UsersHandler struct {
	Users    *service.UserService
	Sessions store.Sessions
}

// userResponse is the public view of an account. The password hash never
// crosses the boundary.
type userResponse struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role.String(),
		BalanceCents: u.BalanceCents,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// HandleCreate serves POST /v1/users. Admin only.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleUser.String()
	}

	user, err := h.Users.Create(r.Context(), req.Email, req.Password, domain.Role(req.Role), httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleList serves GET /v1/users. Admin only.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := authz.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}

	users, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet serves GET /v1/users/{id}. Owner or admin.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.Users.GetByID(r.Context(), targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleUpdate serves PATCH /v1/users/{id}. Owner or admin for email and
// password; changing the role takes an admin. Absent fields are untouched.
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Email    *string `json:"email"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := service.UserUpdate{Email: req.Email, Password: req.Password}
	if req.Role != nil {
		if err := authz.RequireAdmin(p); err != nil {
			writeError(w, r, err)
			return
		}
		role := domain.Role(*req.Role)
		upd.Role = &role
	}

	user, err := h.Users.Update(r.Context(), h.Sessions, targetID, upd, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleChangePassword serves PUT /v1/users/{id}/password. Owner or admin.
// Every refresh session the user holds is revoked on success.
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Users.ChangePassword(r.Context(), h.Sessions, targetID, req.Password, httpx.IPKeyExtractor(r)); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete serves DELETE /v1/users/{id}. Admin only.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := authz.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}

	targetID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Users.Delete(r.Context(), targetID, httpx.IPKeyExtractor(r)); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("invalid user id")
	}
	return id, nil
}
