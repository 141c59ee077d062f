package http

import (
	"net/http"
	"strconv"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/authz"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/pkg/httpx"
)

// AuditHandler serves GET /v1/audit. Users see their own records; admins
// may read anyone's, or the global feed.
type AuditHandler struct {
	Audit *service.AuditService
}

func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, err := principalFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit, err := limitParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var logs []domain.AuditLog
	switch raw := r.URL.Query().Get("user_id"); {
	case raw != "":
		targetID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || targetID < 1 {
			writeError(w, r, apperr.Validation("invalid user_id"))
			return
		}
		if err := authz.RequireOwnerOrAdmin(p, targetID); err != nil {
			writeError(w, r, err)
			return
		}
		logs, err = h.Audit.ListForUser(r.Context(), targetID, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}

	case p.Role == domain.RoleAdmin:
		logs, err = h.Audit.ListRecent(r.Context(), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}

	default:
		logs, err = h.Audit.ListForUser(r.Context(), p.UserID, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	if logs == nil {
		logs = []domain.AuditLog{}
	}
	httpx.WriteJSON(w, http.StatusOK, logs)
}

// HandleListForUser serves GET /v1/audit/users/{id}. Owner or admin.
func (h *AuditHandler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
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

	limit, err := limitParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logs, err := h.Audit.ListForUser(r.Context(), targetID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}
	httpx.WriteJSON(w, http.StatusOK, logs)
}

// limitParam reads the optional ?limit query parameter. Zero means "use the
// service default".
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperr.Validation("invalid limit")
	}
	return limit, nil
}
