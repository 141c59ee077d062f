package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/pkg/httpx"
	"github.com/tabwave/payvault/pkg/slogx"
)

// maxBodyBytes caps request bodies. Nothing this API accepts is large.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError is the single boundary where kind-tagged errors become HTTP
// statuses. Internal errors are logged here and collapsed to a generic
// message so internals never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
	}

	httpx.WriteJSON(w, statusOf(kind), errorResponse{
		Error:   kind.String(),
		Message: apperr.MessageOf(err),
	})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into dst, writing a validation error and
// returning false on any failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, apperr.Validation("malformed JSON body"))
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, r, apperr.Validation("request body must be a single JSON object"))
		return false
	}
	return true
}
