package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/assist"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/users"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("error encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// serviceError maps a service error to its HTTP status.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, model.ErrInsufficientStock):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrForbidden):
		jsonError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, model.ErrConflict):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, kv.ErrQuotaExceeded):
		jsonError(w, http.StatusInsufficientStorage, "storage quota exceeded")
	case errors.Is(err, assist.ErrUnavailable):
		jsonError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials):
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, users.ErrPendingApproval), errors.Is(err, users.ErrInactive):
		jsonError(w, http.StatusForbidden, err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
