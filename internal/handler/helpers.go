package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oshxona-pos/api/internal/middleware"
	"github.com/oshxona-pos/api/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the order core's sentinel errors onto HTTP
// status codes. Anything unrecognized is a 500 with the detail kept
// out of the response body.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPermission), errors.Is(err, service.ErrForbiddenTransition):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrIllegalTransition), errors.Is(err, service.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// actorFromRequest resolves the authenticated actor. Returns false and
// writes a 401 when the request carries no claims.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return service.Actor{}, false
	}
	return service.Actor{ID: claims.UserID, Role: claims.ClassifiedRole()}, true
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
