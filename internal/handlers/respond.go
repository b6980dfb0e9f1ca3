package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps data-layer errors to HTTP responses. Tenant users never
// see the isolation taxonomy: rows outside their tenant look like missing
// rows, and authorization failures degrade to a generic message. Unscoped
// access and scope conflicts are programming defects; they surface as 500
// and are logged for alerting.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, tenantdb.ErrUnauthorized), errors.Is(err, tenantdb.ErrRootRequired):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not authorized"})
	case errors.Is(err, tenantdb.ErrTenantSuspended):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not authorized"})
	case errors.Is(err, tenantdb.ErrUnscoped), errors.Is(err, tenantdb.ErrScopeConflict):
		log.Error().Err(err).
			Str("path", r.URL.Path).
			Msg("Isolation invariant violated; a caller bypassed the scoped access path")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// requestDB pulls the request's scoped handle; absence means the route was
// mounted outside the resolver chain, which must fail closed.
func requestDB(w http.ResponseWriter, r *http.Request) (*tenantdb.DB, bool) {
	db, ok := tenantdb.FromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Handler reached without a scoped handle")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return nil, false
	}
	return db, true
}
