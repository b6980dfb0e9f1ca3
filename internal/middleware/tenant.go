package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bookablehq/bookable-core/internal/services"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// TenantResolver derives the one effective tenant identity for each request
// and binds a scoped handle to it. It runs after SessionAuth; the effective
// tenant is the session's home tenant, or the impersonated tenant for an
// operator with an active override. Client-supplied tenant identifiers are
// never trusted.
type TenantResolver struct {
	tenants *services.TenantLookup
	gdb     *gorm.DB
}

// NewTenantResolver creates a resolver.
func NewTenantResolver(tenants *services.TenantLookup, gdb *gorm.DB) *TenantResolver {
	return &TenantResolver{tenants: tenants, gdb: gdb}
}

// Resolve is the middleware entry point.
func (tr *TenantResolver) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok {
			// Reaching here without a session is a wiring defect; fail
			// closed rather than fall through to any default scope.
			log.Error().Str("path", r.URL.Path).Msg("Tenant resolution without session")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		effective := sess.EffectiveTenantID()
		if effective == uuid.Nil {
			log.Error().Str("session_id", sess.ID).Msg("Session has no resolvable tenant")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// A client-supplied tenant id that differs from the session's is an
		// authorization error, rejected rather than silently corrected.
		if hdr := r.Header.Get("X-Tenant-ID"); hdr != "" && hdr != effective.String() {
			log.Warn().
				Str("session_id", sess.ID).
				Str("requested_tenant", hdr).
				Msg("Client attempted to override tenant scope")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		impersonating := sess.Impersonation != nil

		// Re-validate the effective tenant on every request; a tenant
		// suspended mid-session fails here instead of being tolerated.
		tenant, err := tr.tenants.GetByID(r.Context(), effective)
		if err != nil {
			log.Warn().Err(err).
				Str("tenant_id", effective.String()).
				Bool("impersonating", impersonating).
				Msg("Effective tenant not resolvable")
			if impersonating {
				writeError(w, http.StatusConflict, "impersonated tenant no longer exists")
			} else {
				writeError(w, http.StatusForbidden, "forbidden")
			}
			return
		}

		if tenant.Suspended && isMutating(r.Method) {
			if impersonating {
				writeError(w, http.StatusForbidden, "tenant is suspended; mutations are blocked")
			} else {
				writeError(w, http.StatusForbidden, "forbidden")
			}
			return
		}

		scope := tenantdb.Scope{
			UserID:        sess.UserID,
			TenantID:      effective,
			Suspended:     tenant.Suspended,
			Impersonating: impersonating,
		}
		if impersonating {
			scope.CorrelationID = sess.Impersonation.CorrelationID
		}

		handle, err := tenantdb.ForTenant(tr.gdb, effective)
		if err != nil {
			log.Error().Err(err).Str("tenant_id", effective.String()).Msg("Failed to bind tenant handle")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		ctx := tenantdb.WithScope(r.Context(), scope)
		ctx = tenantdb.WithDB(ctx, handle)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
