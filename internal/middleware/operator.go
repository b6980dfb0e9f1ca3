package middleware

import (
	"net/http"

	"github.com/bookablehq/bookable-core/internal/models"
)

// RequireOperator gates routes on the session's operator role. This is a
// coarse filter over cached session claims; security-critical transitions
// (impersonation start) re-check the authoritative user record themselves.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok || sess.Role != models.RoleOperator {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
