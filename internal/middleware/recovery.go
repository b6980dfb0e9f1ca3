package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Recovery middleware recovers from panics
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				evt := log.Error().
					Interface("error", err).
					Str("method", r.Method).
					Str("path", r.URL.Path)
				if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
					evt = evt.Str("request_id", reqID)
				}
				evt.Msg("Panic recovered")

				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
