package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bookablehq/bookable-core/internal/auth"
	"github.com/bookablehq/bookable-core/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionAuth authenticates requests by unwrapping the bearer token into a
// server-side session. The token names only a session id; the user, home
// tenant, and any impersonation override come from the session store.
func SessionAuth(store session.Store, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := auth.ParseSessionToken(secret, tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			sess, err := store.Get(r.Context(), claims.SessionID)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					log.Error().Err(err).Msg("Session store lookup failed")
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Token/session mismatch means a stolen or replayed token.
			if sess.UserID != claims.UserID {
				log.Warn().
					Str("session_id", sess.ID).
					Msg("Session token user mismatch")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession stores an authenticated session in the context
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// GetSession extracts the authenticated session from context
func GetSession(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*session.Session)
	return sess, ok
}
