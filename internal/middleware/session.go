package middleware

import (
	"context"
	"net/http"

	"github.com/otcheredev/lab-report-portal/internal/session"
	"github.com/rs/zerolog/log"
)

type contextKey string

const SessionKey contextKey = "session"

// Sessions loads the caller's session into the request context
func Sessions(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := manager.Load(r)
			if err != nil {
				log.Error().Err(err).Msg("Failed to load session")
				writeError(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*session.Session)
	return sess, ok
}
