package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type sessionContextKey string

const sessionIDKey sessionContextKey = "session_id"

// SessionHeader carries the register/tab identifier. Each browser tab
// generates its own id, which partitions cart and cache storage so two
// tabs never observe each other's state.
const SessionHeader = "X-Session-ID"

// SessionMiddleware resolves the session id from the request header,
// minting a fresh one for clients that did not send any. The resolved id
// is echoed back so the client can persist it.
func SessionMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				id = uuid.New().String()
			}

			w.Header().Set(SessionHeader, id)
			ctx := context.WithValue(r.Context(), sessionIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID extracts the session id from the request context.
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}
