package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/service"
)

// ctxKeyUserID carries the authenticated user ID through the request
// context.
type ctxKeyUserID struct{}

// userIDFrom extracts the authenticated user ID from the context.
func userIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKeyUserID{}).(int64)
	return id, ok
}

// SessionMiddleware resolves the session cookie into a user ID and
// stores it in the request context. Requests without a valid session
// pass through unauthenticated; RequireAuth enforces presence.
type SessionMiddleware struct {
	sessions   *service.SessionService
	cookieName string
	logger     zerolog.Logger
}

// NewSessionMiddleware creates a new SessionMiddleware.
func NewSessionMiddleware(sessions *service.SessionService, cookieName string, logger zerolog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger.With().Str("component", "session_middleware").Logger(),
	}
}

// Resolve is the middleware that attaches the user ID when a valid
// session cookie is present.
func (m *SessionMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.sessions.Resolve(r.Context(), cookie.Value)
		if err != nil {
			// Expired or unknown session: treat as unauthenticated.
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects unauthenticated requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userIDFrom(r.Context()); !ok {
			writeMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
