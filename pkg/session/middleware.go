package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/troopbase/troopbase/pkg/access"
	"github.com/troopbase/troopbase/pkg/observability"
)

// CookieName is the session cookie used by browser clients
const CookieName = "troop_session"

// Middleware resolves the request's session to a principal
type Middleware struct {
	store  Store
	logger *observability.Logger
}

// NewMiddleware creates session middleware
func NewMiddleware(store Store, logger *observability.Logger) *Middleware {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Middleware{store: store, logger: logger}
}

// Handler attaches the authenticated principal to the request context.
// Requests without a session, or with a stale one, continue unauthenticated;
// the route guards downstream reject them where it matters. A failed Redis
// read also continues unauthenticated rather than failing the request here,
// because public routes must not depend on Redis.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := extractSessionID(r)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.store.Get(r.Context(), sessionID)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				m.logger.WithError(err).Warn("session lookup failed")
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := access.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractSessionID pulls the session ID from the Authorization header or the
// session cookie, in that order
func extractSessionID(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}
