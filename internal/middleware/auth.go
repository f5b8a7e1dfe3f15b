package middleware

import (
	"net/http"

	"github.com/wrenfield/polarkit/internal/handler"
	"github.com/wrenfield/polarkit/internal/model"
	"github.com/wrenfield/polarkit/internal/store"
)

// RequireAuth validates the session cookie and populates the user ID in
// context. Unauthenticated requests get a JSON 401.
func RequireAuth(sessionStore *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromRequest(sessionStore, r)
			if sess == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "authentication required"}`))
				return
			}
			ctx := handler.WithUserID(r.Context(), sess.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth populates the user ID when a valid session cookie is present
// and passes the request through either way.
func OptionalAuth(sessionStore *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess := sessionFromRequest(sessionStore, r); sess != nil {
				r = r.WithContext(handler.WithUserID(r.Context(), sess.UserID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFromRequest(sessionStore *store.SessionStore, r *http.Request) *model.Session {
	cookie, err := r.Cookie(handler.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := sessionStore.GetByToken(cookie.Value)
	if err != nil {
		return nil
	}
	return sess
}
