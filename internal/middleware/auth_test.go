package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wrenfield/polarkit/internal/database"
	"github.com/wrenfield/polarkit/internal/handler"
	"github.com/wrenfield/polarkit/internal/store"
)

func newAuthFixture(t *testing.T) (*store.UserStore, *store.SessionStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewUserStore(db), store.NewSessionStore(db)
}

func TestRequireAuthRejectsMissingCookie(t *testing.T) {
	_, sessions := newAuthFixture(t)

	called := false
	h := RequireAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/purchases", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if called {
		t.Error("next handler must not run without a session")
	}
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	_, sessions := newAuthFixture(t)

	h := RequireAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/purchases", nil)
	req.AddCookie(&http.Cookie{Name: handler.SessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthPopulatesUserID(t *testing.T) {
	users, sessions := newAuthFixture(t)

	user, err := users.Create("auth@example.com", "Auth")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := sessions.Create(user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var gotID int64
	h := RequireAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = handler.UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/purchases", nil)
	req.AddCookie(&http.Cookie{Name: handler.SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotID != user.ID {
		t.Errorf("user ID in context = %d, want %d", gotID, user.ID)
	}
}

func TestOptionalAuthPassesAnonymousThrough(t *testing.T) {
	_, sessions := newAuthFixture(t)

	var hadUser bool
	h := OptionalAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadUser = handler.UserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/purchases", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if hadUser {
		t.Error("anonymous request must not carry a user ID")
	}
}
