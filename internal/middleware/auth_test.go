package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"audioshelf/internal/domain"
	"audioshelf/internal/service"
	"audioshelf/internal/testutil"
)

func newSessionMiddleware(t *testing.T) (func(http.Handler) http.Handler, *testutil.MockSessionRepository, *service.AuthService) {
	t.Helper()
	userRepo := testutil.NewMockUserRepository()
	sessionRepo := testutil.NewMockSessionRepository()
	auth := service.NewAuthService(userRepo, sessionRepo, 30*24*time.Hour, 6*time.Hour)
	return Session(auth, false), sessionRepo, auth
}

// echoSession replies 200 and records whether a session reached the handler.
func echoSession(got **domain.SessionInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, ok := GetSession(r.Context()); ok {
			*got = session
		}
		w.WriteHeader(http.StatusOK)
	})
}

func seedSession(sessionRepo *testutil.MockSessionRepository, token string, lastAccessed time.Time, admin bool) {
	sessionRepo.Users["user-1"] = &domain.User{ID: "user-1", Username: "alice", Admin: admin}
	sessionRepo.Sessions[token] = &domain.Session{
		Token:        token,
		UserID:       "user-1",
		LastAccessed: lastAccessed,
	}
}

func TestSession_NoCookie(t *testing.T) {
	mw, _, _ := newSessionMiddleware(t)

	var got *domain.SessionInfo
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	mw(echoSession(&got)).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected anonymous request to pass through, got %d", w.Code)
	}
	if got != nil {
		t.Error("Expected no session in context")
	}
}

func TestSession_ValidCookie(t *testing.T) {
	mw, sessionRepo, _ := newSessionMiddleware(t)
	seedSession(sessionRepo, "tok", time.Now(), true)

	var got *domain.SessionInfo
	req := testutil.NewRequestWithCookie(t, http.MethodGet, "/", CookieName, "tok")
	w := httptest.NewRecorder()

	mw(echoSession(&got)).ServeHTTP(w, req)

	if got == nil {
		t.Fatal("Expected session in context")
	}
	if got.UserID != "user-1" || got.Username != "alice" || !got.Admin {
		t.Errorf("Unexpected session info: %+v", got)
	}

	// Fresh session: no cookie refresh.
	if len(w.Result().Cookies()) != 0 {
		t.Error("Expected no Set-Cookie for a fresh session")
	}
}

func TestSession_UnknownTokenClearsCookie(t *testing.T) {
	mw, _, _ := newSessionMiddleware(t)

	var got *domain.SessionInfo
	req := testutil.NewRequestWithCookie(t, http.MethodGet, "/", CookieName, "stale")
	w := httptest.NewRecorder()

	mw(echoSession(&got)).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected pass through, got %d", w.Code)
	}
	if got != nil {
		t.Error("Expected no session in context")
	}

	cookie := testutil.AssertCookie(t, w, CookieName)
	if cookie == nil {
		t.Fatal("Expected expired cookie to be set")
	}
	if cookie.Value != "" || cookie.MaxAge != -1 {
		t.Errorf("Expected clearing cookie, got value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
}

func TestSession_ExpiredSessionClearsCookie(t *testing.T) {
	mw, sessionRepo, _ := newSessionMiddleware(t)
	seedSession(sessionRepo, "tok", time.Now().Add(-31*24*time.Hour), false)

	var got *domain.SessionInfo
	req := testutil.NewRequestWithCookie(t, http.MethodGet, "/", CookieName, "tok")
	w := httptest.NewRecorder()

	mw(echoSession(&got)).ServeHTTP(w, req)

	if got != nil {
		t.Error("Expected expired session to resolve as anonymous")
	}
	if _, ok := sessionRepo.Sessions["tok"]; ok {
		t.Error("Expected expired session row to be deleted")
	}
	cookie := testutil.AssertCookie(t, w, CookieName)
	if cookie != nil && cookie.MaxAge != -1 {
		t.Errorf("Expected clearing cookie, got maxAge=%d", cookie.MaxAge)
	}
}

func TestSession_RenewalRefreshesCookie(t *testing.T) {
	mw, sessionRepo, auth := newSessionMiddleware(t)
	seedSession(sessionRepo, "tok", time.Now().Add(-7*time.Hour), false)

	var got *domain.SessionInfo
	req := testutil.NewRequestWithCookie(t, http.MethodGet, "/", CookieName, "tok")
	w := httptest.NewRecorder()

	mw(echoSession(&got)).ServeHTTP(w, req)
	auth.Close()

	if got == nil {
		t.Fatal("Expected session in context")
	}

	cookie := testutil.AssertCookie(t, w, CookieName)
	if cookie == nil {
		t.Fatal("Expected refreshed cookie")
	}
	if cookie.Value != "tok" {
		t.Errorf("Expected refreshed cookie to carry the same token, got %q", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("Expected HttpOnly cookie")
	}
	if cookie.Expires.Before(time.Now().Add(29 * 24 * time.Hour)) {
		t.Errorf("Expected refreshed expiry ~30 days out, got %v", cookie.Expires)
	}
}

func TestRequireSession(t *testing.T) {
	t.Run("rejects_anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be reached")
		})).ServeHTTP(w, req)

		testutil.AssertJSONError(t, w, http.StatusUnauthorized, "server-authentication--not-logged-in")
	})

	t.Run("passes_authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithSession(req.Context(), testutil.NewTestSessionInfo("user-1", false)))
		w := httptest.NewRecorder()

		called := false
		RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(w, req)

		if !called {
			t.Error("Expected handler to be reached")
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Run("rejects_anonymous_with_401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be reached")
		})).ServeHTTP(w, req)

		testutil.AssertStatusCode(t, w, http.StatusUnauthorized)
	})

	t.Run("rejects_non_admin_with_403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithSession(req.Context(), testutil.NewTestSessionInfo("user-1", false)))
		w := httptest.NewRecorder()

		RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be reached")
		})).ServeHTTP(w, req)

		testutil.AssertJSONError(t, w, http.StatusForbidden, "server-authentication--not-admin")
	})

	t.Run("passes_admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithSession(req.Context(), testutil.NewTestSessionInfo("user-1", true)))
		w := httptest.NewRecorder()

		called := false
		RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(w, req)

		if !called {
			t.Error("Expected handler to be reached")
		}
	})
}
