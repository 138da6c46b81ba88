package middleware

import (
	"context"
	"net/http"
	"time"

	"audioshelf/internal/domain"
	"audioshelf/internal/observability"
	"audioshelf/internal/service"
)

type contextKey string

const sessionKey contextKey = "session"

// CookieName is the session cookie's name.
const CookieName = "audioshelf_session"

// NewSessionCookie builds the session cookie handed out at login and
// refreshed on sliding renewal. The expiry must always match what the server
// will conclude on the next request.
func NewSessionCookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie builds a cookie that clears the session on the client.
func ExpiredSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Session resolves the session cookie on every request and, when it maps to
// a live session, attaches the SessionInfo to the request context. Missing,
// malformed, or expired tokens let the request continue anonymously; routes
// that need a session gate on RequireSession. When the sliding window
// renewed, the refreshed cookie is set on this response so client and server
// never disagree about validity.
func Session(auth *service.AuthService, cookieSecure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			result, err := auth.Resolve(r.Context(), cookie.Value)
			if err != nil {
				// Storage trouble resolves to anonymous rather than
				// failing the whole request.
				observability.FromContext(r.Context()).Error("session resolution failed",
					"error", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			if result.Info == nil {
				http.SetCookie(w, ExpiredSessionCookie(cookieSecure))
				next.ServeHTTP(w, r)
				return
			}

			if result.Renewed {
				http.SetCookie(w, NewSessionCookie(result.Info.Token, time.Now().Add(auth.TTL()), cookieSecure))
			}

			ctx := context.WithValue(r.Context(), sessionKey, result.Info)
			ctx = observability.WithUserID(ctx, result.Info.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSession(r.Context()); !ok {
			http.Error(w, `{"error":"server-authentication--not-logged-in"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and authenticated
// non-admin requests with 403. The admin flag was read from the user row
// during this request's resolve, so a revoked privilege takes effect here.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := GetSession(r.Context())
		if !ok {
			http.Error(w, `{"error":"server-authentication--not-logged-in"}`, http.StatusUnauthorized)
			return
		}
		if !session.Admin {
			http.Error(w, `{"error":"server-authentication--not-admin"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession extracts the resolved session from the request context.
func GetSession(ctx context.Context) (*domain.SessionInfo, bool) {
	session, ok := ctx.Value(sessionKey).(*domain.SessionInfo)
	return session, ok
}

// WithSession attaches a session to a context; used by handler tests.
func WithSession(ctx context.Context, session *domain.SessionInfo) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}
