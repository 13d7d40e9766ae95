package auth

import (
	"context"
	"net/http"
)

// SessionCookieName is the cookie carrying the session JWT.
const SessionCookieName = "session_token"

// contextKey is an unexported type used for context keys in this package, so
// no other package can read or shadow the userID value we store.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is the request-level guard wrapping every snippet and analysis
// route. The state machine per request is short:
//
//	cookie present? → signature valid & unexpired? → authenticated
//
// A failure at either check short-circuits to 401 without running the
// downstream handler, so an unauthenticated request can never cause a store
// mutation. Success attaches the verified userID to the request context.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid session required"}` + "\n"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) if no valid session was attached.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the session cookie and verifies the JWT inside it.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}

	return tokens.Verify(cookie.Value)
}
