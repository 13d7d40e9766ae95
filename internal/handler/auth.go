package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"codewhisperer/internal/auth"
	"codewhisperer/internal/service"
)

// AuthHandler serves the sign-in, session-check, and logout routes.
//
//	POST /api/auth/google-signin → verify Google ID token, upsert user, set session cookie
//	GET  /api/auth/me            → return the signed-in user
//	POST /api/auth/logout        → clear the session cookie
type AuthHandler struct {
	auths        *service.AuthService
	secureCookie bool // Secure flag on the session cookie; true in production
	logger       *slog.Logger
}

func NewAuthHandler(auths *service.AuthService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auths:        auths,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type signInRequest struct {
	Token string `json:"token"`
}

// HandleGoogleSignIn completes sign-in from a Google ID token the browser
// obtained via Google Identity Services.
//
// HTTP: POST /api/auth/google-signin
// BODY: {"token": "<google id token>"}
//
// On success the session JWT is set as an HttpOnly cookie; the browser sends
// it back automatically and page scripts can never read it. Any verification
// failure is a plain 401 — the client learns nothing about why.
func (h *AuthHandler) HandleGoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("sign-in: invalid JSON body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "invalid identity token",
		})
		return
	}

	result, err := h.auths.SignInWithGoogle(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Authentication successful",
		"user":    result.User,
	})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/auth/me (session required)
//
// 404 covers the rare "user vanished" case: a validly signed session whose
// user row no longer exists.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but fail safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid session required"})
		return
	}

	user, err := h.auths.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Sessions are stateless, so this only deletes the client's copy; a token
// captured elsewhere stays cryptographically valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
