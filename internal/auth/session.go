// Package auth provides session token handling and Google identity
// verification for the API.
//
// AUTHENTICATION FLOW:
//  1. The browser obtains a Google ID token (Google Identity Services widget)
//     and POSTs it to /api/auth/google-signin
//  2. The server verifies the ID token against Google's published keys,
//     upserts the user, and issues its own session JWT
//  3. The session JWT lives in an HttpOnly "session_token" cookie for 7 days
//  4. On protected routes, middleware reads the cookie, verifies the JWT,
//     and puts the userID into the request context
//
// Sessions are never stored server-side. Possession of a validly signed,
// unexpired token is the sole authorization proof, so logout only clears the
// client's cookie — a copied token stays valid until natural expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration is how long an issued session token stays valid.
const SessionDuration = 7 * 24 * time.Hour

const issuer = "code-whisperer"

// TokenService issues and verifies session JWTs.
//
// It holds the HMAC secret used for both signing and verification. A weak or
// missing secret is a deployment mistake, so the constructor rejects it and
// main treats that as fatal — there is no per-request error path for it.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; the user ID rides in the standard
// "sub" (Subject) claim.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a session token for the given userID, valid for
// SessionDuration (7 days).
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueWithDuration(userID, SessionDuration)
}

// IssueWithDuration creates a token with a custom expiry. Used by tests to
// mint already-expired tokens.
func (s *TokenService) IssueWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a session token string and returns the userID
// it carries. There are no partial-validity states: a bad signature, a
// malformed token, a wrong issuer, and an expired token all fail the same way.
//
// jwt.WithValidMethods pins the algorithm to HS256 so a token claiming
// alg=none (or an RSA token) is rejected outright.
func (s *TokenService) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	userID := c.Subject
	if userID == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return userID, nil
}
