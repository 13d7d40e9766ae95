package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const googleIssuerURL = "https://accounts.google.com"

// Identity is the verified subset of a Google ID token's claims that the
// application cares about.
type Identity struct {
	SubjectID string // Google's stable "sub" claim — used as our user primary key
	Email     string
	Name      string
}

// IdentityVerifier validates a raw ID token from an identity provider and
// extracts the verified identity. The production implementation talks to
// Google; tests substitute a stub.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

// GoogleVerifier validates Google ID tokens using Google's OIDC discovery
// document and published signing keys.
//
// The heavy lifting — key fetch and caching, signature check, expiry check,
// audience check against our client ID — is delegated to go-oidc. Anything
// that fails verification fails closed: we never accept a token we could not
// fully validate, including when Google's key endpoint is unreachable.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier builds a GoogleVerifier for the given OAuth client ID.
// It performs OIDC discovery against accounts.google.com at construction
// time, so it needs network access at startup.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("auth: Google client ID must not be empty")
	}

	provider, err := oidc.NewProvider(ctx, googleIssuerURL)
	if err != nil {
		return nil, fmt.Errorf("auth: discovering Google OIDC provider: %w", err)
	}

	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify checks the raw ID token's signature, expiry, and audience, then
// extracts the subject, email, and display name.
func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("auth: verifying Google ID token: %w", err)
	}

	var c struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("auth: parsing Google ID token claims: %w", err)
	}

	if idToken.Subject == "" {
		return nil, fmt.Errorf("auth: Google ID token has no subject")
	}

	return &Identity{
		SubjectID: idToken.Subject,
		Email:     c.Email,
		Name:      c.Name,
	}, nil
}
