// Package service contains the business logic layer: validation, ownership
// rules, and orchestration between the stores, the identity verifier, and
// the AI reviewer. Handlers stay HTTP-only; repositories stay SQL-only.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"codewhisperer/internal/apperror"
	"codewhisperer/internal/auth"
	"codewhisperer/internal/model"
	"codewhisperer/internal/repository"
)

// AuthService orchestrates Google sign-in: verify the ID token, upsert the
// user, issue a session token.
type AuthService struct {
	users    repository.UserRepository
	verifier auth.IdentityVerifier
	tokens   *auth.TokenService
	logger   *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	verifier auth.IdentityVerifier,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
		logger:   logger,
	}
}

// AuthResult bundles the signed-in user and the freshly issued session token
// so the handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignInWithGoogle verifies a Google ID token, creates or refreshes the user
// record, and issues a 7-day session token.
//
// Verification failures of any kind — bad signature, wrong audience,
// expired, malformed, Google's key set unreachable — collapse into a single
// Unauthorized error. Repeated sign-ins with the same subject are idempotent:
// they update the display name only and never duplicate the user row.
func (s *AuthService) SignInWithGoogle(ctx context.Context, rawIDToken string) (*AuthResult, error) {
	if rawIDToken == "" {
		return nil, apperror.Unauthorized("identity token is required")
	}

	identity, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		s.logger.Warn("Google ID token verification failed", slog.String("error", err.Error()))
		return nil, apperror.Unauthorized("invalid identity token")
	}

	user := &model.User{
		ID:    identity.SubjectID,
		Email: identity.Email,
		Name:  identity.Name,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user %s: %w", identity.SubjectID, err)
	}

	s.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given id. Used by /api/auth/me after
// the middleware has verified the session.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}
