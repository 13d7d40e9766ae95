package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"codewhisperer/internal/ai"
	"codewhisperer/internal/apperror"
	"codewhisperer/internal/model"
	"codewhisperer/internal/repository"
)

// Input caps. Code mirrors the persistence layer's text columns; the user
// context cap bounds free text that is persisted verbatim and echoed into
// the AI prompt.
const (
	MaxCodeLength        = 100000 // ~100KB of code
	MaxLanguageLength    = 50
	MaxUserContextLength = 4000
)

// SnippetService owns snippet business rules: validation, ownership
// enforcement, and the analyze-then-save composition.
type SnippetService struct {
	repo     repository.SnippetRepository
	reviewer ai.Reviewer
	logger   *slog.Logger
}

func NewSnippetService(repo repository.SnippetRepository, reviewer ai.Reviewer, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:     repo,
		reviewer: reviewer,
		logger:   logger,
	}
}

// validateContent checks the required snippet fields shared by every
// creation path.
func validateContent(codeContent, language string) error {
	if strings.TrimSpace(codeContent) == "" {
		return apperror.ValidationFailed("codeContent", "code content is required")
	}
	if len(codeContent) > MaxCodeLength {
		return apperror.ValidationFailed("codeContent",
			fmt.Sprintf("code content must be %d characters or less", MaxCodeLength))
	}
	if strings.TrimSpace(language) == "" {
		return apperror.ValidationFailed("language", "language is required")
	}
	if len(language) > MaxLanguageLength {
		return apperror.ValidationFailed("language",
			fmt.Sprintf("language must be %d characters or less", MaxLanguageLength))
	}
	return nil
}

// Create validates and saves a plain snippet (no analysis attached).
func (s *SnippetService) Create(ctx context.Context, authorID, codeContent, language string) (*model.Snippet, error) {
	if err := validateContent(codeContent, language); err != nil {
		return nil, err
	}

	// Fields are stored exactly as submitted; trimming happens only inside
	// the emptiness checks above.
	snippet := &model.Snippet{
		CodeContent: codeContent,
		Language:    language,
		AuthorID:    authorID,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("authorID", authorID),
		slog.String("language", snippet.Language),
	)

	return snippet, nil
}

// AnalyzeAndCreate runs the AI review and, only if it succeeds, persists a
// new snippet carrying the analysis.
//
// Atomicity here is application-level ordering, not a database transaction:
// the review happens first, and any Upstream or MalformedResponse failure
// returns before a write is attempted, so a failed analysis never leaves a
// partially written snippet behind.
func (s *SnippetService) AnalyzeAndCreate(ctx context.Context, authorID, codeContent, language, userContext string) (*model.Snippet, error) {
	if err := validateContent(codeContent, language); err != nil {
		return nil, err
	}
	if len(userContext) > MaxUserContextLength {
		return nil, apperror.ValidationFailed("userContext",
			fmt.Sprintf("context must be %d characters or less", MaxUserContextLength))
	}

	analysis, err := s.reviewer.Review(ctx, codeContent, language, userContext)
	if err != nil {
		s.logger.Error("AI review failed",
			slog.String("authorID", authorID),
			slog.String("language", language),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("analyzing snippet: %w", err)
	}

	snippet := &model.Snippet{
		CodeContent: codeContent,
		Language:    language,
		AIAnalysis:  analysis,
		AuthorID:    authorID,
	}
	if userContext != "" {
		snippet.UserContext = &userContext
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to save analyzed snippet",
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving analyzed snippet: %w", err)
	}

	s.logger.Info("snippet analyzed and saved",
		slog.String("id", snippet.ID),
		slog.String("authorID", authorID),
	)

	return snippet, nil
}

// ListByOwner returns the caller's snippets, newest first. Never returns a
// snippet belonging to anyone else — scoping happens in the query itself.
func (s *SnippetService) ListByOwner(ctx context.Context, ownerID string) ([]model.Snippet, error) {
	snippets, err := s.repo.ListByAuthor(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// GetOwned fetches a single snippet, enforcing ownership.
func (s *SnippetService) GetOwned(ctx context.Context, id, ownerID string) (*model.Snippet, error) {
	snippet, err := s.fetchOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return snippet, nil
}

// UpdateFields describes a partial update. Nil fields are left unchanged;
// only code content, language, and the analysis are mutable.
type UpdateFields struct {
	CodeContent *string
	Language    *string
	AIAnalysis  *model.Analysis
}

// Update applies a partial update to a snippet the caller owns.
// Fails NotFound if the id doesn't exist and Forbidden if the caller is not
// the author; in the Forbidden case the record is never touched.
func (s *SnippetService) Update(ctx context.Context, id, ownerID string, fields UpdateFields) (*model.Snippet, error) {
	snippet, err := s.fetchOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if fields.CodeContent != nil {
		if strings.TrimSpace(*fields.CodeContent) == "" {
			return nil, apperror.ValidationFailed("codeContent", "code content must not be empty")
		}
		if len(*fields.CodeContent) > MaxCodeLength {
			return nil, apperror.ValidationFailed("codeContent",
				fmt.Sprintf("code content must be %d characters or less", MaxCodeLength))
		}
		snippet.CodeContent = *fields.CodeContent
	}
	if fields.Language != nil {
		if strings.TrimSpace(*fields.Language) == "" {
			return nil, apperror.ValidationFailed("language", "language must not be empty")
		}
		if len(*fields.Language) > MaxLanguageLength {
			return nil, apperror.ValidationFailed("language",
				fmt.Sprintf("language must be %d characters or less", MaxLanguageLength))
		}
		snippet.Language = *fields.Language
	}
	if fields.AIAnalysis != nil {
		snippet.AIAnalysis = fields.AIAnalysis
	}

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", slog.String("id", id), slog.String("ownerID", ownerID))

	return snippet, nil
}

// Delete removes a snippet the caller owns, with the same ownership rules
// as Update.
func (s *SnippetService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.fetchOwned(ctx, id, ownerID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting snippet: %w", err)
	}

	s.logger.Info("snippet deleted", slog.String("id", id), slog.String("ownerID", ownerID))
	return nil
}

// fetchOwned loads a snippet and verifies the caller is its author.
// NotFound when the id doesn't exist; Forbidden when it exists but belongs
// to someone else.
func (s *SnippetService) fetchOwned(ctx context.Context, id, ownerID string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if snippet.AuthorID != ownerID {
		return nil, apperror.Forbidden("you do not own this snippet")
	}

	return snippet, nil
}
