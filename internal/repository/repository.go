// Package repository declares the persistence interfaces the service layer
// depends on. The sqlite subpackage provides the concrete implementation;
// tests substitute in-memory mocks.
package repository

import (
	"context"

	"codewhisperer/internal/model"
)

type UserRepository interface {
	// Upsert creates the user on first sign-in or refreshes the display name
	// on subsequent sign-ins. ID and email are immutable once set.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	// ListByAuthor returns the author's snippets newest first.
	ListByAuthor(ctx context.Context, authorID string) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}
