package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"codewhisperer/internal/apperror"
	"codewhisperer/internal/model"
	"codewhisperer/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Upsert creates the user on first sign-in or refreshes the name on
// subsequent sign-ins.
//
// The Google subject id is the primary key, so "does this user exist" is a
// straight lookup. On the update path only name and updated_at change —
// id and email are immutable, which keeps repeated identical sign-ins
// idempotent and makes email a stable contact field even if the user
// swaps addresses on Google.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	var existing model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = ?`,
		user.ID,
	).Scan(&existing.ID, &existing.Email, &existing.Name, &existing.CreatedAt, &existing.UpdatedAt)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user %s: %w", user.ID, err)
	}

	if err == nil {
		// Existing user: refresh the display name only.
		user.Email = existing.Email
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
			user.Name,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	// First sign-in: create the row.
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, err)
	}

	return nil
}

// GetUserByID retrieves a user by their Google subject id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}
