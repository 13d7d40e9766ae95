package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"codewhisperer/internal/apperror"
	"codewhisperer/internal/model"
	"codewhisperer/internal/repository"
)

// compile-time check that *DB implements repository.SnippetRepository
var _ repository.SnippetRepository = (*DB)(nil)

// analysisToColumn JSON-encodes an analysis for the ai_analysis TEXT column.
// A nil analysis maps to SQL NULL.
func analysisToColumn(a *model.Analysis) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding analysis: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// columnToAnalysis decodes the ai_analysis column back into a model value.
func columnToAnalysis(col sql.NullString) (*model.Analysis, error) {
	if !col.Valid {
		return nil, nil
	}
	var a model.Analysis
	if err := json.Unmarshal([]byte(col.String), &a); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}
	return &a, nil
}

func contextToColumn(c *string) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *c, Valid: true}
}

func columnToContext(col sql.NullString) *string {
	if !col.Valid {
		return nil
	}
	s := col.String
	return &s
}

// scanSnippet reads one row into a Snippet. Column order must match the
// SELECT lists below.
func scanSnippet(scan func(dest ...any) error) (*model.Snippet, error) {
	var (
		s           model.Snippet
		userContext sql.NullString
		aiAnalysis  sql.NullString
	)
	if err := scan(
		&s.ID,
		&s.CodeContent,
		&s.Language,
		&userContext,
		&aiAnalysis,
		&s.AuthorID,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.UserContext = columnToContext(userContext)

	analysis, err := columnToAnalysis(aiAnalysis)
	if err != nil {
		return nil, err
	}
	s.AIAnalysis = analysis

	return &s, nil
}

// Create inserts a new snippet, generating its id and timestamps.
//
// xid ids are short, URL-safe, and sortable by creation time, which makes
// them a usable secondary ordering key when two snippets share a
// created_at timestamp.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()

	now := time.Now()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	analysisCol, err := analysisToColumn(snippet.AIAnalysis)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, code_content, language, user_context, ai_analysis, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.CodeContent,
		snippet.Language,
		contextToColumn(snippet.UserContext),
		analysisCol,
		snippet.AuthorID,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a single snippet by its id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, code_content, language, user_context, ai_analysis, author_id, created_at, updated_at
		 FROM snippets
		 WHERE id = ?`,
		id,
	)

	snippet, err := scanSnippet(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return snippet, nil
}

// ListByAuthor returns all of one author's snippets, newest first. The id
// tiebreak keeps the order stable when timestamps collide.
func (db *DB) ListByAuthor(ctx context.Context, authorID string) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, code_content, language, user_context, ai_analysis, author_id, created_at, updated_at
		 FROM snippets
		 WHERE author_id = ?
		 ORDER BY created_at DESC, id DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets for %s: %w", authorID, err)
	}
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// Update rewrites the mutable columns of a snippet. author_id, id, and
// created_at never change after creation.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now()

	analysisCol, err := analysisToColumn(snippet.AIAnalysis)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET code_content = ?, language = ?, user_context = ?, ai_analysis = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.CodeContent,
		snippet.Language,
		contextToColumn(snippet.UserContext),
		analysisCol,
		snippet.UpdatedAt,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	return nil
}

// Delete removes a snippet by its id.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}
