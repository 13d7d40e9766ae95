package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"

	"codewhisperer/internal/apperror"
	"codewhisperer/internal/model"
)

// mockSnippetRepo is an in-memory stand-in for the SQLite repository.
type mockSnippetRepo struct {
	snippets map[string]*model.Snippet
	nextID   int
}

func newMockSnippetRepo() *mockSnippetRepo {
	return &mockSnippetRepo{snippets: make(map[string]*model.Snippet)}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	m.nextID++
	snippet.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	snippet, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *snippet
	return &result, nil
}

func (m *mockSnippetRepo) ListByAuthor(_ context.Context, authorID string) ([]model.Snippet, error) {
	result := []model.Snippet{}
	for _, s := range m.snippets {
		if s.AuthorID == authorID {
			result = append(result, *s)
		}
	}
	// Newest first; mock ids are sequential so sort by them descending.
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockSnippetRepo) Update(_ context.Context, snippet *model.Snippet) error {
	if _, ok := m.snippets[snippet.ID]; !ok {
		return apperror.NotFound("snippet", snippet.ID)
	}
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	return nil
}

// stubReviewer returns a canned analysis or a canned error.
type stubReviewer struct {
	analysis *model.Analysis
	err      error
	calls    int
}

func (r *stubReviewer) Review(_ context.Context, codeContent, language, userContext string) (*model.Analysis, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.analysis, nil
}

func newTestSnippetService(t *testing.T) (*SnippetService, *mockSnippetRepo, *stubReviewer) {
	t.Helper()
	repo := newMockSnippetRepo()
	reviewer := &stubReviewer{
		analysis: &model.Analysis{Bugs: "none", Style: "fine", Explanation: "does things"},
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewSnippetService(repo, reviewer, logger)
	return svc, repo, reviewer
}

func TestCreate_Success(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	snippet, err := svc.Create(context.Background(), "u1", "print(1)", "python")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.ID == "" {
		t.Error("expected snippet to have an ID")
	}
	if snippet.CodeContent != "print(1)" {
		t.Errorf("CodeContent = %q, want %q", snippet.CodeContent, "print(1)")
	}
	if snippet.AuthorID != "u1" {
		t.Errorf("AuthorID = %q, want %q", snippet.AuthorID, "u1")
	}
	if snippet.AIAnalysis != nil {
		t.Errorf("AIAnalysis = %+v, want nil on plain create", snippet.AIAnalysis)
	}
}

func TestCreate_FieldsStoredVerbatim(t *testing.T) {
	svc, repo, _ := newTestSnippetService(t)

	// Surrounding whitespace is legal content; nothing may normalize it.
	code := "  print(1)\n"
	lang := " Python 3 "

	snippet, err := svc.Create(context.Background(), "u1", code, lang)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snippet.Language != lang {
		t.Errorf("Language = %q, want %q", snippet.Language, lang)
	}
	if snippet.CodeContent != code {
		t.Errorf("CodeContent = %q, want %q", snippet.CodeContent, code)
	}

	stored, err := repo.GetByID(context.Background(), snippet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Language != lang {
		t.Errorf("stored Language = %q, want %q", stored.Language, lang)
	}
	if stored.CodeContent != code {
		t.Errorf("stored CodeContent = %q, want %q", stored.CodeContent, code)
	}
}

func TestAnalyzeAndCreate_LanguageStoredVerbatim(t *testing.T) {
	svc, repo, _ := newTestSnippetService(t)

	lang := " go "
	snippet, err := svc.AnalyzeAndCreate(context.Background(), "u1", "x := 1", lang, "")
	if err != nil {
		t.Fatalf("AnalyzeAndCreate() error = %v", err)
	}

	stored, err := repo.GetByID(context.Background(), snippet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Language != lang {
		t.Errorf("stored Language = %q, want %q", stored.Language, lang)
	}
}

func TestUpdate_LanguageStoredVerbatim(t *testing.T) {
	svc, repo, _ := newTestSnippetService(t)

	snippet, err := svc.Create(context.Background(), "u1", "print(1)", "python")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	lang := " Rust "
	if _, err := svc.Update(context.Background(), snippet.ID, "u1", UpdateFields{Language: &lang}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, err := repo.GetByID(context.Background(), snippet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Language != lang {
		t.Errorf("stored Language = %q, want %q", stored.Language, lang)
	}
}

func TestCreate_MissingCode(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	_, err := svc.Create(context.Background(), "u1", "   ", "python")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCreate_MissingLanguage(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	_, err := svc.Create(context.Background(), "u1", "print(1)", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCreate_CodeTooLong(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	_, err := svc.Create(context.Background(), "u1", strings.Repeat("a", MaxCodeLength+1), "python")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestAnalyzeAndCreate_Success(t *testing.T) {
	svc, repo, reviewer := newTestSnippetService(t)

	snippet, err := svc.AnalyzeAndCreate(context.Background(), "u1", "print(1)", "python", "prints numbers")
	if err != nil {
		t.Fatalf("AnalyzeAndCreate() error = %v", err)
	}

	if reviewer.calls != 1 {
		t.Errorf("reviewer called %d times, want 1", reviewer.calls)
	}
	if snippet.AIAnalysis == nil || snippet.AIAnalysis.Bugs != "none" {
		t.Errorf("AIAnalysis = %+v, want the reviewer's analysis", snippet.AIAnalysis)
	}
	if snippet.UserContext == nil || *snippet.UserContext != "prints numbers" {
		t.Errorf("UserContext = %v, want %q", snippet.UserContext, "prints numbers")
	}
	if len(repo.snippets) != 1 {
		t.Errorf("stored snippets = %d, want 1", len(repo.snippets))
	}
}

func TestAnalyzeAndCreate_EmptyContextStaysNil(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	snippet, err := svc.AnalyzeAndCreate(context.Background(), "u1", "print(1)", "python", "")
	if err != nil {
		t.Fatalf("AnalyzeAndCreate() error = %v", err)
	}
	if snippet.UserContext != nil {
		t.Errorf("UserContext = %q, want nil", *snippet.UserContext)
	}
}

func TestAnalyzeAndCreate_UpstreamFailureWritesNothing(t *testing.T) {
	svc, repo, reviewer := newTestSnippetService(t)
	reviewer.err = apperror.Upstream("AI provider unreachable", errors.New("dial tcp: timeout"))

	_, err := svc.AnalyzeAndCreate(context.Background(), "u1", "print(1)", "python", "")
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if len(repo.snippets) != 0 {
		t.Errorf("stored snippets = %d, want 0 after failed analysis", len(repo.snippets))
	}
}

func TestAnalyzeAndCreate_MalformedReplyWritesNothing(t *testing.T) {
	svc, repo, reviewer := newTestSnippetService(t)
	reviewer.err = apperror.MalformedAIResponse("AI reply was not valid JSON")

	_, err := svc.AnalyzeAndCreate(context.Background(), "u1", "print(1)", "python", "")
	if !errors.Is(err, apperror.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
	if len(repo.snippets) != 0 {
		t.Errorf("stored snippets = %d, want 0 after malformed reply", len(repo.snippets))
	}
}

func TestAnalyzeAndCreate_ValidationSkipsReviewer(t *testing.T) {
	svc, _, reviewer := newTestSnippetService(t)

	_, err := svc.AnalyzeAndCreate(context.Background(), "u1", "", "python", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if reviewer.calls != 0 {
		t.Errorf("reviewer called %d times on invalid input, want 0", reviewer.calls)
	}
}

func TestAnalyzeAndCreate_ContextTooLong(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	_, err := svc.AnalyzeAndCreate(context.Background(), "u1", "print(1)", "python",
		strings.Repeat("x", MaxUserContextLength+1))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestListByOwner_ScopedToOwner(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	svc.Create(ctx, "u1", "print(1)", "python")
	svc.Create(ctx, "u2", "print(2)", "python")
	svc.Create(ctx, "u1", "print(3)", "python")

	snippets, err := svc.ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("ListByOwner() returned %d snippets, want 2", len(snippets))
	}
	for _, s := range snippets {
		if s.AuthorID != "u1" {
			t.Errorf("ListByOwner leaked snippet owned by %q", s.AuthorID)
		}
	}
}

func TestUpdate_OwnerCanUpdate(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "u1", "print(1)", "python")

	newCode := "print(2)"
	updated, err := svc.Update(ctx, created.ID, "u1", UpdateFields{CodeContent: &newCode})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.CodeContent != "print(2)" {
		t.Errorf("CodeContent = %q, want %q", updated.CodeContent, "print(2)")
	}
	if updated.Language != "python" {
		t.Errorf("Language = %q, want unchanged %q", updated.Language, "python")
	}
}

func TestUpdate_NonOwnerForbiddenAndUnchanged(t *testing.T) {
	svc, repo, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "u1", "print(1)", "python")

	evil := "os.remove('/')"
	_, err := svc.Update(ctx, created.ID, "u2", UpdateFields{CodeContent: &evil})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}

	stored := repo.snippets[created.ID]
	if stored.CodeContent != "print(1)" {
		t.Errorf("snippet mutated by non-owner: %q", stored.CodeContent)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	_, err := svc.Update(context.Background(), "nonexistent", "u1", UpdateFields{})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDelete_OwnerCanDelete(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "u1", "print(1)", "python")

	if err := svc.Delete(ctx, created.ID, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	snippets, _ := svc.ListByOwner(ctx, "u1")
	for _, s := range snippets {
		if s.ID == created.ID {
			t.Error("deleted snippet still present in list")
		}
	}
}

func TestDelete_NonOwnerForbidden(t *testing.T) {
	svc, repo, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "u1", "print(1)", "python")

	err := svc.Delete(ctx, created.ID, "u2")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
	if _, ok := repo.snippets[created.ID]; !ok {
		t.Error("snippet deleted by non-owner")
	}
}

func TestGetOwned(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "u1", "print(1)", "python")

	got, err := svc.GetOwned(ctx, created.ID, "u1")
	if err != nil {
		t.Fatalf("GetOwned() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}

	if _, err := svc.GetOwned(ctx, created.ID, "u2"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-owner GetOwned error = %v, want ErrForbidden", err)
	}
}
