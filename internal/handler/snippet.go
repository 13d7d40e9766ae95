package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"codewhisperer/internal/auth"
	"codewhisperer/internal/model"
	"codewhisperer/internal/service"
)

// SnippetHandler serves the owner-scoped snippet CRUD routes. All of them
// sit behind auth.RequireAuth, so the userID is always in the context.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

type createSnippetRequest struct {
	CodeContent string `json:"codeContent"`
	Language    string `json:"language"`
}

type updateSnippetRequest struct {
	CodeContent *string         `json:"codeContent"`
	Language    *string         `json:"language"`
	AIAnalysis  *model.Analysis `json:"aiAnalysis"`
}

// HandleCreate saves a plain snippet without analysis.
//
// HTTP: POST /api/snippets
// BODY: {"codeContent": "...", "language": "..."}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("create snippet: invalid JSON body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	snippet, err := h.snippets.Create(r.Context(), userID, req.CodeContent, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleList returns the caller's snippets, newest first.
//
// HTTP: GET /api/snippets
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	snippets, err := h.snippets.ListByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippets)
}

// HandleGetByID returns one of the caller's snippets.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	snippet, err := h.snippets.GetOwned(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleUpdate applies a partial update to a snippet the caller owns.
//
// HTTP: PUT /api/snippets/{id}
// BODY: {"codeContent"?: "...", "language"?: "...", "aiAnalysis"?: {...}}
//
// Absent fields are left unchanged; only content, language, and the analysis
// are mutable. The author never changes.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var req updateSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("update snippet: invalid JSON body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	snippet, err := h.snippets.Update(r.Context(), id, userID, service.UpdateFields{
		CodeContent: req.CodeContent,
		Language:    req.Language,
		AIAnalysis:  req.AIAnalysis,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet the caller owns.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	if err := h.snippets.Delete(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "snippet deleted"})
}
