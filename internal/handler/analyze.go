package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"codewhisperer/internal/auth"
	"codewhisperer/internal/service"
)

// AnalyzeHandler serves the combined analyze-and-save route.
type AnalyzeHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewAnalyzeHandler(snippets *service.SnippetService, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{snippets: snippets, logger: logger}
}

type analyzeRequest struct {
	CodeContent string `json:"codeContent"`
	Language    string `json:"language"`
	UserContext string `json:"userContext"`
}

// HandleAnalyze runs the AI review and persists the snippet with its
// analysis in one request.
//
// HTTP: POST /api/ai/analyze
// BODY: {"codeContent": "...", "language": "...", "userContext"?: "..."}
//
// Ordering matters: the review runs first, and nothing is written unless it
// succeeds — a failed or unparseable AI reply returns 500 with no snippet
// created.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("analyze: invalid JSON body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	snippet, err := h.snippets.AnalyzeAndCreate(r.Context(), userID, req.CodeContent, req.Language, req.UserContext)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}
