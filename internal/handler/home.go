package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// HomeHandler serves the single-page client UI.
//
// Templates are parsed once at startup and reused. The page needs the Google
// OAuth client ID so the Identity Services widget can render the sign-in
// button; everything else happens in static JS against the JSON API.
type HomeHandler struct {
	templates      *template.Template
	googleClientID string
	logger         *slog.Logger
}

func NewHomeHandler(templateDir, googleClientID string, logger *slog.Logger) (*HomeHandler, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(templateDir, "base.html"),
		filepath.Join(templateDir, "app.html"),
	)
	if err != nil {
		return nil, err
	}

	return &HomeHandler{
		templates:      tmpl,
		googleClientID: googleClientID,
		logger:         logger,
	}, nil
}

// HandleHome renders the app shell.
//
// HTTP: GET /
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":          "Code Whisperer — AI Code Review",
		"GoogleClientID": h.googleClientID,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
