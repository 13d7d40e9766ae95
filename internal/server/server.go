// Package server wires the router, middleware, and handlers, and owns the
// HTTP server lifecycle. main.go stays minimal: read config, build the
// identity verifier, hand both to New, call Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"codewhisperer/internal/ai"
	"codewhisperer/internal/auth"
	"codewhisperer/internal/handler"
	"codewhisperer/internal/middleware"
	sqliteRepo "codewhisperer/internal/repository/sqlite"
	"codewhisperer/internal/service"
)

// Config holds everything the server needs, collected from the environment
// in main.go.
type Config struct {
	Port           int
	Environment    string // "development" or "production"
	DBPath         string
	TemplateDir    string
	StaticDir      string
	SessionSecret  string
	GoogleClientID string
	GeminiAPIKey   string
	GeminiModel    string
	AllowedOrigin  string // the single known frontend origin
}

// Server bundles the router and the resources it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → services (auth, snippet) → handlers → routes
//
// The identity verifier is injected rather than built here because the
// production one performs OIDC discovery over the network at construction
// time; tests pass a stub.
func New(cfg Config, verifier auth.IdentityVerifier, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(verifier); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes(verifier auth.IdentityVerifier) error {
	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return err
	}

	reviewer := ai.NewGeminiClient(s.config.GeminiAPIKey, s.logger, ai.WithModel(s.config.GeminiModel))

	authService := service.NewAuthService(s.db, verifier, tokens, s.logger)
	snippetService := service.NewSnippetService(s.db, reviewer, s.logger)

	secureCookie := s.config.Environment == "production"
	authHandler := handler.NewAuthHandler(authService, secureCookie, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	analyzeHandler := handler.NewAnalyzeHandler(snippetService, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Client UI. The API works standalone, so a missing template dir only
	// disables the built-in page.
	if s.config.TemplateDir != "" {
		homeHandler, err := handler.NewHomeHandler(s.config.TemplateDir, s.config.GoogleClientID, s.logger)
		if err != nil {
			return fmt.Errorf("creating home handler: %w", err)
		}
		s.router.Get("/", homeHandler.HandleHome)

		fileServer := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/google-signin", authHandler.HandleGoogleSignIn)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/snippets", func(r chi.Router) {
				r.Get("/", snippetHandler.HandleList)
				r.Post("/", snippetHandler.HandleCreate)
				r.Get("/{id}", snippetHandler.HandleGetByID)
				r.Put("/{id}", snippetHandler.HandleUpdate)
				r.Delete("/{id}", snippetHandler.HandleDelete)
			})

			r.Post("/ai/analyze", analyzeHandler.HandleAnalyze)
		})
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up to
// 30 seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		// The AI call has no timeout of its own; the write timeout is the
		// backstop that eventually frees a request stuck on a hanging
		// upstream.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("environment", s.config.Environment),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
