package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"codewhisperer/internal/auth"
	"codewhisperer/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := server.Config{
		Port:           envInt("PORT", 8080),
		Environment:    envStr("APP_ENV", "development"),
		DBPath:         envStr("DB_PATH", "data/codewhisperer.db"),
		TemplateDir:    envStr("TEMPLATE_DIR", "web/templates"),
		StaticDir:      envStr("STATIC_DIR", "web/static"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    os.Getenv("GEMINI_MODEL"),
		AllowedOrigin:  envStr("ALLOWED_ORIGIN", "http://localhost:8080"),
	}

	if cfg.SessionSecret == "" {
		logger.Error("SESSION_SECRET must be set")
		os.Exit(1)
	}
	if cfg.GoogleClientID == "" {
		logger.Error("GOOGLE_CLIENT_ID must be set")
		os.Exit(1)
	}
	if cfg.GeminiAPIKey == "" {
		logger.Error("GEMINI_API_KEY must be set")
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// OIDC discovery hits Google's well-known endpoint once at startup; fail
	// fast here rather than on the first sign-in.
	verifier, err := auth.NewGoogleVerifier(context.Background(), cfg.GoogleClientID)
	if err != nil {
		logger.Error("failed to initialize Google identity verifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, verifier, logger)
	if err != nil {
		logger.Error("failed to initialize server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
