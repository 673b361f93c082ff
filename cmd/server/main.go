// Package main is the entry point for the sflogin server.
//
// main stays minimal: read configuration from the environment, build the
// logger, and hand everything to internal/server. The Salesforce
// connected-app settings are deliberately NOT environment variables — they
// are persisted in the database and managed through the admin API, so they
// can be changed without a restart.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nkoleva/sflogin/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure the data directory exists before sqlite tries to create the file.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down via SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the server configuration from environment variables.
//
//	PORT            listen port (default 8080)
//	DB_PATH         SQLite file (default data/sflogin.db)
//	JWT_SECRET      required; JWT_SECRET=$(openssl rand -hex 32)
//	PUBLIC_BASE_URL scheme+host used to compute the OAuth redirect URI
//	                (default http://localhost:{PORT})
//	LOGIN_PATH      failure redirect target (default /login)
//	FRONT_PATH      success redirect target (default /)
func loadConfig() (server.Config, error) {
	cfg := server.Config{
		Port:      8080,
		DBPath:    "data/sflogin.db",
		LoginPath: os.Getenv("LOGIN_PATH"),
		FrontPath: os.Getenv("FRONT_PATH"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg.PublicBaseURL = os.Getenv("PUBLIC_BASE_URL")
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	return cfg, nil
}
