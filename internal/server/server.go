// Package server wires the application together: it owns the router, the
// composition root, and the process lifecycle.
//
// main.go reads configuration and hands it here; New assembles the whole
// dependency chain explicitly (store → services → handlers → routes) in one
// place, so there is no service locator to consult to find out what talks to
// what.
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

	"github.com/nkoleva/sflogin/internal/auth"
	"github.com/nkoleva/sflogin/internal/handler"
	"github.com/nkoleva/sflogin/internal/middleware"
	sqliteRepo "github.com/nkoleva/sflogin/internal/repository/sqlite"
	"github.com/nkoleva/sflogin/internal/service"
)

// Config holds everything the server needs from the environment. The
// Salesforce connected-app settings are NOT here — those live in the
// database and are edited through the admin API.
type Config struct {
	Port          int
	DBPath        string // path to the SQLite database file
	JWTSecret     string // HMAC secret for session tokens
	PublicBaseURL string // scheme+host this service is reachable at

	// Redirect targets for the login flow.
	LoginPath string // where failed logins land (default "/login")
	FrontPath string // where successful logins land (default "/")
}

// Server is the HTTP server and the owner of its long-lived resources.
// The database connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server, assembling the full dependency chain:
// sqlite store → token/password services → login + settings services →
// handlers → routes. Each layer receives only the interfaces it needs.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.FrontPath == "" {
		cfg.FrontPath = "/"
	}

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

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the handlers, and binds routes.
//
// Route map:
//
//	GET  /salesforce/login     → redirect to Salesforce's authorization page
//	GET  /salesforce/callback  → complete the login flow, set session cookie
//	POST /auth/logout          → clear the session cookie
//	GET  /api/me               → current user (auth required)
//	GET  /admin/settings       → connected-app settings (auth required)
//	PUT  /admin/settings       → update settings (auth required)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	settingsSvc := service.NewSettingsService(s.db, s.config.PublicBaseURL, s.logger)
	loginSvc := service.NewLoginService(s.db, tokens, passwords, s.logger)

	authHandler := handler.NewAuthHandler(settingsSvc, loginSvc, s.logger, s.config.LoginPath, s.config.FrontPath)
	adminHandler := handler.NewAdminHandler(settingsSvc, s.logger)

	s.router.Get("/salesforce/login", authHandler.HandleSalesforceLogin)
	s.router.Get(service.CallbackPath, authHandler.HandleSalesforceCallback)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/api/me", authHandler.HandleMe)
		r.Get("/admin/settings", adminHandler.HandleGetSettings)
		r.Put("/admin/settings", adminHandler.HandlePutSettings)
	})

	return nil
}

// Start runs the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully: in-flight requests get up to 10 seconds to finish before
// the listener and the database are closed.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.db.Close()
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		s.logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
