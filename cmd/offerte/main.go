// Package main is the entry point for the quotes web application.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/LucaVano/app-oferte-10-05/internal/app"
	"github.com/LucaVano/app-oferte-10-05/internal/auth"
	"github.com/LucaVano/app-oferte-10-05/internal/config"
	"github.com/LucaVano/app-oferte-10-05/internal/handlers"
	"github.com/LucaVano/app-oferte-10-05/internal/scheduler"
	"github.com/LucaVano/app-oferte-10-05/internal/templates"
	"github.com/LucaVano/app-oferte-10-05/internal/uploads"
	"github.com/LucaVano/app-oferte-10-05/web"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	authService, err := newAuthService(cfg)
	if err != nil {
		slog.Error("failed to configure login", "error", err)
		os.Exit(1)
	}

	components, err := app.Build(cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("storage ready",
		"data_dir", cfg.DataDir,
		"upload_dir", cfg.UploadDir,
		"archive", components.Archived,
	)

	// Initialize template engine
	tmpl, err := templates.New(web.TemplatesFS)
	if err != nil {
		slog.Error("failed to initialize templates", "error", err)
		os.Exit(1)
	}

	h := handlers.New(components.Quotes, authService, tmpl, cfg.MaxUploadMB)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowCredentials: true,
		}).Handler)
	}

	// Uploaded product images live on disk, next to the embedded assets
	r.Handle(uploads.StaticURLBase+"/*", http.StripPrefix(uploads.StaticURLBase, http.FileServer(http.Dir(cfg.UploadDir))))

	// Serve static files from embedded FS
	staticFS, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		slog.Error("failed to create static file sub-filesystem", "error", err)
		os.Exit(1)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	h.Register(r)

	// Optional index reconciliation
	stop := make(chan struct{})
	if cfg.IndexReconcileSchedule != "" {
		sched, err := scheduler.New(components.Quotes, scheduler.WithSchedule(cfg.IndexReconcileSchedule))
		if err != nil {
			slog.Error("failed to configure scheduler", "error", err)
			os.Exit(1)
		}
		go sched.Run(stop)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	close(stop)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// newAuthService builds the login from ADMIN_PASSWORD_HASH, or hashes
// ADMIN_PASSWORD at startup. Without SESSION_SECRET a random key is used and
// sessions end on restart.
func newAuthService(cfg *config.Config) (*auth.Service, error) {
	hash := cfg.AdminPasswordHash
	if hash == "" {
		if cfg.AdminPassword == "" {
			return nil, errors.New("set ADMIN_PASSWORD_HASH or ADMIN_PASSWORD")
		}
		var err error
		hash, err = auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		slog.Warn("ADMIN_PASSWORD is set in clear text, prefer ADMIN_PASSWORD_HASH")
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		var err error
		secret, err = auth.GenerateSecret()
		if err != nil {
			return nil, err
		}
		slog.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	return auth.NewService(cfg.AdminUsername, hash, secret), nil
}
