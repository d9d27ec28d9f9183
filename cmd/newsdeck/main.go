package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	newsapiadapter "github.com/nclarke/newsdeck/internal/adapter/driven/newsapi"
	sqliteadapter "github.com/nclarke/newsdeck/internal/adapter/driven/sqlite"
	httphandler "github.com/nclarke/newsdeck/internal/adapter/driving/http"
	webhandler "github.com/nclarke/newsdeck/internal/adapter/driving/web"
	"github.com/nclarke/newsdeck/internal/application"
	"github.com/nclarke/newsdeck/internal/config"
	"github.com/nclarke/newsdeck/internal/obs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"api_url", cfg.APIURL,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"token_encryption", cfg.SecretKey != nil,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	tokenStore := sqliteadapter.NewTokenRepo(db, cfg.SecretKey)
	apiClient := newsapiadapter.NewClient(cfg.APIURL)

	// 6. Create the session manager and restore any persisted session.
	// Initialize never fails; a bad or missing token degrades to an
	// unauthenticated state.
	sessions := application.NewSessionManager(apiClient, tokenStore, slog.Default())
	sessions.Initialize(ctx)
	slog.Info("session initialized", "state", sessions.Session().State)

	// 7. Register metrics, API routes, and GUI routes.
	obs.Init()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", obs.Handler())

	apiHandler := httphandler.NewHandler(sessions, apiClient, slog.Default())
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	webHandler := webhandler.NewHandler(sessions, apiClient, cfg.PageSize, slog.Default())
	webhandler.RegisterRoutes(mux, webHandler)

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("newsdeck started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
