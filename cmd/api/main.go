package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/legaldrishti/backend/internal/api"
	"github.com/legaldrishti/backend/internal/auth"
	"github.com/legaldrishti/backend/internal/cache"
	"github.com/legaldrishti/backend/internal/config"
	"github.com/legaldrishti/backend/internal/database"
	"github.com/legaldrishti/backend/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	c := cache.New(cfg.Redis)
	defer c.Close()
	if err := c.Ping(ctx); err != nil {
		slog.Warn("redis unavailable, stats caching disabled", "error", err)
	}

	blobs, err := newStorage(cfg.Storage)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	authSvc := auth.NewService(db, cfg.Auth)
	if err := authSvc.SeedAdmin(ctx); err != nil {
		slog.Error("failed to seed admin", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(db, c, blobs, authSvc, cfg)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Backend == "supabase" {
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	}
	return storage.NewLocalStorage(cfg.LocalDir)
}
