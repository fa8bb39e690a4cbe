// Package main is the entrypoint for the BrandLens API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brandlens/brandlens/internal/ai/anthropic"
	"github.com/brandlens/brandlens/internal/ai/google"
	"github.com/brandlens/brandlens/internal/ai/openai"
	"github.com/brandlens/brandlens/internal/analysis"
	"github.com/brandlens/brandlens/internal/api"
	"github.com/brandlens/brandlens/internal/api/handler"
	mw "github.com/brandlens/brandlens/internal/api/middleware"
	"github.com/brandlens/brandlens/internal/cache"
	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/metrics"
	"github.com/brandlens/brandlens/internal/prompt"
	"github.com/brandlens/brandlens/internal/report"
	"github.com/brandlens/brandlens/internal/scraper"
	"github.com/brandlens/brandlens/internal/store"
	"github.com/brandlens/brandlens/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create the three LLM provider clients
	openaiClient, err := openai.NewClient(cfg.AI.OpenAI)
	if err != nil {
		return fmt.Errorf("create openai client: %w", err)
	}
	anthropicClient, err := anthropic.NewClient(cfg.AI.Anthropic, cfg.AI.CallTimeout)
	if err != nil {
		return fmt.Errorf("create anthropic client: %w", err)
	}
	googleClient, err := google.NewClient(cfg.AI.Google, cfg.AI.CallTimeout)
	if err != nil {
		return fmt.Errorf("create google client: %w", err)
	}
	providers := []models.LLMProvider{openaiClient, anthropicClient, googleClient}
	slog.Info("LLM providers initialized", "count", len(providers))

	// 6. Build the analysis pipeline
	pgStore := store.NewPostgresStore(pool)
	chromeScraper := scraper.NewChromeScraper(cfg.Scraper, logger)
	promptBuilder, err := prompt.NewBuilder()
	if err != nil {
		return fmt.Errorf("create prompt builder: %w", err)
	}
	m := metrics.New()

	analysisSvc := analysis.NewService(
		providers, chromeScraper, pgStore, redisCache, promptBuilder, m, logger, cfg.AI)
	assembler := report.NewAssembler(pgStore, logger)

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	projectHandler := handler.NewProjectHandler(pgStore, analysisSvc, logger)
	progressHandler := handler.NewProgressHandler(pgStore, redisCache, logger)
	reportHandler := handler.NewReportHandler(pgStore, redisCache, assembler, logger)
	keyHandler := handler.NewKeyHandler(pgStore, logger)
	healthHandler := handler.NewHealthHandler(pgStore, redisCache)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler.Check,

		CreateProjectHandler: projectHandler.Create,
		GetProjectHandler:    projectHandler.Get,
		ProgressHandler:      progressHandler.Get,
		CancelHandler:        projectHandler.Cancel,
		ProjectReportHandler: reportHandler.GetForProject,

		PublicReportHandler: reportHandler.GetByToken,

		CreateKeyHandler: keyHandler.Create,
		ListKeysHandler:  keyHandler.List,
		RevokeKeyHandler: keyHandler.Revoke,
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
