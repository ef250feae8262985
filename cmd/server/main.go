// Package main is the entrypoint for the videoarena API server.
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

	"github.com/robfig/cron/v3"

	"github.com/videoarena/videoarena/internal/ai"
	"github.com/videoarena/videoarena/internal/api"
	"github.com/videoarena/videoarena/internal/api/handler"
	mw "github.com/videoarena/videoarena/internal/api/middleware"
	"github.com/videoarena/videoarena/internal/api/response"
	"github.com/videoarena/videoarena/internal/api/ws"
	"github.com/videoarena/videoarena/internal/cache"
	"github.com/videoarena/videoarena/internal/compare"
	"github.com/videoarena/videoarena/internal/config"
	"github.com/videoarena/videoarena/internal/queue"
	"github.com/videoarena/videoarena/internal/store"
	"github.com/videoarena/videoarena/internal/video"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// job store
	jobStore, err := store.NewSQLiteStore(cfg.Jobs.DBPath)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer jobStore.Close()
	slog.Info("job store ready", "path", cfg.Jobs.DBPath)

	// cache is optional; without Redis the no-op cache is used
	var jobCache cache.Cache = cache.Noop{}
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		jobCache = redisCache
		slog.Info("redis connected")
	}

	// model client
	client, err := ai.NewClient(cfg.AI)
	if err != nil {
		return fmt.Errorf("create model client: %w", err)
	}
	slog.Info("model client initialized", "provider", client.Name())

	// video storage
	videos, err := video.NewStorage(cfg.Video.UploadDir, cfg.Video.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("create video storage: %w", err)
	}

	hub := ws.NewHub()
	jobQueue := queue.New(jobStore, jobCache, queue.WithNotifier(hub))
	pipeline := compare.New(client, videos, config.SupportedModels(), cfg.AI.JudgeModel)

	// scheduled retention cleanup
	var sched *cron.Cron
	if cfg.Jobs.RetentionDays > 0 {
		sched = cron.New()
		retention := time.Duration(cfg.Jobs.RetentionDays) * 24 * time.Hour
		_, err := sched.AddFunc("0 3 * * *", func() {
			removed, err := jobQueue.Cleanup(context.Background(), retention)
			if err != nil {
				slog.Error("scheduled cleanup failed", "error", err)
				return
			}
			slog.Info("scheduled cleanup done", "removed", removed, "retention_days", cfg.Jobs.RetentionDays)
		})
		if err != nil {
			return fmt.Errorf("schedule cleanup: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(jobCache, 60),

		HealthHandler: healthHandler(jobStore, jobCache),

		CompareHandler:      handler.NewCompareHandler(jobQueue, pipeline),
		BatchCompareHandler: handler.NewBatchCompareHandler(jobQueue, pipeline),
		ModelsHandler:       handler.NewModelsHandler(pipeline),

		ListJobsHandler:    handler.NewListJobsHandler(jobQueue),
		GetJobHandler:      handler.NewGetJobHandler(jobQueue),
		CancelJobHandler:   handler.NewCancelJobHandler(jobQueue),
		DeleteJobHandler:   handler.NewDeleteJobHandler(jobQueue),
		JobResultHandler:   handler.NewJobResultHandler(jobQueue),
		CleanupJobsHandler: handler.NewCleanupJobsHandler(jobQueue),

		UploadVideoHandler:   handler.NewUploadVideoHandler(videos, cfg.Video.MaxUploadSize),
		GetVideoHandler:      handler.NewGetVideoHandler(videos),
		VideoMetadataHandler: handler.NewVideoMetadataHandler(videos),

		WSHandler: hub.Handler,
	}

	router := api.NewRouter(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Minute, // large video uploads
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// cancel live background jobs and wait for their terminal writes
	if err := jobQueue.Shutdown(shutdownCtx); err != nil {
		slog.Warn("background jobs did not drain in time", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks store and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"store": "ok",
			"cache": "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["store"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["store"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
