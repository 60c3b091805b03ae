package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/radiusdt/prediction-monitor/internal/config"
	"github.com/radiusdt/prediction-monitor/internal/database"
	"github.com/radiusdt/prediction-monitor/internal/httpserver"
	"github.com/radiusdt/prediction-monitor/internal/metrics"
	"github.com/radiusdt/prediction-monitor/internal/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting prediction monitor",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("source", cfg.Report.Source),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize database connections
	var db *database.PostgresDB
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Warn("PostgreSQL not available, using in-memory mappings", zap.Error(err))
			db = nil
		} else {
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				logger.Fatal("failed to migrate database", zap.Error(err))
			}
		}
	}

	var redis *database.RedisDB
	if cfg.Redis.Enabled {
		redis, err = database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, mapping cache disabled", zap.Error(err))
			redis = nil
		} else {
			defer redis.Close()
		}
	}

	var ch *database.ClickHouseDB
	if cfg.Report.Source == config.SourceClickHouse {
		ch, err = database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("ClickHouse is required for the clickhouse source", zap.Error(err))
		}
		defer ch.Close()
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(cfg.Metrics.Namespace, reg)

	deps := &httpserver.Dependencies{
		DB:         db,
		Redis:      redis,
		ClickHouse: ch,
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
	}

	handler, err := httpserver.NewServer(deps)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	rateLimiter := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger, m)
	handler = middleware.Chain(handler,
		middleware.NewRecoveryMiddleware(logger),
		middleware.NewLoggingMiddleware(logger),
		middleware.NewAuthMiddleware(cfg.Auth, logger),
		rateLimiter,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Drop idle per-IP limiters periodically
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimiter.CleanupIPLimiters()
			case <-stopCleanup:
				return
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	close(stopCleanup)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
