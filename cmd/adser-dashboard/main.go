package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/centxo/adser-dashboard/internal/cache"
	"github.com/centxo/adser-dashboard/internal/config"
	"github.com/centxo/adser-dashboard/internal/database"
	"github.com/centxo/adser-dashboard/internal/httpserver"
	"github.com/centxo/adser-dashboard/internal/metrics"
	"github.com/centxo/adser-dashboard/internal/middleware"
	"github.com/centxo/adser-dashboard/internal/storage"
	"go.uber.org/zap"
)

const (
	dbStatsInterval        = 15 * time.Second
	limiterCleanupInterval = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting adser dashboard",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("timezone", cfg.Server.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace, nil)
	}

	store, closeStore, err := openStore(ctx, cfg, logger, m)
	if err != nil {
		logger.Fatal("failed to open metric store", zap.Error(err))
	}
	defer closeStore()

	// Redis is optional: without it the response cache stays off.
	var (
		redis *database.RedisDB
		swr   *cache.SWRCache
	)
	if cfg.Redis.Enabled {
		redis, err = database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, response cache disabled", zap.Error(err))
			redis = nil
		} else {
			defer redis.Close()
		}
	}
	if cfg.Cache.Enabled && redis != nil {
		swr = cache.NewSWRCache(redis.Client, cfg.Cache, logger.Named("cache"), m)
		logger.Info("response cache enabled",
			zap.Duration("fresh_ttl", cfg.Cache.FreshTTL),
			zap.Duration("stale_ttl", cfg.Cache.StaleTTL),
		)
	}

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Store:   store,
		Redis:   redis,
		Cache:   swr,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
	})

	rateLimiter := middleware.NewRateLimitMiddleware(cfg.RateLimit, "/api/", logger)
	if m != nil {
		rateLimiter.SetMetrics(m)
	}
	go cleanupLimiters(ctx, rateLimiter)

	// Applied outermost first: recovery, request id, logging, metrics, rate limit, auth.
	handler = middleware.NewAuthMiddleware(cfg.Auth, logger).Handler(handler)
	handler = rateLimiter.Handler(handler)
	if m != nil {
		handler = middleware.NewMetricsMiddleware(m).Handler(handler)
	}
	handler = middleware.NewLoggingMiddleware(logger, "/health", cfg.Metrics.Path).Handler(handler)
	handler = middleware.NewRequestIDMiddleware().Handler(handler)
	handler = middleware.NewRecoveryMiddleware(logger).Handler(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if swr != nil {
		swr.Wait()
	}

	logger.Info("server stopped")
}

// openStore connects the record store selected by ADSER_STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (storage.MetricStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := storage.EnsureSchema(ctx, db.Pool); err != nil {
				db.Close()
				return nil, nil, err
			}
			logger.Info("database schema ensured")
		}
		if m != nil {
			go db.ReportStats(ctx, m, dbStatsInterval)
		}
		return storage.NewPostgresMetricStore(db.Pool), db.Close, nil

	case config.StoreDriverClickHouse:
		db, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewClickHouseMetricStore(db.Conn), func() { _ = db.Close() }, nil

	default:
		logger.Warn("using in-memory metric store, responses will be empty until records are added")
		return storage.NewInMemoryMetricStore(), func() {}, nil
	}
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimitMiddleware) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupIPLimiters(limiterCleanupInterval)
		}
	}
}
