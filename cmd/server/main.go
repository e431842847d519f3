package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whispernet/internal/cache"
	"whispernet/internal/config"
	"whispernet/internal/database"
	"whispernet/internal/router"
	"whispernet/internal/services"

	"go.uber.org/zap"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("starting whispernet")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	dbManager, err := database.NewManager(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	healthCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	health := dbManager.Health(healthCtx)
	cancel()
	if health.Status == database.StatusUnhealthy {
		logger.Fatal("database is not healthy", zap.String("status", health.Status))
	}
	logger.Info("database ready", zap.String("status", health.Status))

	cacheInstance := buildCache(cfg, logger)
	defer cacheInstance.Close()

	serviceCollection, err := services.NewServiceCollection(dbManager, cacheInstance, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}

	handler := router.SetupRouter(serviceCollection, cfg, logger)
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		logger.Error("service shutdown failed", zap.Error(err))
	}
	logger.Info("stopped")
}

// buildCache connects to redis, or degrades to the no-op cache so the
// server still comes up without one.
func buildCache(cfg *config.Config, logger *zap.Logger) cache.Cache {
	if !cfg.Redis.Enabled {
		logger.Info("cache disabled, using no-op cache")
		return cache.NewNoopCache()
	}
	c, err := cache.NewRedisCache(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, using no-op cache", zap.Error(err))
		return cache.NewNoopCache()
	}
	logger.Info("redis cache connected", zap.String("addr", cfg.Redis.URL))
	return c
}

// initLogger builds the structured logger for the current environment.
func initLogger() (*zap.Logger, error) {
	var zcfg zap.Config
	switch os.Getenv("GO_ENV") {
	case "production":
		zcfg = zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "staging":
		zcfg = zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
