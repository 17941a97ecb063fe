package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/dago-pathway-router/internal/api"
	"github.com/aescanero/dago-pathway-router/internal/app"
	"github.com/aescanero/dago-pathway-router/internal/config"
	"github.com/aescanero/dago-pathway-router/internal/metrics"
	"github.com/aescanero/dago-pathway-router/internal/worker"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting pathway router",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// Log configuration (without sensitive data)
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	recorder := metrics.NewRecorder()

	// Load content and wire the router; content errors are fatal
	a, err := app.Build(app.Options{
		ContentDir:   cfg.ContentDir,
		StepFactor:   cfg.StepFactor,
		MaxParallel:  cfg.MaxParallel,
		CELCacheSize: cfg.CELCacheSize,
		Strict:       cfg.StrictValidation,
		Observer:     recorder,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize pathway router", zap.Error(err))
	}
	logger.Info("router initialized", zap.Strings("pathways", a.Store.ListIDs()))

	checks := map[string]api.ReadyCheck{}

	// Optional Redis Streams worker
	var (
		redisClient *redis.Client
		w           *worker.Worker
	)
	if cfg.WorkerEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		// Test Redis connection
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}

		w = worker.NewWorker(cfg, redisClient, a.Router, recorder, logger)
		if err := w.Start(); err != nil {
			logger.Fatal("failed to start worker", zap.Error(err))
		}
	}

	// Start HTTP server
	server := api.NewServer(api.Deps{
		Router:  a.Router,
		Store:   a.Store,
		Metrics: recorder.Handler(),
		Checks:  checks,
		Logger:  logger,
	}, cfg.LogLevel == "debug")
	if err := server.Start(cfg.HTTPPort); err != nil {
		logger.Fatal("failed to start http server", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("pathway router running, press Ctrl+C to stop")
	<-sigChan

	logger.Info("shutdown signal received, stopping")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop http server", zap.Error(err))
	}

	if w != nil {
		if err := w.Stop(5 * time.Second); err != nil {
			logger.Error("failed to stop worker", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis connection", zap.Error(err))
		}
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, forcing exit")
	default:
		logger.Info("pathway router stopped gracefully")
	}
}

// initLogger initializes the logger
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
