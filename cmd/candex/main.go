package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/app"
	"github.com/kailas-cloud/candex/internal/config"
	logpkg "github.com/kailas-cloud/candex/internal/logger"
	chiTransport "github.com/kailas-cloud/candex/internal/transport/chi"
	"github.com/kailas-cloud/candex/internal/version"
)

func main() {
	// .env is optional; production injects the environment directly
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting candex API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_store", cfg.VectorStore.Driver),
		zap.String("layout", cfg.VectorStore.Layout),
		zap.String("fusion", cfg.Search.Fusion),
	)

	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	runner := a.NewRunner(prometheus.DefaultRegisterer)

	searchSvc, err := a.NewSearchService()
	if err != nil {
		logger.Fatal("Failed to create search service", zap.Error(err))
	}
	healthSvc := a.NewHealthService()

	server := chiTransport.NewServer(searchSvc, healthSvc, runner, logger).
		WithSearchTimeout(time.Duration(cfg.Search.TimeoutSec) * time.Second)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys)

	if cfg.Sync.CatchUp() {
		started, err := runner.CatchUp(ctx)
		switch {
		case err != nil:
			// search keeps serving the existing index
			logger.Error("Startup catch-up failed", zap.Error(err))
		case started:
			logger.Info("Startup catch-up started in background")
		default:
			logger.Info("Index is up to date")
		}
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Error("Sync did not stop in time", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
