package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AmolSonawane1026/order-service/internal/di"
	"github.com/AmolSonawane1026/order-service/internal/platform/config"
	"github.com/AmolSonawane1026/order-service/internal/platform/observability"
	"github.com/AmolSonawane1026/order-service/internal/platform/secrets"
	"github.com/AmolSonawane1026/order-service/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	level, _ := config.Lookup("LOG_LEVEL")
	baseLogger, err := observability.NewLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("orders")

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	info := observability.ServiceInfo{
		Name:        cfg.Service.Name,
		Version:     cfg.Service.Version,
		Environment: cfg.Service.Environment,
	}
	shutdownTracer, err := observability.InitTracerProvider(ctx, info, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to initialise tracing", zap.Error(err))
	}
	metricsHandler, shutdownMeter, err := observability.InitMeterProvider(info)
	if err != nil {
		logger.Fatal("failed to initialise metrics", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMeter(flushCtx); err != nil {
			logger.Warn("meter shutdown error", zap.Error(err))
		}
		if err := shutdownTracer(flushCtx); err != nil {
			logger.Warn("tracer shutdown error", zap.Error(err))
		}
	}()

	container, err := di.NewContainer(ctx, cfg,
		di.WithLogger(logger),
		di.WithMetricsHandler(metricsHandler),
		di.WithBuildInfo(buildInfo(cfg, startedAt)),
	)
	if err != nil {
		logger.Fatal("failed to wire dependencies", zap.Error(err))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      container.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("order service listening",
			zap.String("environment", cfg.Service.Environment),
			zap.String("store", cfg.Store.Driver),
			zap.String("events", cfg.Events.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received; draining requests", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn("dependency close error", zap.Error(err))
	}
	logger.Info("order service stopped")
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	projectID, err := config.Lookup("SECRETS_PROJECT_ID")
	if err != nil {
		return nil, err
	}
	fallback, err := config.Lookup("SECRETS_FALLBACK_FILE")
	if err != nil {
		return nil, err
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(strings.TrimSpace(projectID)),
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		opts = append(opts, secrets.WithFallbackFile(fallback))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func buildInfo(cfg config.Config, startedAt time.Time) services.BuildInfo {
	commit, _ := config.Lookup("COMMIT_SHA")
	commit = strings.TrimSpace(commit)
	if commit == "" {
		commit = "unknown"
	}
	return services.BuildInfo{
		Service:     cfg.Service.Name,
		Version:     cfg.Service.Version,
		CommitSHA:   commit,
		Environment: cfg.Service.Environment,
		StartedAt:   startedAt,
	}
}
