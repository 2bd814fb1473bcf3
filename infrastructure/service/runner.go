package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kcenon/common-game-server/infrastructure/logging"
	slmetrics "github.com/kcenon/common-game-server/infrastructure/metrics"
	slmiddleware "github.com/kcenon/common-game-server/infrastructure/middleware"
	"github.com/kcenon/common-game-server/internal/config"
)

// Factory creates a GameService from shared dependencies.
type Factory func(deps *SharedDeps) (GameService, error)

// Run is the unified entry point for the gateway, auth service, and game
// server binaries. It loads configuration, selects the service factory by
// GAME_SERVICE_TYPE, applies standard middleware, starts the HTTP server,
// and handles graceful shutdown.
func Run(factories map[string]Factory) {
	ctx := context.Background()

	available := make([]string, 0, len(factories))
	for name := range factories {
		available = append(available, name)
	}

	serviceType := os.Getenv("GAME_SERVICE_TYPE")
	if serviceType == "" {
		log.Fatalf("GAME_SERVICE_TYPE environment variable required. Available services: %v", available)
	}

	factory, ok := factories[serviceType]
	if !ok {
		log.Fatalf("Unknown service: %s. Available: %v", serviceType, available)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(serviceType, cfg.LogLevel, cfg.LogFormat)

	var metricsCollector *slmetrics.Metrics
	if slmetrics.Enabled() {
		metricsCollector = slmetrics.Init(serviceType)
	}

	deps := &SharedDeps{
		ServiceType: serviceType,
		Config:      cfg,
		Logger:      logger,
		Metrics:     metricsCollector,
	}

	svc, err := factory(deps)
	if err != nil {
		log.Fatalf("Failed to create service %s: %v", serviceType, err)
	}

	applyMiddleware(svc, serviceType, logger, metricsCollector)

	if err := svc.Start(ctx); err != nil {
		log.Fatalf("Failed to start service %s: %v", serviceType, err)
	}
	MarkReady()

	port := resolvePort(cfg, serviceType)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           svc.Router(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.WithContext(ctx).WithField("port", port).Info("service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	MarkNotReady()
	logger.WithContext(ctx).Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("shutdown error")
	}
	if err := svc.Stop(); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("service stop error")
	}
	logger.WithContext(ctx).Info("service stopped")
}

func applyMiddleware(svc GameService, serviceType string, logger *logging.Logger, metricsCollector *slmetrics.Metrics) {
	svc.Router().Use(slmiddleware.LoggingMiddleware(logger))
	svc.Router().Use(slmiddleware.NewRecoveryMiddleware(logger).Handler)
	if metricsCollector != nil {
		svc.Router().Use(slmiddleware.MetricsMiddleware(serviceType, metricsCollector))
		svc.Router().Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
	svc.Router().Use(slmiddleware.NewBodyLimitMiddleware(0).Handler)
}

func resolvePort(cfg *config.Config, serviceType string) int {
	if port := os.Getenv("PORT"); port != "" {
		var parsed int
		if _, err := fmt.Sscanf(port, "%d", &parsed); err == nil && parsed > 0 {
			return parsed
		}
	}
	switch serviceType {
	case "gateway":
		return cfg.Gateway.TCPPort
	case "metrics":
		return cfg.MetricsPort
	default:
		return 8080
	}
}
