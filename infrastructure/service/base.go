package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/kcenon/common-game-server/infrastructure/logging"
)

// BaseConfig contains shared configuration for all services.
type BaseConfig struct {
	ID      string
	Name    string
	Version string
	Logger  *logging.Logger
	// Dependencies are pinged by CheckHealth; a failing dependency marks the
	// service unhealthy (e.g. the auth service's Redis-backed token store).
	Dependencies map[string]Pinger
}

// BaseService provides a consistent foundation for the gateway, auth
// service, and game server: safe start/stop, an optional hydrate hook,
// background worker management, and a /health, /ready, /info surface.
type BaseService struct {
	id      string
	name    string
	version string

	router *mux.Router
	logger *logging.Logger

	stopCh   chan struct{}
	stopOnce sync.Once

	hydrate func(context.Context) error
	statsFn func() map[string]any
	workers []func(context.Context)

	dependencies map[string]Pinger
	healthMu     sync.RWMutex
	healthStatus string
	healthDetail map[string]any

	lastHealthCheck time.Time
	startTime       time.Time
}

// NewBase constructs a BaseService from shared config.
func NewBase(cfg *BaseConfig) *BaseService {
	cfgValue := BaseConfig{}
	if cfg != nil {
		cfgValue = *cfg
	}

	logger := cfgValue.Logger
	if logger == nil {
		serviceName := cfgValue.ID
		if serviceName == "" {
			serviceName = "service"
		}
		logger = logging.NewFromEnv(serviceName)
	}

	return &BaseService{
		id:           cfgValue.ID,
		name:         cfgValue.Name,
		version:      cfgValue.Version,
		router:       mux.NewRouter(),
		logger:       logger,
		stopCh:       make(chan struct{}),
		dependencies: cfgValue.Dependencies,
		healthStatus: "healthy",
	}
}

// ID returns the service's stable identifier (e.g. "gateway").
func (b *BaseService) ID() string { return b.id }

// Name returns the service's display name.
func (b *BaseService) Name() string { return b.name }

// Version returns the service's build version.
func (b *BaseService) Version() string { return b.version }

// Router returns the gorilla/mux router backing this service's HTTP surface.
func (b *BaseService) Router() *mux.Router { return b.router }

// Logger returns the service's structured logger.
func (b *BaseService) Logger() *logging.Logger {
	if b == nil || b.logger == nil {
		return logging.NewFromEnv("service")
	}
	return b.logger
}

// WithHydrate sets an optional hydrate hook executed during Start.
// The hydrate function is called after the base service starts but before
// background workers are launched. Use this for loading persistent state.
func (b *BaseService) WithHydrate(fn func(context.Context) error) *BaseService {
	b.hydrate = fn
	return b
}

// WithStats sets a statistics provider function for the /info endpoint.
// The function will be called on each /info request to get current statistics.
func (b *BaseService) WithStats(fn func() map[string]any) *BaseService {
	b.statsFn = fn
	return b
}

// AddWorker registers a background worker started after hydrate completes.
// Workers receive the context and should respect context cancellation.
// Workers should also monitor StopChan() for service shutdown signals.
func (b *BaseService) AddWorker(fn func(context.Context)) *BaseService {
	b.workers = append(b.workers, fn)
	return b
}

type tickerWorkerConfig struct {
	name           string
	runImmediately bool
}

// TickerWorkerOption configures AddTickerWorker behavior.
type TickerWorkerOption func(*tickerWorkerConfig)

// WithTickerWorkerName sets a friendly name used in error logs.
func WithTickerWorkerName(name string) TickerWorkerOption {
	return func(cfg *tickerWorkerConfig) {
		cfg.name = name
	}
}

// WithTickerWorkerImmediate causes the worker to run once immediately on start
// (before waiting for the first ticker interval).
func WithTickerWorkerImmediate() TickerWorkerOption {
	return func(cfg *tickerWorkerConfig) {
		cfg.runImmediately = true
	}
}

// AddTickerWorker registers a periodic background worker, e.g. the token
// blacklist's expired-entry sweep or the plugin hot-reload debounce flush.
func (b *BaseService) AddTickerWorker(interval time.Duration, fn func(context.Context) error, opts ...TickerWorkerOption) *BaseService {
	cfg := tickerWorkerConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	worker := func(ctx context.Context) {
		logWorkerError := func(err error) {
			if err == nil {
				return
			}
			entry := b.Logger().WithContext(ctx).WithError(err)
			if cfg.name != "" {
				entry = entry.WithField("worker", cfg.name)
			}
			entry.Warn("worker error")
		}

		if cfg.runImmediately {
			select {
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			default:
			}

			if err := fn(ctx); err != nil {
				logWorkerError(err)
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					logWorkerError(err)
				}
			}
		}
	}
	b.workers = append(b.workers, worker)
	return b
}

// StopChan exposes the stop channel for worker goroutines.
func (b *BaseService) StopChan() <-chan struct{} {
	return b.stopCh
}

// Start runs the hydrate hook (if any) then spins up background workers.
func (b *BaseService) Start(ctx context.Context) error {
	b.healthMu.Lock()
	if b.startTime.IsZero() {
		b.startTime = time.Now()
	}
	b.healthMu.Unlock()

	if b.hydrate != nil {
		if err := b.hydrate(ctx); err != nil {
			return fmt.Errorf("hydrate: %w", err)
		}
	}

	for _, w := range b.workers {
		worker := w
		go worker(ctx)
	}
	return nil
}

// Stop signals workers to exit. This method is idempotent - calling it
// multiple times is safe due to sync.Once.
func (b *BaseService) Stop() error {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	return nil
}

// WorkerCount returns the number of registered workers.
func (b *BaseService) WorkerCount() int {
	return len(b.workers)
}

// Workers returns the number of registered background workers.
// It is an alias for WorkerCount to satisfy the BackgroundWorker interface.
func (b *BaseService) Workers() int {
	return b.WorkerCount()
}

// CheckHealth refreshes the cached health state by pinging every registered
// dependency (e.g. the token store, the user repository).
func (b *BaseService) CheckHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := "healthy"
	details := make(map[string]any, len(b.dependencies))
	for name, dep := range b.dependencies {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			status = "unhealthy"
			details[name] = err.Error()
		} else {
			details[name] = "ok"
		}
	}

	b.healthMu.Lock()
	b.healthStatus = status
	b.healthDetail = details
	b.lastHealthCheck = time.Now()
	b.healthMu.Unlock()
}

// HealthStatus returns the aggregated health status string.
func (b *BaseService) HealthStatus() string {
	b.CheckHealth()
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	return b.healthStatus
}

// HealthDetails returns a map describing the most recent health state.
func (b *BaseService) HealthDetails() map[string]any {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()

	details := make(map[string]any, len(b.healthDetail)+2)
	for k, v := range b.healthDetail {
		details[k] = v
	}

	if !b.lastHealthCheck.IsZero() {
		details["last_check"] = b.lastHealthCheck.Format(time.RFC3339)
	} else {
		details["last_check"] = ""
	}

	uptime := time.Duration(0)
	if !b.startTime.IsZero() {
		uptime = time.Since(b.startTime)
	}
	details["uptime"] = uptime.String()

	return details
}

// =============================================================================
// Interface Compliance
// =============================================================================

var _ GameService = (*BaseService)(nil)
var _ HealthChecker = (*BaseService)(nil)
