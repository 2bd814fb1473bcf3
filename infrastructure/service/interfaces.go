// Package service provides common service infrastructure shared by the
// gateway, auth service, and game server.
package service

import (
	"context"

	"github.com/gorilla/mux"
)

// =============================================================================
// Core Service Interfaces
// =============================================================================

// GameService is the interface every long-running service (gateway, auth
// service, game server) must implement. This ensures consistent lifecycle
// management across all three.
type GameService interface {
	// Identity
	ID() string
	Name() string
	Version() string

	// Lifecycle
	Start(ctx context.Context) error
	Stop() error

	// HTTP
	Router() *mux.Router
}

// =============================================================================
// Optional Capability Interfaces
// =============================================================================

// StatisticsProvider provides runtime statistics.
// InfoHandler does not look for this interface; the standard /info response
// carries only the statistics registered with BaseService.WithStats.
type StatisticsProvider interface {
	// Statistics returns service-specific runtime statistics.
	Statistics() map[string]any
}

// Hydratable services can reload state from persistence on startup.
// BaseService.Start does not look for this interface; it runs only the hook
// registered with WithHydrate, before background workers are started.
type Hydratable interface {
	// Hydrate loads persistent state into memory.
	Hydrate(ctx context.Context) error
}

// =============================================================================
// Health Check Interface
// =============================================================================

// HealthChecker provides custom health check logic.
// Services implementing this can provide detailed health status.
type HealthChecker interface {
	// HealthStatus returns the current health status.
	// Returns "healthy", "degraded", or "unhealthy".
	HealthStatus() string

	// HealthDetails returns detailed health information.
	HealthDetails() map[string]any
}

// Pinger is satisfied by any dependency whose liveness can be probed, such
// as the auth service's token store or user repository.
type Pinger interface {
	Ping(ctx context.Context) error
}
