// Package main is the gateway entry point: the connection-facing edge
// server that authenticates WebSocket clients against the auth service and
// routes opcodes to downstream game servers.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kcenon/common-game-server/infrastructure/httputil"
	"github.com/kcenon/common-game-server/infrastructure/resilience"
	"github.com/kcenon/common-game-server/infrastructure/service"
	"github.com/kcenon/common-game-server/internal/auth"
	"github.com/kcenon/common-game-server/internal/gateway"
)

func main() {
	service.Run(map[string]service.Factory{
		"gateway": newGatewayService,
	})
}

func newGatewayService(deps *service.SharedDeps) (service.GameService, error) {
	cfg := deps.Config

	authServiceURL := authServiceURLFromEnv()
	validator := newRemoteValidator(authServiceURL)

	gwCfg := gateway.Config{
		AuthTimeout:         10 * time.Second,
		RateLimitCapacity:   uint32(cfg.Gateway.TokenBucketCapacity),
		RateLimitRefillRate: uint32(cfg.Gateway.TokenBucketRate),
		MaxConnections:      uint32(cfg.Gateway.MaxConnections),
		IdleTimeout:         cfg.Gateway.SessionIdleTimeout,
	}
	gw := gateway.NewServer(gwCfg, validator)
	if err := gw.Start(); err != nil {
		return nil, fmt.Errorf("start gateway server: %w", err)
	}

	// Gateway-internal opcodes are routed by Server itself; everything
	// else needs an explicit downstream route. Register the game server's
	// gameplay opcode range.
	gw.AddRoute(0x1000, 0xFFFF, "gameserver", true)

	base := service.NewBase(&service.BaseConfig{
		ID:      "gateway",
		Name:    "Gateway",
		Version: "1.0.0",
		Logger:  deps.Logger,
		Dependencies: map[string]service.Pinger{
			"auth-service": validator,
		},
	})
	base.RegisterStandardRoutesWithOptions(service.RouteOptions{SkipInfo: true})
	base.WithStats(func() map[string]any {
		stats := gw.Stats()
		return map[string]any{
			"total_connections":           stats.TotalConnections,
			"authenticated_connections":   stats.AuthenticatedConnections,
			"unauthenticated_connections": stats.UnauthenticatedConnections,
			"migrating_connections":       stats.MigratingConnections,
			"messages_routed":             stats.MessagesRouted,
			"messages_dropped":            stats.MessagesDropped,
			"auth_success_count":          stats.AuthSuccessCount,
			"auth_failure_count":          stats.AuthFailureCount,
			"rate_limit_hits":             stats.RateLimitHits,
		}
	})
	base.Router().HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":     "active",
			"service":    base.Name(),
			"statistics": gw.Stats(),
		})
	}).Methods("GET")

	listener := gateway.NewListener(gw, deps.Logger)
	base.Router().HandleFunc("/ws", listener.ServeHTTP)

	base.AddTickerWorker(30*time.Second, func(context.Context) error {
		gw.CleanupIdleSessions()
		gw.CleanupExpiredAuth()
		return nil
	}, service.WithTickerWorkerName("gateway-session-sweep"))

	return base, nil
}

func authServiceURLFromEnv() string {
	if v := os.Getenv("AUTH_SERVICE_URL"); v != "" {
		return v
	}
	return "http://localhost:8081"
}

// remoteValidator implements gateway.Validator by calling the auth
// service's internal /v1/auth/validate endpoint, so the gateway never
// needs to share JWT signing material with a second process. Calls are
// wrapped in a circuit breaker so an auth service outage fails fast
// instead of piling up blocked goroutines behind a dead dependency.
type remoteValidator struct {
	baseURL string
	client  *http.Client
	breaker *resilience.CircuitBreaker
}

func newRemoteValidator(baseURL string) *remoteValidator {
	return &remoteValidator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: resilience.New(resilience.DefaultConfig()),
	}
}

func (v *remoteValidator) ValidateToken(ctx context.Context, accessToken string) (*auth.TokenClaims, error) {
	body, err := json.Marshal(map[string]string{"access_token": accessToken})
	if err != nil {
		return nil, err
	}

	var claims auth.TokenClaims
	err = v.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/auth/validate", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := v.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("auth service rejected token: status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&claims)
	})
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	return &claims, nil
}

// Ping satisfies service.Pinger so the gateway's /health reflects whether
// the auth service is reachable.
func (v *remoteValidator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
