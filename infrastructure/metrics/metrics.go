// Package metrics provides the Prometheus collectors shared by the
// gateway, auth service and game loop, grounded on the teacher's generic
// HTTP/database collector set but re-labeled for this module's own
// domain events.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector this module exposes.
type Metrics struct {
	// Gateway
	SessionsActive    prometheus.Gauge
	SessionTransitions *prometheus.CounterVec
	GatewayMessagesTotal *prometheus.CounterVec
	GatewayRateLimited prometheus.Counter

	// Auth
	AuthEventsTotal *prometheus.CounterVec
	TokensRevoked   prometheus.Counter

	// Game loop / ECS
	TickDuration   prometheus.Histogram
	TickOverruns   prometheus.Counter
	TicksTotal     prometheus.Counter

	// Plugins
	PluginState  *prometheus.GaugeVec
	PluginReloadsTotal *prometheus.CounterVec

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer,
// or unregistered if registerer is nil (useful in tests).
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_sessions_active",
			Help: "Current number of active gateway sessions",
		}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_session_transitions_total",
			Help: "Total gateway session state transitions",
		}, []string{"from", "to"}),
		GatewayMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_messages_total",
			Help: "Total messages routed by the gateway",
		}, []string{"opcode", "outcome"}),
		GatewayRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rate_limited_total",
			Help: "Total messages dropped by the per-connection rate limiter",
		}),

		AuthEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Total authentication events",
		}, []string{"event", "outcome"}),
		TokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_tokens_revoked_total",
			Help: "Total access tokens revoked",
		}),

		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "game_tick_duration_seconds",
			Help:    "Game loop tick duration in seconds",
			Buckets: []float64{.001, .005, .01, .016, .02, .033, .05, .1, .2},
		}),
		TickOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "game_tick_overruns_total",
			Help: "Total ticks whose execution exceeded the fixed frame budget",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "game_ticks_total",
			Help: "Total ticks executed",
		}),

		PluginState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plugin_state",
			Help: "Plugin lifecycle state (1 = current state, 0 otherwise)",
		}, []string{"plugin", "state"}),
		PluginReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plugin_reloads_total",
			Help: "Total hot-reload attempts per plugin",
		}, []string{"plugin", "outcome"}),

		ServiceUptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "service_uptime_seconds",
			Help: "Service uptime in seconds",
		}),
		ServiceInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "service_info",
			Help: "Service build information",
		}, []string{"service", "version", "environment"}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.SessionsActive,
			m.SessionTransitions,
			m.GatewayMessagesTotal,
			m.GatewayRateLimited,
			m.AuthEventsTotal,
			m.TokensRevoked,
			m.TickDuration,
			m.TickOverruns,
			m.TicksTotal,
			m.PluginState,
			m.PluginReloadsTotal,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", environmentName()).Set(1)
	return m
}

// RecordSessionTransition records a gateway session state transition.
func (m *Metrics) RecordSessionTransition(from, to string) {
	m.SessionTransitions.WithLabelValues(from, to).Inc()
}

// RecordGatewayMessage records a routed (or dropped) gateway message.
func (m *Metrics) RecordGatewayMessage(opcode string, outcome string) {
	m.GatewayMessagesTotal.WithLabelValues(opcode, outcome).Inc()
}

// RecordAuthEvent records an authentication-domain event outcome.
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordTick records one tick's duration and whether it overran budget.
func (m *Metrics) RecordTick(duration time.Duration, overran bool) {
	m.TickDuration.Observe(duration.Seconds())
	m.TicksTotal.Inc()
	if overran {
		m.TickOverruns.Inc()
	}
}

// SetPluginState sets the plugin gauge for the given plugin/state pair and
// clears any previously-set state for that plugin.
func (m *Metrics) SetPluginState(plugin string, states []string, current string) {
	for _, s := range states {
		value := 0.0
		if s == current {
			value = 1.0
		}
		m.PluginState.WithLabelValues(plugin, s).Set(value)
	}
}

// RecordPluginReload records a hot-reload attempt outcome.
func (m *Metrics) RecordPluginReload(plugin, outcome string) {
	m.PluginReloadsTotal.WithLabelValues(plugin, outcome).Inc()
}

// UpdateUptime sets the uptime gauge relative to startTime.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

func environmentName() string {
	env := strings.TrimSpace(os.Getenv("GAME_ENV"))
	if env == "" {
		return "development"
	}
	return env
}

// Enabled reports whether Prometheus metrics should be exposed, matching
// the teacher's METRICS_ENABLED override convention.
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return environmentName() != "production"
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes (once) and returns the global metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance, initializing a default one
// if none has been set up yet.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
