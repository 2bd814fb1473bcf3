// Package config loads and validates this module's runtime configuration
// from environment variables, following the teacher's getEnv/getBoolEnv
// pattern and optional per-environment .env file loading via godotenv.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// GatewayConfig configures the stateful gateway front door.
type GatewayConfig struct {
	TCPPort            int
	MaxConnections     int
	TokenBucketCapacity float64
	TokenBucketRate    float64
	SessionIdleTimeout time.Duration
}

// AuthConfig configures the authentication service.
type AuthConfig struct {
	SigningKey        string
	SigningAlgorithm  string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	LoginMaxAttempts  int
	LoginWindow       time.Duration
	BlacklistCleanupInterval time.Duration
	DatabaseURL       string
	RedisAddr         string
}

// GameLoopConfig configures the fixed-rate tick loop.
type GameLoopConfig struct {
	TickRate        int
	MaxInstances    int
	SpatialCellSize float64
	AITickInterval  time.Duration
}

// PluginConfig configures the plugin subsystem.
type PluginConfig struct {
	Directory           string
	HotReloadEnabled    bool
	HotReloadDebounce   time.Duration
	ParallelExecution   bool
}

// Config aggregates every subsystem's tunables.
type Config struct {
	Env Environment

	LogLevel  string
	LogFormat string

	MetricsEnabled bool
	MetricsPort    int

	Gateway  GatewayConfig
	Auth     AuthConfig
	GameLoop GameLoopConfig
	Plugin   PluginConfig
}

// Load reads GAME_ENV (defaulting to development), optionally loads
// config/<env>.env, then populates Config from the environment.
func Load() (*Config, error) {
	envStr := strings.TrimSpace(os.Getenv("GAME_ENV"))
	if envStr == "" {
		envStr = string(Development)
	}
	env := Environment(envStr)
	switch env {
	case Development, Testing, Production:
	default:
		return nil, fmt.Errorf("invalid GAME_ENV: %s (must be development, testing, or production)", envStr)
	}

	configFile := filepath.Join("config", fmt.Sprintf("%s.env", env))
	if err := godotenv.Load(configFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("warning: could not load %s: %v\n", configFile, err)
		}
	}

	cfg := &Config{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")
	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", true)
	c.MetricsPort = getIntEnv("METRICS_PORT", 9090)

	c.Gateway.TCPPort = getIntEnv("GATEWAY_TCP_PORT", 7777)
	c.Gateway.MaxConnections = getIntEnv("GATEWAY_MAX_CONNECTIONS", 10000)
	c.Gateway.TokenBucketCapacity = getFloatEnv("GATEWAY_BUCKET_CAPACITY", 100)
	c.Gateway.TokenBucketRate = getFloatEnv("GATEWAY_BUCKET_RATE", 50)
	idle, err := time.ParseDuration(getEnv("GATEWAY_SESSION_IDLE_TIMEOUT", "5m"))
	if err != nil {
		return fmt.Errorf("invalid GATEWAY_SESSION_IDLE_TIMEOUT: %w", err)
	}
	c.Gateway.SessionIdleTimeout = idle

	c.Auth.SigningKey = getEnv("AUTH_SIGNING_KEY", "")
	c.Auth.SigningAlgorithm = getEnv("AUTH_SIGNING_ALGORITHM", "HS256")
	access, err := time.ParseDuration(getEnv("AUTH_ACCESS_TOKEN_TTL", "900s"))
	if err != nil {
		return fmt.Errorf("invalid AUTH_ACCESS_TOKEN_TTL: %w", err)
	}
	c.Auth.AccessTokenTTL = access
	refresh, err := time.ParseDuration(getEnv("AUTH_REFRESH_TOKEN_TTL", "604800s"))
	if err != nil {
		return fmt.Errorf("invalid AUTH_REFRESH_TOKEN_TTL: %w", err)
	}
	c.Auth.RefreshTokenTTL = refresh
	c.Auth.LoginMaxAttempts = getIntEnv("AUTH_LOGIN_MAX_ATTEMPTS", 5)
	loginWindow, err := time.ParseDuration(getEnv("AUTH_LOGIN_WINDOW", "60s"))
	if err != nil {
		return fmt.Errorf("invalid AUTH_LOGIN_WINDOW: %w", err)
	}
	c.Auth.LoginWindow = loginWindow
	cleanup, err := time.ParseDuration(getEnv("AUTH_BLACKLIST_CLEANUP_INTERVAL", "5m"))
	if err != nil {
		return fmt.Errorf("invalid AUTH_BLACKLIST_CLEANUP_INTERVAL: %w", err)
	}
	c.Auth.BlacklistCleanupInterval = cleanup
	c.Auth.DatabaseURL = getEnv("AUTH_DATABASE_URL", "")
	c.Auth.RedisAddr = getEnv("AUTH_REDIS_ADDR", "")

	c.GameLoop.TickRate = getIntEnv("GAME_TICK_RATE", 20)
	c.GameLoop.MaxInstances = getIntEnv("GAME_MAX_INSTANCES", 1000)
	c.GameLoop.SpatialCellSize = getFloatEnv("GAME_SPATIAL_CELL_SIZE", 32.0)
	aiInterval, err := time.ParseDuration(getEnv("GAME_AI_TICK_INTERVAL", "100ms"))
	if err != nil {
		return fmt.Errorf("invalid GAME_AI_TICK_INTERVAL: %w", err)
	}
	c.GameLoop.AITickInterval = aiInterval

	c.Plugin.Directory = getEnv("PLUGIN_DIRECTORY", "plugins")
	c.Plugin.HotReloadEnabled = getBoolEnv("PLUGIN_HOT_RELOAD_ENABLED", false)
	debounce, err := time.ParseDuration(getEnv("PLUGIN_HOT_RELOAD_DEBOUNCE", "200ms"))
	if err != nil {
		return fmt.Errorf("invalid PLUGIN_HOT_RELOAD_DEBOUNCE: %w", err)
	}
	c.Plugin.HotReloadDebounce = debounce
	c.Plugin.ParallelExecution = getBoolEnv("PLUGIN_PARALLEL_EXECUTION", true)

	if c.Env == Production && c.Auth.SigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required in production")
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == Development }
func (c *Config) IsTesting() bool     { return c.Env == Testing }
func (c *Config) IsProduction() bool  { return c.Env == Production }

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
