package service

import (
	"github.com/kcenon/common-game-server/infrastructure/logging"
	"github.com/kcenon/common-game-server/infrastructure/metrics"
	"github.com/kcenon/common-game-server/internal/config"
)

// SharedDeps holds all shared dependencies initialized by Run.
// Every service receives this struct from its factory function.
type SharedDeps struct {
	ServiceType string
	Config      *config.Config
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
}
