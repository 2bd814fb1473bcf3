// Package main is the game server entry point: the simulation shell that
// runs the fixed-rate tick loop, manages map instances and player
// sessions, and hosts the plugin subsystem (including hot reload in
// development builds).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kcenon/common-game-server/infrastructure/httputil"
	"github.com/kcenon/common-game-server/infrastructure/service"
	"github.com/kcenon/common-game-server/infrastructure/state"
	"github.com/kcenon/common-game-server/internal/gameserver"
	"github.com/kcenon/common-game-server/internal/plugin"
)

func main() {
	service.Run(map[string]service.Factory{
		"gameserver": newGameServerService,
	})
}

func newGameServerService(deps *service.SharedDeps) (service.GameService, error) {
	cfg := deps.Config

	gsCfg := gameserver.Config{
		TickRate:        uint32(cfg.GameLoop.TickRate),
		MaxInstances:    uint32(cfg.GameLoop.MaxInstances),
		SpatialCellSize: float32(cfg.GameLoop.SpatialCellSize),
		AITickInterval:  float32(cfg.GameLoop.AITickInterval.Seconds()),
	}
	if gsCfg.TickRate == 0 {
		gsCfg = gameserver.DefaultConfig()
	}
	gs := gameserver.New(gsCfg)

	manager := plugin.NewManager()
	manager.SetContext(plugin.Context{Services: newLocator(deps)})

	hotReload := plugin.NewHotReloadManager(manager, !cfg.Plugin.HotReloadEnabled)
	if cfg.Plugin.HotReloadDebounce > 0 {
		hotReload.SetDebounceMs(uint32(cfg.Plugin.HotReloadDebounce.Milliseconds()))
	}

	if cfg.Plugin.Directory != "" {
		if err := loadPlugins(manager, hotReload, cfg.Plugin.Directory); err != nil {
			deps.Logger.WithError(err).Warn("plugin directory scan failed")
		}
	}

	if err := manager.InitializeAll(); err != nil {
		return nil, fmt.Errorf("initialize plugins: %w", err)
	}
	if err := manager.ActivateAll(); err != nil {
		return nil, fmt.Errorf("activate plugins: %w", err)
	}

	// pluginState exports each hot-reloadable plugin's last-captured state
	// snapshot for operator inspection, independent of the in-process
	// snapshot HotReloadManager keeps for its own reload cycle. The backend
	// is swappable (PersistenceBackend) the same way auth.Service swaps
	// between in-memory and Redis/SQL stores; this binary uses the
	// in-memory one since no external store is configured.
	pluginState, err := state.NewPersistentState(state.Config{
		Backend:   state.NewMemoryBackend(5 * time.Minute),
		KeyPrefix: "gameserver:plugin-state:",
	})
	if err != nil {
		return nil, fmt.Errorf("init plugin state store: %w", err)
	}

	gs.SetTickCallback(func(dt float64) {
		manager.UpdateAll(float32(dt))
	})

	base := service.NewBase(&service.BaseConfig{
		ID:      "gameserver",
		Name:    "Game Server",
		Version: "1.0.0",
		Logger:  deps.Logger,
	})
	base.RegisterStandardRoutes()
	base.WithStats(func() map[string]any {
		stats := gs.Stats()
		return map[string]any{
			"total_ticks":             stats.TotalTicks,
			"last_update_time_ms":     stats.LastUpdateTimeMs,
			"last_budget_utilization": stats.LastBudgetUtilization,
			"player_count":            stats.PlayerCount,
			"active_instances":        stats.ActiveInstances,
			"draining_instances":      stats.DrainingInstances,
			"players_joined":          stats.PlayersJoined,
			"players_left":            stats.PlayersLeft,
			"plugin_count":            manager.PluginCount(),
			"hot_reload_available":    hotReload.IsAvailable(),
			"hot_reload_count":        hotReload.ReloadCount(),
		}
	})

	registerInstanceRoutes(base, gs)
	registerPluginStateRoutes(base, manager, pluginState)

	base.AddTickerWorker(10*time.Second, func(ctx context.Context) error {
		return checkpointPluginState(ctx, manager, pluginState)
	}, service.WithTickerWorkerName("plugin-state-checkpoint"))

	base.AddWorker(func(ctx context.Context) {
		gs.Start()
		<-base.StopChan()
		manager.ShutdownAll()
		manager.UnloadAll()
		gs.Stop()
	})

	if hotReload.IsAvailable() {
		pollInterval := cfg.Plugin.HotReloadDebounce
		if pollInterval <= 0 {
			pollInterval = time.Second
		}
		base.AddTickerWorker(pollInterval, func(context.Context) error {
			hotReload.Poll()
			return nil
		}, service.WithTickerWorkerName("plugin-hot-reload-poll"))
	}

	return base, nil
}

// loadPlugins scans dir for native (.so) and scripted (.js) plugins. Native
// plugins are watched for hot reload when hotReload is available; scripted
// plugins are read once here and are not watched (doReload only reloads
// native libraries), so a changed script takes effect on process restart.
func loadPlugins(manager *plugin.Manager, hotReload *plugin.HotReloadManager, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read plugin directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		switch {
		case strings.HasSuffix(entry.Name(), ".so"):
			if err := manager.LoadPlugin(path); err != nil {
				return fmt.Errorf("load plugin %s: %w", path, err)
			}
			name := manager.AllPluginNames()
			if len(name) > 0 && hotReload.IsAvailable() {
				_ = hotReload.WatchPlugin(name[len(name)-1], path)
			}
		case strings.HasSuffix(entry.Name(), ".js"):
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read script plugin %s: %w", path, err)
			}
			name := strings.TrimSuffix(entry.Name(), ".js")
			p := plugin.NewScriptPlugin(plugin.Info{Name: name, Version: plugin.Version{Major: 1}}, string(source))
			if err := manager.RegisterPlugin(p); err != nil {
				return fmt.Errorf("register script plugin %s: %w", path, err)
			}
		}
	}
	return nil
}

// locator is a minimal plugin.ServiceLocator exposing the game server's
// shared dependencies by name.
type locator struct {
	deps *service.SharedDeps
}

func newLocator(deps *service.SharedDeps) *locator {
	return &locator{deps: deps}
}

func (l *locator) Lookup(name string) (any, bool) {
	switch name {
	case "logger":
		return l.deps.Logger, true
	case "metrics":
		return l.deps.Metrics, true
	case "config":
		return l.deps.Config, true
	default:
		return nil, false
	}
}

// ---------------------------------------------------------------------------
// HTTP surface: map instance management
// ---------------------------------------------------------------------------

type instanceResponse struct {
	InstanceID uint32 `json:"instance_id"`
}

type createInstanceRequest struct {
	MapID      uint32 `json:"map_id"`
	MaxPlayers uint32 `json:"max_players"`
}

func registerInstanceRoutes(base *service.BaseService, gs *gameserver.Server) {
	router := base.Router()

	router.HandleFunc("/v1/instances", func(w http.ResponseWriter, r *http.Request) {
		mapID := httputil.QueryInt(r, "map_id", 0)
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"instances": gs.AvailableInstances(gameserver.MapID(mapID)),
		})
	}).Methods("GET")

	router.HandleFunc("/v1/instances", func(w http.ResponseWriter, r *http.Request) {
		var req createInstanceRequest
		if !httputil.DecodeJSONOptional(w, r, &req) {
			return
		}
		id, err := gs.CreateInstance(gameserver.MapID(req.MapID), req.MaxPlayers)
		if err != nil {
			httputil.ServiceUnavailable(w, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, instanceResponse{InstanceID: id})
	}).Methods("POST")

	router.HandleFunc("/v1/instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := instanceIDFromRequest(w, r)
		if !ok {
			return
		}
		if err := gs.DestroyInstance(id); err != nil {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}).Methods("DELETE")

	router.HandleFunc("/v1/instances/{id}/drain", func(w http.ResponseWriter, r *http.Request) {
		id, ok := instanceIDFromRequest(w, r)
		if !ok {
			return
		}
		if err := gs.DrainInstance(id); err != nil {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}).Methods("POST")
}

func instanceIDFromRequest(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		httputil.BadRequest(w, "invalid instance id")
		return 0, false
	}
	return uint32(id), true
}

// checkpointPluginState serializes every hot-reloadable plugin's current
// state into the persistent store, so an operator can inspect a plugin's
// last-known state without triggering a reload.
func checkpointPluginState(ctx context.Context, manager *plugin.Manager, store *state.PersistentState) error {
	for _, name := range manager.AllPluginNames() {
		p := manager.GetPlugin(name)
		reloadable, ok := p.(plugin.HotReloadable)
		if !ok {
			continue
		}
		data, err := reloadable.SerializeState()
		if err != nil {
			continue
		}
		if err := store.Save(ctx, name, data); err != nil {
			return fmt.Errorf("checkpoint plugin %s state: %w", name, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP surface: plugin state introspection
// ---------------------------------------------------------------------------

func registerPluginStateRoutes(base *service.BaseService, manager *plugin.Manager, store *state.PersistentState) {
	base.Router().HandleFunc("/v1/plugins/{name}/state", func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		if manager.GetPlugin(name) == nil {
			httputil.NotFound(w, "plugin not found")
			return
		}
		data, err := store.Load(r.Context(), name)
		if err != nil {
			httputil.NotFound(w, "no checkpointed state for plugin")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}).Methods("GET")
}
