package plugin

import (
	"fmt"
	"sync"
	"time"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
)

// HotReloadManager orchestrates the safe plugin reload cycle used during
// development:
//
//  1. Detect file change (via FileWatcher)
//  2. Capture state (if HotReloadable)
//  3. Shutdown -> Unload
//  4. Load -> Init -> Activate (new binary)
//  5. Restore state (if version matches)
//
// Unlike the original's CGS_HOT_RELOAD compile-time guard, this type is
// always compiled in — Go has no equivalent preprocessor gate, and the
// loading path (LoadPlugin via the native `plugin` package) is already
// Linux-only. Hot reload is turned off at run time instead, through the
// disabled argument of NewHotReloadManager.
type HotReloadManager struct {
	manager  *Manager
	watcher  *FileWatcher
	disabled bool

	mu            sync.Mutex
	watchedPaths  map[string]string // plugin name -> library path
	snapshots     map[string]StateSnapshot
	reloadCount   uint64
}

// NewHotReloadManager constructs a HotReloadManager bound to manager. If
// disabled is true, WatchPlugin and ReloadPlugin return
// KindHotReloadDisabled; UnwatchPlugin, Poll and SetDebounceMs do nothing,
// WatchedPluginCount and ReloadCount return 0, and GetSnapshot reports no
// snapshot.
func NewHotReloadManager(manager *Manager, disabled bool) *HotReloadManager {
	h := &HotReloadManager{
		manager:      manager,
		watcher:      NewFileWatcher(),
		disabled:     disabled,
		watchedPaths: make(map[string]string),
		snapshots:    make(map[string]StateSnapshot),
	}
	h.watcher.SetCallback(h.onFileChanged)
	return h
}

// IsAvailable reports whether hot reload is enabled for this manager.
func (h *HotReloadManager) IsAvailable() bool {
	return !h.disabled
}

func (h *HotReloadManager) onFileChanged(path string) {
	h.mu.Lock()
	var name string
	for n, p := range h.watchedPaths {
		if p == path {
			name = n
			break
		}
	}
	h.mu.Unlock()

	if name != "" {
		_ = h.doReload(name, path)
	}
}

// WatchPlugin starts monitoring a plugin's library file for changes, so
// that modifications trigger a reload of that plugin.
func (h *HotReloadManager) WatchPlugin(name, libraryPath string) error {
	if h.disabled {
		return svcerr.HotReloadDisabled()
	}

	if !h.watcher.Watch(libraryPath) {
		return svcerr.HotReloadFailed(name, fmt.Errorf("failed to watch: %s", libraryPath))
	}

	h.mu.Lock()
	h.watchedPaths[name] = libraryPath
	h.mu.Unlock()
	return nil
}

// UnwatchPlugin stops monitoring a plugin.
func (h *HotReloadManager) UnwatchPlugin(name string) {
	if h.disabled {
		return
	}
	h.mu.Lock()
	path, ok := h.watchedPaths[name]
	delete(h.watchedPaths, name)
	h.mu.Unlock()

	if ok {
		h.watcher.Unwatch(path)
	}
}

// Poll checks for file changes and triggers reloads as needed. Call this
// periodically (e.g. once per tick in development).
func (h *HotReloadManager) Poll() {
	if h.disabled {
		return
	}
	h.watcher.Poll()
}

// ReloadPlugin manually triggers a hot reload for a watched plugin.
func (h *HotReloadManager) ReloadPlugin(name string) error {
	if h.disabled {
		return svcerr.HotReloadDisabled()
	}

	h.mu.Lock()
	path, ok := h.watchedPaths[name]
	h.mu.Unlock()
	if !ok {
		return svcerr.PluginNotFound(name)
	}
	return h.doReload(name, path)
}

// SetDebounceMs sets the file-change debounce window.
func (h *HotReloadManager) SetDebounceMs(ms uint32) {
	if h.disabled {
		return
	}
	h.watcher.SetDebounceMs(ms)
}

// WatchedPluginCount returns the number of plugins being watched.
func (h *HotReloadManager) WatchedPluginCount() int {
	if h.disabled {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchedPaths)
}

// ReloadCount returns the number of successful reloads performed.
func (h *HotReloadManager) ReloadCount() uint64 {
	if h.disabled {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloadCount
}

// GetSnapshot retrieves the most recent state snapshot captured for a
// plugin, if any.
func (h *HotReloadManager) GetSnapshot(name string) (StateSnapshot, bool) {
	if h.disabled {
		return StateSnapshot{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	snap, ok := h.snapshots[name]
	return snap, ok
}

func (h *HotReloadManager) doReload(name, libraryPath string) error {
	snapshot, hasState := h.captureState(name)
	if hasState {
		h.mu.Lock()
		h.snapshots[name] = snapshot
		h.mu.Unlock()
	}

	if state, err := h.manager.GetPluginState(name); err == nil {
		if state == StateActive || state == StateInitialized {
			if err := h.manager.ShutdownPlugin(name); err != nil {
				return err
			}
		}
	}

	if err := h.manager.UnloadPlugin(name); err != nil {
		return err
	}

	if err := h.manager.LoadPlugin(libraryPath); err != nil {
		return svcerr.HotReloadFailed(name, err)
	}

	if err := h.manager.InitPlugin(name); err != nil {
		return err
	}

	if err := h.manager.ActivatePlugin(name); err != nil {
		return err
	}

	if hasState {
		// State restoration failure is non-fatal; the plugin runs fresh.
		_ = h.restoreState(name, snapshot)
	}

	h.mu.Lock()
	h.reloadCount++
	h.mu.Unlock()
	return nil
}

func (h *HotReloadManager) captureState(name string) (StateSnapshot, bool) {
	p := h.manager.GetPlugin(name)
	if p == nil {
		return StateSnapshot{}, false
	}

	reloadable, ok := p.(HotReloadable)
	if !ok {
		return StateSnapshot{}, false
	}

	data, err := reloadable.SerializeState()
	if err != nil {
		return StateSnapshot{}, false
	}

	return StateSnapshot{
		PluginName:    name,
		PluginVersion: p.Info().Version,
		StateVersion:  reloadable.StateVersion(),
		Data:          data,
		CapturedAt:    time.Now(),
	}, true
}

func (h *HotReloadManager) restoreState(name string, snapshot StateSnapshot) error {
	p := h.manager.GetPlugin(name)
	if p == nil {
		return svcerr.PluginNotFound(name)
	}

	reloadable, ok := p.(HotReloadable)
	if !ok {
		return svcerr.StateDeserializationFailed(name, fmt.Errorf("reloaded plugin lost HotReloadable"))
	}

	if reloadable.StateVersion() != snapshot.StateVersion {
		return nil
	}

	return reloadable.DeserializeState(snapshot.Data)
}
