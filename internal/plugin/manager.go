package plugin

import (
	"fmt"
	"os"
	goplugin "plugin"
	"sync"
	"time"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
)

// entry is the manager's internal bookkeeping for a loaded plugin.
type entry struct {
	plugin   Plugin
	native   *goplugin.Plugin // non-nil only for dynamically loaded .so plugins
	state    State
	loadedAt time.Time
}

// Manager manages the full plugin lifecycle: Load -> Init -> Active ->
// Shutdown -> Unload. It enforces the per-plugin state machine and
// resolves dependency ordering before initialization.
type Manager struct {
	mu      sync.RWMutex
	plugins map[string]*entry
	order   []string
	ctx     Context
	bus     *EventBus
}

// NewManager constructs an empty Manager with its own event bus.
func NewManager() *Manager {
	return &Manager{
		plugins: make(map[string]*entry),
		bus:     NewEventBus(),
	}
}

// SetContext sets the context shared with every plugin's OnLoad. Must be
// called before loading any plugins.
func (m *Manager) SetContext(ctx Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
}

// EventBus returns the manager's lifecycle event bus.
func (m *Manager) EventBus() *EventBus {
	return m.bus
}

// LoadPlugin opens a native Go plugin (.so), looks up its exported
// "NewPlugin" symbol (a func() Plugin), and loads the resulting instance.
// This is the direct analogue of the original's dlopen + CgsCreatePlugin.
func (m *Manager) LoadPlugin(path string) error {
	if _, err := os.Stat(path); err != nil {
		return svcerr.PluginLoadFailed(path, err)
	}

	lib, err := goplugin.Open(path)
	if err != nil {
		return svcerr.PluginLoadFailed(path, err)
	}

	sym, err := lib.Lookup("NewPlugin")
	if err != nil {
		return svcerr.PluginLoadFailed(path, fmt.Errorf("symbol NewPlugin not found: %w", err))
	}

	factory, ok := sym.(func() Plugin)
	if !ok {
		return svcerr.PluginLoadFailed(path, fmt.Errorf("NewPlugin has unexpected signature"))
	}

	p := factory()
	if p == nil {
		return svcerr.PluginLoadFailed(path, fmt.Errorf("NewPlugin returned nil"))
	}

	return m.loadInstance(p, lib)
}

// RegisterPlugin loads a statically-linked plugin instance, the Go
// equivalent of RegisterStaticPlugins — the caller constructs the Plugin
// directly instead of it coming from a CGS_PLUGIN_REGISTER factory table.
func (m *Manager) RegisterPlugin(p Plugin) error {
	if p == nil {
		return svcerr.PluginLoadFailed("", fmt.Errorf("nil plugin"))
	}
	return m.loadInstance(p, nil)
}

func (m *Manager) loadInstance(p Plugin, native *goplugin.Plugin) error {
	info := p.Info()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plugins[info.Name]; exists {
		return svcerr.PluginAlreadyLoaded(info.Name)
	}

	if info.APIVersion != APIVersion {
		return svcerr.PluginVersionMismatch(info.Name)
	}

	if !p.OnLoad(m.ctx) {
		return svcerr.PluginLoadFailed(info.Name, fmt.Errorf("OnLoad returned false"))
	}

	m.plugins[info.Name] = &entry{
		plugin:   p,
		native:   native,
		state:    StateLoaded,
		loadedAt: lifecycleTimestamp(),
	}

	Publish(m.bus, PluginLoadedEvent{PluginName: info.Name, Version: info.Version, Timestamp: time.Now()})
	return nil
}

// InitPlugin transitions a single plugin from Loaded to Initialized.
func (m *Manager) InitPlugin(name string) error {
	m.mu.Lock()
	e, ok := m.plugins[name]
	if !ok {
		m.mu.Unlock()
		return svcerr.PluginNotFound(name)
	}
	if e.state != StateLoaded {
		m.mu.Unlock()
		return svcerr.PluginInvalidState(name, e.state.String())
	}

	ok2 := e.plugin.OnInit()
	if !ok2 {
		e.state = StateError
		m.mu.Unlock()
		return svcerr.PluginInitFailed(name, fmt.Errorf("OnInit returned false"))
	}
	e.state = StateInitialized
	m.mu.Unlock()

	Publish(m.bus, PluginInitializedEvent{PluginName: name, Timestamp: time.Now()})
	return nil
}

// InitializeAll resolves dependency order and calls OnInit on every loaded
// plugin in that order. On failure, already-initialized plugins are not
// rolled back; the caller should ShutdownAll + UnloadAll.
func (m *Manager) InitializeAll() error {
	order, err := m.resolveDependencies()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.order = order
	m.mu.Unlock()

	for _, name := range order {
		m.mu.RLock()
		e, ok := m.plugins[name]
		loaded := ok && e.state == StateLoaded
		m.mu.RUnlock()
		if !loaded {
			continue
		}
		if err := m.InitPlugin(name); err != nil {
			return err
		}
	}
	return nil
}

// ActivatePlugin transitions a single plugin from Initialized to Active.
func (m *Manager) ActivatePlugin(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.plugins[name]
	if !ok {
		return svcerr.PluginNotFound(name)
	}
	if e.state != StateInitialized {
		return svcerr.PluginInvalidState(name, e.state.String())
	}
	e.state = StateActive

	Publish(m.bus, PluginActivatedEvent{PluginName: name, Timestamp: time.Now()})
	return nil
}

// ActivateAll activates every initialized plugin, in dependency order if
// known, otherwise in an arbitrary stable order.
func (m *Manager) ActivateAll() error {
	for _, name := range m.orderOrNames() {
		m.mu.RLock()
		e, ok := m.plugins[name]
		initialized := ok && e.state == StateInitialized
		m.mu.RUnlock()
		if !initialized {
			continue
		}
		if err := m.ActivatePlugin(name); err != nil {
			return err
		}
	}
	return nil
}

// UpdateAll calls OnUpdate(deltaTime) on every active plugin, in dependency
// order if known.
func (m *Manager) UpdateAll(deltaTime float32) {
	for _, name := range m.orderOrNames() {
		m.mu.RLock()
		e, ok := m.plugins[name]
		m.mu.RUnlock()
		if ok && e.state == StateActive {
			e.plugin.OnUpdate(deltaTime)
		}
	}
}

// ShutdownPlugin shuts down a single active or initialized plugin, moving
// it back to Loaded.
func (m *Manager) ShutdownPlugin(name string) error {
	m.mu.Lock()
	e, ok := m.plugins[name]
	if !ok {
		m.mu.Unlock()
		return svcerr.PluginNotFound(name)
	}
	if e.state != StateActive && e.state != StateInitialized {
		m.mu.Unlock()
		return svcerr.PluginInvalidState(name, e.state.String())
	}

	e.state = StateShuttingDown
	m.mu.Unlock()

	Publish(m.bus, PluginShutdownEvent{PluginName: name, Timestamp: time.Now()})

	e.plugin.OnShutdown()

	m.mu.Lock()
	e.state = StateLoaded
	m.mu.Unlock()
	return nil
}

// ShutdownAll shuts down every active/initialized plugin, in reverse
// dependency order.
func (m *Manager) ShutdownAll() {
	order := reversed(m.orderOrNames())
	for _, name := range order {
		m.mu.RLock()
		e, ok := m.plugins[name]
		shutdownable := ok && (e.state == StateActive || e.state == StateInitialized)
		m.mu.RUnlock()
		if shutdownable {
			_ = m.ShutdownPlugin(name)
		}
	}
}

// UnloadPlugin removes a plugin (which must already be shut down),
// releasing any native library handle.
func (m *Manager) UnloadPlugin(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.plugins[name]
	if !ok {
		return svcerr.PluginNotFound(name)
	}
	if e.state != StateLoaded && e.state != StateUnloaded && e.state != StateError {
		return svcerr.PluginInvalidState(name, e.state.String())
	}

	e.plugin.OnUnload()
	delete(m.plugins, name)

	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// UnloadAll unloads every plugin, in reverse dependency order, ignoring
// state validity (matching the original's unconditional teardown).
func (m *Manager) UnloadAll() {
	order := reversed(m.orderOrNames())

	m.mu.Lock()
	for _, name := range order {
		if e, ok := m.plugins[name]; ok {
			e.plugin.OnUnload()
		}
	}
	m.plugins = make(map[string]*entry)
	m.order = nil
	m.mu.Unlock()
}

// GetPlugin returns a loaded plugin by name, or nil if not found.
func (m *Manager) GetPlugin(name string) Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.plugins[name]
	if !ok {
		return nil
	}
	return e.plugin
}

// GetPluginState returns the current state of a loaded plugin.
func (m *Manager) GetPluginState(name string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.plugins[name]
	if !ok {
		return 0, svcerr.PluginNotFound(name)
	}
	return e.state, nil
}

// AllPluginNames returns the names of all loaded plugins, in no particular
// order.
func (m *Manager) AllPluginNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.plugins))
	for name := range m.plugins {
		names = append(names, name)
	}
	return names
}

// PluginCount returns the number of loaded plugins.
func (m *Manager) PluginCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

func (m *Manager) orderOrNames() []string {
	m.mu.RLock()
	order := m.order
	m.mu.RUnlock()
	if len(order) > 0 {
		return order
	}
	return m.AllPluginNames()
}

// resolveDependencies computes a dependency-respecting load order via
// Kahn's algorithm, matching PluginManager::resolveDependencies.
func (m *Manager) resolveDependencies() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name, e := range m.plugins {
		if _, ok := inDegree[name]; !ok {
			inDegree[name] = 0
		}
		for _, dep := range e.plugin.Info().Dependencies {
			depName := dependencyName(dep)
			graph[depName] = append(graph[depName], name)
			inDegree[name]++
			if _, ok := inDegree[depName]; !ok {
				inDegree[depName] = 0
			}
		}
	}

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			if _, exists := m.plugins[name]; exists {
				ready = append(ready, name)
			}
		}
	}

	sorted := make([]string, 0, len(m.plugins))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]

		if _, exists := m.plugins[current]; exists {
			sorted = append(sorted, current)
		}

		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(sorted) < len(m.plugins) {
		return nil, svcerr.DependencyError("", "circular or unresolvable plugin dependency detected")
	}

	return sorted, nil
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
