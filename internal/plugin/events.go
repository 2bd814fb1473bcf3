package plugin

import "time"

// PluginLoadedEvent is emitted when a plugin is successfully loaded.
type PluginLoadedEvent struct {
	PluginName string
	Version    Version
	Timestamp  time.Time
}

// PluginInitializedEvent is emitted when a plugin completes initialization.
type PluginInitializedEvent struct {
	PluginName string
	Timestamp  time.Time
}

// PluginActivatedEvent is emitted when a plugin is activated and ready for
// updates.
type PluginActivatedEvent struct {
	PluginName string
	Timestamp  time.Time
}

// PluginShutdownEvent is emitted when a plugin begins shutting down.
type PluginShutdownEvent struct {
	PluginName string
	Timestamp  time.Time
}

// PluginErrorEvent is emitted when a plugin encounters an error during a
// lifecycle transition.
type PluginErrorEvent struct {
	PluginName   string
	ErrorMessage string
	Timestamp    time.Time
}
