package plugin

import (
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/tidwall/gjson"
)

// StateSnapshot is a plugin's serialized state, captured before a hot
// reload and restored after, version-gated by StateVersion.
type StateSnapshot struct {
	PluginName   string
	PluginVersion Version
	StateVersion uint32
	Data         []byte
	CapturedAt   time.Time
}

// Query evaluates a JSONPath expression against the snapshot's Data,
// which is expected to be JSON-encoded. Used by operators/tests to inspect
// a captured state snapshot during hot-reload diagnostics without
// deserializing into the plugin's native Go type.
func (s StateSnapshot) Query(path string) (any, error) {
	var doc any
	if !gjson.ValidBytes(s.Data) {
		return jsonpath.Get(path, doc)
	}
	doc = gjson.ParseBytes(s.Data).Value()
	return jsonpath.Get(path, doc)
}

// HotReloadable is an optional interface plugins implement to preserve
// state across hot reloads. Plugins that do not implement it are simply
// reloaded without state restoration.
type HotReloadable interface {
	// SerializeState serializes the plugin's current state to bytes,
	// called before the plugin is unloaded during a reload cycle.
	SerializeState() ([]byte, error)
	// DeserializeState restores state from a previously serialized
	// buffer, called after the plugin is reloaded and initialized.
	DeserializeState(data []byte) error
	// StateVersion returns a version number for the serialized state
	// format. If it differs from a restored snapshot's StateVersion,
	// restoration is skipped.
	StateVersion() uint32
}
