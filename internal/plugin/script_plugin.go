package plugin

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

// ScriptPlugin is a JavaScript-authored plugin running on an embedded goja
// runtime. It implements the same Plugin lifecycle as a native plugin, but
// can be reloaded on any platform (unlike Go's linux-only, unload-incapable
// `plugin.Open`), making it the preferred vehicle for hot-reloadable
// extensions.
//
// The script may define any of these top-level functions, all optional; a
// missing onLoad or onInit counts as success, and onLoad is called with no
// arguments:
//
//	function onLoad()         -> bool
//	function onInit()         -> bool
//	function onUpdate(dt)
//	function onShutdown()
//	function onUnload()
//	function serializeState() -> any    // JSON-encodable
//	function deserializeState(data)
//	function stateVersion()   -> number
type ScriptPlugin struct {
	info   Info
	source string
	vm     *goja.Runtime
}

// NewScriptPlugin stores source (not yet compiled or run) in a ScriptPlugin
// reporting info. OnLoad compiles and runs the script.
func NewScriptPlugin(info Info, source string) *ScriptPlugin {
	if info.APIVersion == 0 {
		info.APIVersion = APIVersion
	}
	return &ScriptPlugin{info: info, source: source}
}

// Info returns the plugin's metadata.
func (p *ScriptPlugin) Info() Info {
	return p.info
}

// OnLoad compiles and runs the script's top level, then calls its onLoad
// function if defined.
func (p *ScriptPlugin) OnLoad(ctx Context) bool {
	vm := goja.New()
	p.installConsole(vm)

	if _, err := vm.RunString(p.source); err != nil {
		return false
	}
	p.vm = vm

	fn, ok := goja.AssertFunction(vm.Get("onLoad"))
	if !ok {
		return true
	}
	result, err := fn(goja.Undefined())
	if err != nil {
		return false
	}
	return result.ToBoolean()
}

// OnInit calls the script's onInit function, defaulting to true if absent.
func (p *ScriptPlugin) OnInit() bool {
	fn, ok := p.function("onInit")
	if !ok {
		return true
	}
	result, err := fn(goja.Undefined())
	if err != nil {
		return false
	}
	return result.ToBoolean()
}

// OnUpdate calls the script's onUpdate function, if defined.
func (p *ScriptPlugin) OnUpdate(deltaTime float32) {
	if fn, ok := p.function("onUpdate"); ok {
		_, _ = fn(goja.Undefined(), p.vm.ToValue(deltaTime))
	}
}

// OnShutdown calls the script's onShutdown function, if defined.
func (p *ScriptPlugin) OnShutdown() {
	if fn, ok := p.function("onShutdown"); ok {
		_, _ = fn(goja.Undefined())
	}
}

// OnUnload calls the script's onUnload function, if defined, and releases
// the runtime.
func (p *ScriptPlugin) OnUnload() {
	if fn, ok := p.function("onUnload"); ok {
		_, _ = fn(goja.Undefined())
	}
	p.vm = nil
}

// SerializeState implements HotReloadable by calling the script's
// serializeState function and JSON-encoding its return value.
func (p *ScriptPlugin) SerializeState() ([]byte, error) {
	fn, ok := p.function("serializeState")
	if !ok {
		return nil, fmt.Errorf("script does not define serializeState")
	}
	result, err := fn(goja.Undefined())
	if err != nil {
		return nil, err
	}
	return json.Marshal(result.Export())
}

// DeserializeState implements HotReloadable by JSON-decoding data and
// passing it to the script's deserializeState function.
func (p *ScriptPlugin) DeserializeState(data []byte) error {
	fn, ok := p.function("deserializeState")
	if !ok {
		return fmt.Errorf("script does not define deserializeState")
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	_, err := fn(goja.Undefined(), p.vm.ToValue(decoded))
	return err
}

// StateVersion implements HotReloadable by calling the script's
// stateVersion function, defaulting to 0 if absent.
func (p *ScriptPlugin) StateVersion() uint32 {
	fn, ok := p.function("stateVersion")
	if !ok {
		return 0
	}
	result, err := fn(goja.Undefined())
	if err != nil {
		return 0
	}
	return uint32(result.ToInteger())
}

func (p *ScriptPlugin) function(name string) (goja.Callable, bool) {
	if p.vm == nil {
		return nil, false
	}
	return goja.AssertFunction(p.vm.Get(name))
}

func (p *ScriptPlugin) installConsole(vm *goja.Runtime) {
	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	_ = vm.Set("console", console)
}
