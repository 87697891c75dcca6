// Package pluginsdk provides the SDK for developing lunaticplugd wasm
// plugins. This package is designed to be compiled with TinyGo to
// WebAssembly.
//
// # Quick Start
//
// A module-transform plugin registers a TransformFunc that rewrites the
// bytes of another module before it loads:
//
//	func main() {
//	    pluginsdk.RegisterTransform(func(module []byte) []byte {
//	        return module // identity passthrough
//	    })
//	}
//
// A lifecycle plugin registers hooks for the events it cares about:
//
//	func main() {
//	    pluginsdk.RegisterProcessSpawned(func(pid uint64) {
//	        spawnCount++
//	    })
//	}
//
// A plugin assembling a new function to splice into the module it is
// transforming can record its types, functions and exports in a
// PluginBuilder and encode indices and counts with the LEB128 helpers; the
// builder does not serialize a module itself, so the plugin writes the
// section bytes it returns.
//
// Build with TinyGo:
//
//	tinygo build -o plugin.wasm -target=wasi main.go
package pluginsdk

// TransformFunc rewrites a module's bytes before it is loaded. Returning nil
// or an empty slice is a passthrough: the host keeps the previous bytes.
type TransformFunc func(module []byte) []byte

// ProcessHook observes a process lifecycle event for the given pid.
type ProcessHook func(pid uint64)

// ModuleHook observes a module lifecycle event for the given module name.
type ModuleHook func(moduleName string)

var (
	registeredTransform TransformFunc

	onProcessSpawning ProcessHook
	onProcessSpawned  ProcessHook
	onProcessExiting  ProcessHook
	onProcessExited   ProcessHook

	onModuleLoading ModuleHook
	onModuleLoaded  ModuleHook
)

// RegisterTransform registers the module-transform entry point. Call this
// from main() before the plugin is first invoked.
func RegisterTransform(fn TransformFunc) { registeredTransform = fn }

// RegisterProcessSpawning registers the lunatic_on_process_spawning hook.
func RegisterProcessSpawning(fn ProcessHook) { onProcessSpawning = fn }

// RegisterProcessSpawned registers the lunatic_on_process_spawned hook.
func RegisterProcessSpawned(fn ProcessHook) { onProcessSpawned = fn }

// RegisterProcessExiting registers the lunatic_on_process_exiting hook.
func RegisterProcessExiting(fn ProcessHook) { onProcessExiting = fn }

// RegisterProcessExited registers the lunatic_on_process_exited hook.
func RegisterProcessExited(fn ProcessHook) { onProcessExited = fn }

// RegisterModuleLoading registers the lunatic_on_module_loading hook.
func RegisterModuleLoading(fn ModuleHook) { onModuleLoading = fn }

// RegisterModuleLoaded registers the lunatic_on_module_loaded hook.
func RegisterModuleLoaded(fn ModuleHook) { onModuleLoaded = fn }
