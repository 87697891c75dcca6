//go:build !tinygo.wasm

// Package pluginsdk provides non-WASM stubs so plugin code can be unit
// tested with the regular Go toolchain before being built with TinyGo.
package pluginsdk

// RunTransform invokes the registered TransformFunc directly, bypassing the
// host ABI entirely. It exists so a plugin's own tests can exercise its
// transform logic without a wazero runtime.
func RunTransform(input []byte) []byte {
	if registeredTransform == nil {
		return input
	}
	return registeredTransform(input)
}

// FireProcessSpawning invokes the registered hook directly, for plugin unit
// tests.
func FireProcessSpawning(pid uint64) { fireProcessHook(onProcessSpawning, pid) }
func FireProcessSpawned(pid uint64)  { fireProcessHook(onProcessSpawned, pid) }
func FireProcessExiting(pid uint64)  { fireProcessHook(onProcessExiting, pid) }
func FireProcessExited(pid uint64)   { fireProcessHook(onProcessExited, pid) }

// FireModuleLoading invokes the registered hook directly, for plugin unit
// tests.
func FireModuleLoading(name string) { fireModuleHook(onModuleLoading, name) }
func FireModuleLoaded(name string)  { fireModuleHook(onModuleLoaded, name) }

func fireProcessHook(hook ProcessHook, pid uint64) {
	if hook != nil {
		hook(pid)
	}
}

func fireModuleHook(hook ModuleHook, name string) {
	if hook != nil {
		hook(name)
	}
}
