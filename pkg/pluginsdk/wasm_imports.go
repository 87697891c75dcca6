//go:build tinygo.wasm

// Package pluginsdk provides WASM imports and exports for TinyGo builds.
package pluginsdk

import "unsafe"

// ========================================
// Host Function Imports (the "lunatic_plugin" ABI)
// ========================================

//go:wasmimport lunatic_plugin input_size
func inputSize() int32

//go:wasmimport lunatic_plugin read_input
func readInputRaw(destPtr uint32)

//go:wasmimport lunatic_plugin write_output
func writeOutputRaw(srcPtr, length uint32)

// ========================================
// Exported Entry Points
// ========================================
//
// These are the functions the host looks up by name. Each dispatches to
// whatever the plugin registered in main() before the host called it. Every
// entry point is always present in the export table; one whose hook or
// transform was never registered returns without doing anything.

//export lunatic_transform_module
func _lunaticTransformModule() {
	if registeredTransform == nil {
		return
	}
	size := inputSize()
	input := make([]byte, size)
	if size > 0 {
		readInputRaw(ptrOf(input))
	}
	output := registeredTransform(input)
	if len(output) > 0 {
		ptr, length := bytesToPtr(output)
		writeOutputRaw(ptr, length)
	}
}

//export lunatic_on_process_spawning
func _lunaticOnProcessSpawning(pid uint64) { callProcessHook(onProcessSpawning, pid) }

//export lunatic_on_process_spawned
func _lunaticOnProcessSpawned(pid uint64) { callProcessHook(onProcessSpawned, pid) }

//export lunatic_on_process_exiting
func _lunaticOnProcessExiting(pid uint64) { callProcessHook(onProcessExiting, pid) }

//export lunatic_on_process_exited
func _lunaticOnProcessExited(pid uint64) { callProcessHook(onProcessExited, pid) }

//export lunatic_on_module_loading
func _lunaticOnModuleLoading(ptr, length uint32) { callModuleHook(onModuleLoading, ptr, length) }

//export lunatic_on_module_loaded
func _lunaticOnModuleLoaded(ptr, length uint32) { callModuleHook(onModuleLoaded, ptr, length) }

func callProcessHook(hook ProcessHook, pid uint64) {
	if hook != nil {
		hook(pid)
	}
}

func callModuleHook(hook ModuleHook, ptr, length uint32) {
	if hook == nil {
		return
	}
	hook(ptrToString(ptr, length))
}

// ========================================
// Memory Helpers (TinyGo WASM)
// ========================================

func ptrOf(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

func bytesToPtr(b []byte) (uint32, uint32) {
	if len(b) == 0 {
		return 0, 0
	}
	return ptrOf(b), uint32(len(b))
}

func ptrToString(ptr, length uint32) string {
	if ptr == 0 || length == 0 {
		return ""
	}
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	return string(bytes)
}
