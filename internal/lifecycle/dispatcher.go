// Package lifecycle implements the lifecycle dispatcher: best-effort,
// swallow-all-errors notification of wasm plugins at well-known process and
// module transitions.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/lunatic-run/plugin/internal/plugin"
	"github.com/lunatic-run/plugin/internal/ports"
)

// recentEventCapacity bounds the dispatcher's in-memory event history, used
// by the TUI's live view. It is not part of the dispatch contract itself.
const recentEventCapacity = 50

// EventKind is the tag of a lifecycle Event.
type EventKind int

const (
	ProcessSpawning EventKind = iota
	ProcessSpawned
	ProcessExiting
	ProcessExited
	ModuleLoading
	ModuleLoaded
)

// Event is the closed lifecycle-event variant. ProcessID is meaningful for
// the four process events; ModuleName for the two module events. Err is
// carried for ProcessExited but — per spec.md §4.E and DESIGN.md's recorded
// decision — is not marshalled into the plugin call; only the pid crosses.
type Event struct {
	Kind       EventKind
	ProcessID  uint64
	ModuleName string
	Err        error
}

var exportNames = map[EventKind]string{
	ProcessSpawning: "lunatic_on_process_spawning",
	ProcessSpawned:  "lunatic_on_process_spawned",
	ProcessExiting:  "lunatic_on_process_exiting",
	ProcessExited:   "lunatic_on_process_exited",
	ModuleLoading:   "lunatic_on_module_loading",
	ModuleLoaded:    "lunatic_on_module_loaded",
}

func isModuleEvent(k EventKind) bool {
	return k == ModuleLoading || k == ModuleLoaded
}

// Dispatcher holds an ordered list of lifecycle-capable plugins and notifies
// them of events. Dispatch never returns an error and never unwinds the
// host: every failure (instantiate, argument-build, trap) is logged and
// swallowed, and a plugin that lacks the event's export is skipped silently.
type Dispatcher struct {
	runtime wazero.Runtime
	plugins []*plugin.Plugin
	logger  ports.Logger

	mu     sync.Mutex
	recent []DispatchRecord
}

// DispatchRecord is one past notification, as shown by the TUI's live view.
type DispatchRecord struct {
	Plugin string
	Export string
	Event  Event
	Err    error
}

// New builds a Dispatcher over the given engine and the registry's
// lifecycle-capable plugin list (registration order).
func New(runtime wazero.Runtime, plugins []*plugin.Plugin, logger ports.Logger) *Dispatcher {
	return &Dispatcher{runtime: runtime, plugins: plugins, logger: logger}
}

// PluginCount is the number of lifecycle-capable plugins held.
func (d *Dispatcher) PluginCount() int {
	return len(d.plugins)
}

// RecentEvents returns up to recentEventCapacity of the most recently
// dispatched notifications, oldest first.
func (d *Dispatcher) RecentEvents() []DispatchRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DispatchRecord(nil), d.recent...)
}

func (d *Dispatcher) record(r DispatchRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recent = append(d.recent, r)
	if len(d.recent) > recentEventCapacity {
		d.recent = d.recent[len(d.recent)-recentEventCapacity:]
	}
}

// Dispatch notifies every plugin, in registration order, of event.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	exportName := exportNames[event.Kind]

	for _, pl := range d.plugins {
		d.dispatchOne(ctx, pl, exportName, event)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, pl *plugin.Plugin, exportName string, event Event) {
	modConfig := wazero.NewModuleConfig().WithName("")
	instance, err := d.runtime.InstantiateModule(ctx, pl.Compiled, modConfig)
	if err != nil {
		d.warn(pl, exportName, "instantiate failed", err)
		return
	}
	defer instance.Close(ctx)

	fn := instance.ExportedFunction(exportName)
	if fn == nil {
		return // not an error: plugin simply doesn't observe this event.
	}

	args, err := buildArgs(instance, event)
	if err != nil {
		d.warn(pl, exportName, "argument build failed", err)
		return
	}

	if _, err := fn.Call(ctx, args...); err != nil {
		d.warn(pl, exportName, "hook trapped", err)
		return
	}
	d.record(DispatchRecord{Plugin: pl.Info.Name, Export: exportName, Event: event})
}

func (d *Dispatcher) warn(pl *plugin.Plugin, export, reason string, err error) {
	d.record(DispatchRecord{Plugin: pl.Info.Name, Export: export, Err: fmt.Errorf("%s: %w", reason, err)})
	if d.logger == nil {
		return
	}
	d.logger.Warn("lifecycle dispatch failed",
		"plugin", pl.Info.Name, "export", export, "reason", reason, "error", err)
}

// buildArgs constructs the call arguments for event. Process events pass one
// i64 pid. Module events require the plugin to export "memory": the module
// name is written as UTF-8 at offset 0 and the hook receives (ptr=0, len).
func buildArgs(instance api.Module, event Event) ([]uint64, error) {
	if isModuleEvent(event.Kind) {
		mem := instance.Memory()
		if mem == nil {
			return nil, fmt.Errorf("plugin does not export memory, required for module events")
		}
		name := []byte(event.ModuleName)
		if !mem.Write(0, name) {
			return nil, fmt.Errorf("writing module name (%d bytes) at offset 0 out of bounds", len(name))
		}
		return []uint64{0, uint64(len(name))}, nil
	}
	return []uint64{event.ProcessID}, nil
}
