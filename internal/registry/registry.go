// Package registry implements the plugin registry: a single shared wasm
// engine, compiled and capability-indexed plugins, and the name-keyed
// lookup every subsystem routes through.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"

	"github.com/lunatic-run/plugin/internal/plugin"
)

// Registry owns one wazero.Runtime configured for synchronous execution;
// every plugin is compiled against it so compiled-module handles are
// interchangeable. Construction failure is a programming error, not a
// recoverable one — it panics rather than returning an error, mirroring the
// teacher's eager-construction pattern for the engine.
type Registry struct {
	mu sync.RWMutex

	runtime wazero.Runtime

	plugins                map[string]*plugin.Plugin
	moduleTransformPlugins []*plugin.Plugin
	hostFunctionPlugins    map[string][]*plugin.Plugin
	lifecyclePlugins       []*plugin.Plugin
}

// New constructs a Registry with its own dedicated wazero.Runtime.
func New(ctx context.Context) *Registry {
	config := wazero.NewRuntimeConfig().WithCloseOnContextDone(false)
	rt := wazero.NewRuntimeWithConfig(ctx, config)
	return &Registry{
		runtime:             rt,
		plugins:             make(map[string]*plugin.Plugin),
		hostFunctionPlugins: make(map[string][]*plugin.Plugin),
	}
}

// Engine returns the registry's shared wazero runtime.
func (r *Registry) Engine() wazero.Runtime {
	return r.runtime
}

// Close releases the underlying engine and every module compiled against it.
func (r *Registry) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// RegisterWasm compiles wasm against the shared engine; on success it builds
// a Plugin and indexes it as Register does. If compilation fails, or a
// plugin with the same name is already registered, the registry is left
// unchanged (see DESIGN.md's Open Question on re-registration: this
// implementation rejects rather than replaces).
func (r *Registry) RegisterWasm(ctx context.Context, info plugin.Info, wasm []byte) (*plugin.Plugin, error) {
	r.mu.RLock()
	_, exists := r.plugins[info.Name]
	r.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("registry: plugin %q is already registered", info.Name)
	}

	compiled, err := r.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("registry: compiling plugin %q: %w", info.Name, err)
	}

	p := plugin.New(uuid.Must(uuid.NewV7()), info, compiled)
	if err := r.Register(p); err != nil {
		compiled.Close(ctx)
		return nil, err
	}
	return p, nil
}

// Register indexes a pre-compiled Plugin (used by tests and callers that
// compile elsewhere). Every plugin reachable by capability index is also
// reachable by name; adding a plugin never removes another.
func (r *Registry) Register(p *plugin.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[p.Info.Name]; exists {
		return fmt.Errorf("registry: plugin %q is already registered", p.Info.Name)
	}

	for _, cap := range p.Info.Capabilities {
		switch cap.Kind {
		case plugin.CapabilityModuleTransform:
			r.moduleTransformPlugins = append(r.moduleTransformPlugins, p)
		case plugin.CapabilityHostFunctions:
			r.hostFunctionPlugins[cap.Namespace] = append(r.hostFunctionPlugins[cap.Namespace], p)
		case plugin.CapabilityLifecycleHooks:
			r.lifecyclePlugins = append(r.lifecyclePlugins, p)
		}
	}

	r.plugins[p.Info.Name] = p
	return nil
}

// All returns every registered plugin, in no particular order; it exists for
// callers that enumerate the whole registry (the TUI's plugin list) rather
// than routing by capability.
func (r *Registry) All() []*plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*plugin.Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	return out
}

// Get looks up a plugin by its unique name.
func (r *Registry) Get(name string) (*plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// ModuleTransformPlugins returns every ModuleTransform-capable plugin, in
// registration order.
func (r *Registry) ModuleTransformPlugins() []*plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*plugin.Plugin(nil), r.moduleTransformPlugins...)
}

// HostFunctionPlugins returns the plugins that declared HostFunctions(ns)
// for the given namespace, in registration order.
func (r *Registry) HostFunctionPlugins(namespace string) []*plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*plugin.Plugin(nil), r.hostFunctionPlugins[namespace]...)
}

// LifecyclePlugins returns every LifecycleHooks-capable plugin, in
// registration order — the set the lifecycle dispatcher holds.
func (r *Registry) LifecyclePlugins() []*plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*plugin.Plugin(nil), r.lifecyclePlugins...)
}

// Len is the number of distinct registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// IsEmpty reports whether no plugins are registered.
func (r *Registry) IsEmpty() bool {
	return r.Len() == 0
}

// Stats summarizes how many plugins sit in each capability index.
type Stats struct {
	Total           int
	ModuleTransform int
	LifecycleHooks  int
	HostNamespaces  int
}

// Stats reports capability-index population counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Total:           len(r.plugins),
		ModuleTransform: len(r.moduleTransformPlugins),
		LifecycleHooks:  len(r.lifecyclePlugins),
		HostNamespaces:  len(r.hostFunctionPlugins),
	}
}
