// Package transform implements the module-transform pipeline: each
// transform-capable plugin is instantiated fresh and threaded through a
// narrow 3-function host ABI that lets it read the current module bytes and
// emit replacement bytes.
package transform

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/lunatic-run/plugin/internal/plugin"
	"github.com/lunatic-run/plugin/internal/ports"
)

const (
	hostModuleName = "lunatic_plugin"
	transformExport = "lunatic_transform_module"
)

// passState is the per-pass host-function state: the bytes a plugin reads
// via read_input, and whatever it hands back via write_output. It is owned
// by one store for the duration of exactly one plugin's one pass and never
// shared or reused.
type passState struct {
	inputBytes  []byte
	outputBytes []byte
}

// Pipeline threads wasm module bytes through every ModuleTransform-capable
// plugin in a registry, in registration order.
type Pipeline struct {
	runtime wazero.Runtime
	plugins []*plugin.Plugin
	logger  ports.Logger
}

// New builds a Pipeline over the given engine and transform-ordered plugin
// list (as returned by registry.Registry.ModuleTransformPlugins).
func New(runtime wazero.Runtime, plugins []*plugin.Plugin, logger ports.Logger) *Pipeline {
	return &Pipeline{runtime: runtime, plugins: plugins, logger: logger}
}

// Run threads input through the chain. An empty plugin list returns input
// unchanged. Each plugin either transforms the bytes or — if it has no
// output by the time its call returns, or doesn't export the transform
// entry point at all — is a no-op passthrough for this pass.
func (p *Pipeline) Run(ctx context.Context, input []byte) ([]byte, error) {
	current := input
	for _, pl := range p.plugins {
		next, err := p.runOne(ctx, pl, current)
		if err != nil {
			return nil, fmt.Errorf("transform: plugin %q: %w", pl.Info.Name, err)
		}
		current = next
	}
	return current, nil
}

func (p *Pipeline) runOne(ctx context.Context, pl *plugin.Plugin, input []byte) ([]byte, error) {
	state := &passState{inputBytes: input}

	hostModule, err := p.buildHostModule(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("building host ABI: %w", err)
	}
	defer hostModule.Close(ctx)

	modConfig := wazero.NewModuleConfig().WithName("")
	instance, err := p.runtime.InstantiateModule(ctx, pl.Compiled, modConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiating plugin: %w", err)
	}
	defer instance.Close(ctx)

	fn := instance.ExportedFunction(transformExport)
	if fn == nil {
		if p.logger != nil {
			p.logger.Warn("transform plugin missing export, skipping",
				"plugin", pl.Info.Name, "export", transformExport)
		}
		return input, nil
	}

	if _, err := fn.Call(ctx); err != nil {
		return nil, fmt.Errorf("calling %s: %w", transformExport, err)
	}

	if len(state.outputBytes) == 0 {
		// Passthrough rule: an empty output buffer keeps the previous bytes.
		return input, nil
	}
	return state.outputBytes, nil
}

// buildHostModule instantiates the three-function "lunatic_plugin" host ABI
// bound to state. Out-of-bounds or missing-memory conditions panic, which
// wazero surfaces to the caller as the error from the plugin's exported
// function call — the trap behaviour spec.md's host ABI requires.
func (p *Pipeline) buildHostModule(ctx context.Context, state *passState) (api.Closer, error) {
	return p.runtime.NewHostModuleBuilder(hostModuleName).
		NewFunctionBuilder().
		WithFunc(func(context.Context, api.Module) int32 {
			return int32(len(state.inputBytes))
		}).
		Export("input_size").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, destPtr int32) {
			mem := m.Memory()
			if mem == nil {
				panic(fmt.Errorf("read_input: plugin does not export memory"))
			}
			if !mem.Write(uint32(destPtr), state.inputBytes) {
				panic(fmt.Errorf("read_input: write of %d bytes at %d out of bounds", len(state.inputBytes), destPtr))
			}
		}).
		Export("read_input").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, srcPtr, length int32) {
			mem := m.Memory()
			if mem == nil {
				panic(fmt.Errorf("write_output: plugin does not export memory"))
			}
			data, ok := mem.Read(uint32(srcPtr), uint32(length))
			if !ok {
				panic(fmt.Errorf("write_output: out-of-bounds read from plugin memory"))
			}
			state.outputBytes = append([]byte(nil), data...)
		}).
		Export("write_output").
		Instantiate(ctx)
}
