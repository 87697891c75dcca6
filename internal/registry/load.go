package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lunatic-run/plugin/internal/plugin"
)

// LoadInstalled reads every entry from the install ledger, loads the
// matching wasm file out of pluginDir, and registers it against reg, turning
// "what's on disk" into a live, capability-indexed Registry (the `ui`
// command loads plugins this way).
//
// No manifest format exists yet for a plugin to declare which capabilities
// it needs (see DESIGN.md), so every loaded plugin is granted the full set:
// module transform, its own host-function namespace, and lifecycle hooks,
// and is indexed under all three. A plugin that lacks the corresponding
// entry point is skipped when the transform pipeline or the lifecycle
// dispatcher finds the export missing.
func LoadInstalled(ctx context.Context, reg *Registry, store *Store, pluginDir string) (int, error) {
	records, err := store.ListInstalled()
	if err != nil {
		return 0, fmt.Errorf("registry: listing install ledger: %w", err)
	}

	loaded := 0
	for _, r := range records {
		wasmPath := filepath.Join(pluginDir, r.Name+".wasm")
		wasm, err := os.ReadFile(wasmPath)
		if err != nil {
			return loaded, fmt.Errorf("registry: reading %s: %w", wasmPath, err)
		}

		info, err := plugin.NewInfo(r.Name, r.Version, []plugin.Capability{
			plugin.ModuleTransform(),
			plugin.HostFunctions(r.Name),
			plugin.LifecycleHooks(),
		}, nil)
		if err != nil {
			return loaded, fmt.Errorf("registry: building info for %q: %w", r.Name, err)
		}

		if _, err := reg.RegisterWasm(ctx, info, wasm); err != nil {
			return loaded, fmt.Errorf("registry: registering %q: %w", r.Name, err)
		}
		loaded++
	}
	return loaded, nil
}
