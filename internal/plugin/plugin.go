package plugin

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
)

// PluginDependency names another plugin and a version constraint on it.
// Resolution is out of scope; the field must round-trip.
type PluginDependency struct {
	Name       string
	VersionReq *semver.Constraints
}

// Info is a plugin's identity: its unique name, semver version, declared
// capability set, and declared dependencies.
type Info struct {
	Name         string
	Version      *semver.Version
	Capabilities []Capability
	Dependencies []PluginDependency
}

// HasCapability reports whether info declares a capability structurally
// equal to c.
func (info Info) HasCapability(c Capability) bool {
	for _, have := range info.Capabilities {
		if have.Equal(c) {
			return true
		}
	}
	return false
}

// HasCapabilityKind reports whether info declares any capability of kind k.
func (info Info) HasCapabilityKind(k CapabilityKind) bool {
	for _, have := range info.Capabilities {
		if have.Kind == k {
			return true
		}
	}
	return false
}

// Plugin is a registered wasm plugin: its descriptor plus the compiled
// module handle, compiled against the registry's single shared engine.
// Once registered, a Plugin is shared by pointer across every capability
// index that references it — never duplicated.
type Plugin struct {
	ID       uuid.UUID
	Info     Info
	Compiled wazero.CompiledModule
}

// New builds a Plugin descriptor ready for registration.
func New(id uuid.UUID, info Info, compiled wazero.CompiledModule) *Plugin {
	return &Plugin{ID: id, Info: info, Compiled: compiled}
}

// NewInfo is a small convenience constructor mirroring the teacher's
// NewPlugin helper, parsing the version string immediately so a malformed
// manifest fails before it ever reaches the registry.
func NewInfo(name, version string, capabilities []Capability, deps []PluginDependency) (Info, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return Info{}, fmt.Errorf("plugin: invalid version %q for %q: %w", version, name, err)
	}
	return Info{
		Name:         name,
		Version:      v,
		Capabilities: capabilities,
		Dependencies: deps,
	}, nil
}
