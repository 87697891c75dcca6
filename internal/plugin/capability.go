// Package plugin defines plugin identity: capability declarations, semver
// dependencies, and the plugin descriptor itself.
package plugin

import "strings"

// CapabilityKind is the tag of a Capability variant.
type CapabilityKind string

const (
	CapabilityModuleTransform CapabilityKind = "module_transform"
	CapabilityHostFunctions   CapabilityKind = "host_functions"
	CapabilityLifecycleHooks  CapabilityKind = "lifecycle_hooks"
	CapabilityNetworking      CapabilityKind = "networking"
	CapabilityFilesystem      CapabilityKind = "filesystem"
	CapabilityProcessSpawn    CapabilityKind = "process_spawn"
)

// Capability is the tagged variant a plugin declares in its manifest:
// ModuleTransform | HostFunctions(namespace) | LifecycleHooks | Networking |
// Filesystem(paths) | ProcessSpawn. Equality is structural.
type Capability struct {
	Kind      CapabilityKind
	Namespace string   // set only for HostFunctions
	Paths     []string // set only for Filesystem
}

// ModuleTransform builds a ModuleTransform capability.
func ModuleTransform() Capability { return Capability{Kind: CapabilityModuleTransform} }

// HostFunctions builds a HostFunctions(namespace) capability.
func HostFunctions(namespace string) Capability {
	return Capability{Kind: CapabilityHostFunctions, Namespace: namespace}
}

// LifecycleHooks builds a LifecycleHooks capability.
func LifecycleHooks() Capability { return Capability{Kind: CapabilityLifecycleHooks} }

// Networking builds a Networking capability.
func Networking() Capability { return Capability{Kind: CapabilityNetworking} }

// Filesystem builds a Filesystem(paths) capability.
func Filesystem(paths ...string) Capability {
	return Capability{Kind: CapabilityFilesystem, Paths: append([]string(nil), paths...)}
}

// ProcessSpawn builds a ProcessSpawn capability.
func ProcessSpawn() Capability { return Capability{Kind: CapabilityProcessSpawn} }

// Equal reports structural equality between two capabilities.
func (c Capability) Equal(other Capability) bool {
	if c.Kind != other.Kind || c.Namespace != other.Namespace {
		return false
	}
	if len(c.Paths) != len(other.Paths) {
		return false
	}
	for i := range c.Paths {
		if c.Paths[i] != other.Paths[i] {
			return false
		}
	}
	return true
}

// NamespaceMatchesFilter constructs "{namespace}::{name}" and returns true
// iff any entry in filter is a prefix of it.
func NamespaceMatchesFilter(namespace, name string, filter []string) bool {
	full := namespace + "::" + name
	for _, prefix := range filter {
		if strings.HasPrefix(full, prefix) {
			return true
		}
	}
	return false
}
