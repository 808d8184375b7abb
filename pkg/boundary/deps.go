package boundary

import (
	"github.com/praetorian-inc/perimeter/pkg/workspace"
)

// lookup reports whether one dependency source declares a package name.
type lookup func(deps *workspace.DependencyContext, name string) bool

func inMap(m map[string]string, name string) bool {
	_, ok := m[name]
	return ok
}

// dependencySources are consulted in order; any single hit declares the
// package.
var dependencySources = []lookup{
	func(d *workspace.DependencyContext, name string) bool {
		_, ok := d.Internal[name]
		return ok
	},
	func(d *workspace.DependencyContext, name string) bool { return inMap(d.ResolvedExternal, name) },
	func(d *workspace.DependencyContext, name string) bool { return inMap(d.UnresolvedExternal, name) },
	func(d *workspace.DependencyContext, name string) bool {
		return d.Manifest != nil && inMap(d.Manifest.Dependencies, name)
	},
	func(d *workspace.DependencyContext, name string) bool {
		return d.Manifest != nil && inMap(d.Manifest.DevDependencies, name)
	},
	func(d *workspace.DependencyContext, name string) bool {
		return d.Manifest != nil && inMap(d.Manifest.PeerDependencies, name)
	},
	func(d *workspace.DependencyContext, name string) bool {
		return d.Manifest != nil && inMap(d.Manifest.OptionalDependencies, name)
	},
}

// IsDependency reports whether name is declared by any dependency source.
func IsDependency(deps *workspace.DependencyContext, name string) bool {
	if deps == nil {
		return false
	}
	for _, declared := range dependencySources {
		if declared(deps, name) {
			return true
		}
	}
	return false
}
