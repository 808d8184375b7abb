package workspace

import (
	"github.com/praetorian-inc/perimeter/pkg/types"
)

// DependencyContext is everything that can make a package name legal to
// import from one workspace package. It is built fresh for each package and
// never modified while that package is checked.
type DependencyContext struct {
	Internal           map[string]struct{}
	ResolvedExternal   map[string]string // nil without a lockfile entry
	UnresolvedExternal map[string]string
	Manifest           *Manifest
}

// NewDependencyContext assembles the context for pkg. lock may be nil. A
// lockfile query failure is fatal for the package.
func NewDependencyContext(g Graph, lock Lockfile, pkg *Package) (*DependencyContext, error) {
	internal := g.ImmediateDependencies(pkg.Name)

	var resolved map[string]string
	if lock != nil {
		deps, err := lock.AllDependencies(pkg)
		if err != nil {
			return nil, &types.FatalError{Kind: types.FatalLockfile, Path: pkg.Dir, Err: err}
		}
		resolved = deps
	}

	unresolved := make(map[string]string)
	for name, version := range pkg.Manifest.DeclaredDependencies() {
		if _, ok := internal[name]; ok {
			continue
		}
		if _, ok := resolved[name]; ok {
			continue
		}
		unresolved[name] = version
	}

	return &DependencyContext{
		Internal:           internal,
		ResolvedExternal:   resolved,
		UnresolvedExternal: unresolved,
		Manifest:           pkg.Manifest,
	}, nil
}
