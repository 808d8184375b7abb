// Package workspace discovers the packages of a JavaScript monorepo, reads
// their manifests and lockfile, and assembles the per-package dependency
// context the boundary checker consults.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// Package is one workspace package.
type Package struct {
	Name     string
	Dir      string // absolute
	Manifest *Manifest
}

// Graph exposes the workspace packages and the internal dependency edges
// between them.
type Graph interface {
	Packages() []*Package
	ImmediateDependencies(name string) map[string]struct{}
}

// Workspace is a discovered monorepo.
type Workspace struct {
	Root         string
	RootManifest *Manifest
	Lockfile     Lockfile // nil when the repository has none

	packages []*Package
	byName   map[string]*Package
}

// Discover reads the workspace rooted at root: its package.json, the
// workspace globs (pnpm-workspace.yaml takes precedence over the
// package.json "workspaces" field) and the lockfile.
func Discover(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &types.FatalError{Kind: types.FatalPath, Path: root, Err: err}
	}

	rootManifest, err := ReadManifest(filepath.Join(abs, "package.json"))
	if err != nil {
		return nil, &types.FatalError{Kind: types.FatalWorkspace, Path: abs, Err: err}
	}

	patterns := []string(rootManifest.Workspaces)
	if pnpm, err := readPnpmWorkspace(abs); err != nil {
		return nil, &types.FatalError{Kind: types.FatalWorkspace, Path: abs, Err: err}
	} else if pnpm != nil {
		patterns = pnpm
	}

	dirs, err := matchPackageDirs(abs, patterns)
	if err != nil {
		return nil, &types.FatalError{Kind: types.FatalWorkspace, Path: abs, Err: err}
	}

	ws := &Workspace{
		Root:         abs,
		RootManifest: rootManifest,
		byName:       make(map[string]*Package),
	}
	for _, dir := range dirs {
		manifest, err := ReadManifest(filepath.Join(dir, "package.json"))
		if err != nil {
			return nil, &types.FatalError{Kind: types.FatalWorkspace, Path: dir, Err: err}
		}
		name := manifest.Name
		if name == "" {
			rel, _ := filepath.Rel(abs, dir)
			name = filepath.ToSlash(rel)
		}
		if prev, ok := ws.byName[name]; ok {
			return nil, &types.FatalError{
				Kind: types.FatalWorkspace,
				Path: dir,
				Err:  fmt.Errorf("duplicate package name %q (also at %s)", name, prev.Dir),
			}
		}
		pkg := &Package{Name: name, Dir: dir, Manifest: manifest}
		ws.packages = append(ws.packages, pkg)
		ws.byName[name] = pkg
	}
	sort.Slice(ws.packages, func(i, j int) bool {
		return ws.packages[i].Name < ws.packages[j].Name
	})

	lock, err := LoadLockfile(abs)
	if err != nil {
		return nil, &types.FatalError{Kind: types.FatalLockfile, Path: abs, Err: err}
	}
	ws.Lockfile = lock

	return ws, nil
}

// Packages returns the workspace packages sorted by name. The root package
// is not included.
func (w *Workspace) Packages() []*Package {
	return w.packages
}

// Package returns the package with the given name.
func (w *Workspace) Package(name string) (*Package, bool) {
	pkg, ok := w.byName[name]
	return pkg, ok
}

// ImmediateDependencies returns the workspace packages that name declares in
// any manifest category.
func (w *Workspace) ImmediateDependencies(name string) map[string]struct{} {
	deps := make(map[string]struct{})
	pkg, ok := w.byName[name]
	if !ok {
		return deps
	}
	for _, category := range pkg.Manifest.Categories() {
		for dep := range category {
			if _, internal := w.byName[dep]; internal && dep != name {
				deps[dep] = struct{}{}
			}
		}
	}
	return deps
}

// Filter returns the packages whose names are in names, preserving order.
// An empty filter selects every package.
func (w *Workspace) Filter(names []string) ([]*Package, error) {
	if len(names) == 0 {
		return w.packages, nil
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := w.byName[n]; !ok {
			return nil, fmt.Errorf("no workspace package named %q", n)
		}
		want[n] = struct{}{}
	}
	var out []*Package
	for _, pkg := range w.packages {
		if _, ok := want[pkg.Name]; ok {
			out = append(out, pkg)
		}
	}
	return out, nil
}

// ===== HELPERS =====

func readPnpmWorkspace(root string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(root, "pnpm-workspace.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pnpm-workspace.yaml: %w", err)
	}
	var doc struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pnpm-workspace.yaml: %w", err)
	}
	if doc.Packages == nil {
		doc.Packages = []string{}
	}
	return doc.Packages, nil
}

// matchPackageDirs returns every directory below root holding a package.json
// whose root-relative path matches the workspace globs. Patterns prefixed
// with "!" exclude.
func matchPackageDirs(root string, patterns []string) ([]string, error) {
	var include, exclude []glob.Glob
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		p = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(p, "!"), "./"), "/")
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid workspace glob %q: %w", p, err)
		}
		if negate {
			exclude = append(exclude, g)
		} else {
			include = append(include, g)
		}
	}
	if len(include) == 0 {
		return nil, nil
	}

	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (name == "node_modules" || name == ".git") {
			return filepath.SkipDir
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchAny(include, rel) || matchAny(exclude, rel) {
			return nil
		}
		if _, err := os.Stat(filepath.Join(path, "package.json")); err == nil {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk workspace: %w", err)
	}
	return dirs, nil
}

func matchAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}
