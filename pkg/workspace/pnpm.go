package workspace

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// pnpmVersion is an importer dependency, written as a bare version (v5) or
// as a {specifier, version} mapping (v6 and later).
type pnpmVersion string

func (v *pnpmVersion) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*v = pnpmVersion(node.Value)
		return nil
	}
	var obj struct {
		Version string `yaml:"version"`
	}
	if err := node.Decode(&obj); err != nil {
		return err
	}
	*v = pnpmVersion(obj.Version)
	return nil
}

type pnpmImporter struct {
	Dependencies         map[string]pnpmVersion `yaml:"dependencies"`
	DevDependencies      map[string]pnpmVersion `yaml:"devDependencies"`
	OptionalDependencies map[string]pnpmVersion `yaml:"optionalDependencies"`
}

type pnpmSnapshot struct {
	Dependencies         map[string]string `yaml:"dependencies"`
	OptionalDependencies map[string]string `yaml:"optionalDependencies"`
}

// PnpmLockfile is a pnpm-lock.yaml (v5 through v9).
type PnpmLockfile struct {
	root      string
	Version   string
	importers map[string]pnpmImporter
	packages  map[string]pnpmSnapshot
	snapshots map[string]pnpmSnapshot
}

// ParsePnpmLockfile decodes pnpm-lock.yaml content.
func ParsePnpmLockfile(root string, data []byte) (*PnpmLockfile, error) {
	var doc struct {
		LockfileVersion any                     `yaml:"lockfileVersion"`
		Importers       map[string]pnpmImporter `yaml:"importers"`
		Packages        map[string]pnpmSnapshot `yaml:"packages"`
		Snapshots       map[string]pnpmSnapshot `yaml:"snapshots"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pnpm-lock.yaml: %w", err)
	}
	if doc.LockfileVersion == nil {
		return nil, fmt.Errorf("pnpm-lock.yaml has no lockfileVersion")
	}
	return &PnpmLockfile{
		root:      root,
		Version:   fmt.Sprint(doc.LockfileVersion),
		importers: doc.Importers,
		packages:  doc.Packages,
		snapshots: doc.Snapshots,
	}, nil
}

// AllDependencies implements Lockfile.
func (l *PnpmLockfile) AllDependencies(pkg *Package) (map[string]string, error) {
	key, err := relKey(l.root, pkg)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = "."
	}
	importer, ok := l.importers[key]
	if !ok {
		return nil, nil
	}

	type pending struct{ name, version string }
	var queue []pending
	for _, deps := range []map[string]pnpmVersion{importer.Dependencies, importer.DevDependencies, importer.OptionalDependencies} {
		for name, version := range deps {
			queue = append(queue, pending{name: name, version: string(version)})
		}
	}

	out := make(map[string]string)
	visited := make(map[string]bool)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if _, seen := out[next.name]; !seen {
			out[next.name] = next.version
		}
		if strings.HasPrefix(next.version, "link:") || strings.HasPrefix(next.version, "workspace:") {
			continue
		}

		snap, id, ok := l.snapshot(next.name, next.version)
		if !ok || visited[id] {
			continue
		}
		visited[id] = true
		for _, deps := range []map[string]string{snap.Dependencies, snap.OptionalDependencies} {
			for name, version := range deps {
				queue = append(queue, pending{name: name, version: version})
			}
		}
	}
	return out, nil
}

// snapshot looks up a resolved package under every key shape pnpm has used:
// "name@version" (v9 snapshots/packages), "/name@version" (v6) and
// "/name/version" (v5). A version may itself be a full key such as
// "/other@1.0.0" for aliased dependencies.
func (l *PnpmLockfile) snapshot(name, version string) (pnpmSnapshot, string, bool) {
	var candidates []string
	if strings.HasPrefix(version, "/") {
		candidates = append(candidates, version, strings.TrimPrefix(version, "/"))
	} else {
		candidates = append(candidates,
			name+"@"+version,
			"/"+name+"@"+version,
			"/"+name+"/"+version,
		)
	}
	for _, id := range candidates {
		if s, ok := l.snapshots[id]; ok {
			return s, id, true
		}
		if s, ok := l.packages[id]; ok {
			return s, id, true
		}
	}
	return pnpmSnapshot{}, "", false
}
