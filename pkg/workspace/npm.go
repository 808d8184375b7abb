package workspace

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

type npmEntry struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Resolved             string            `json:"resolved"`
	Link                 bool              `json:"link"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// NpmLockfile is a package-lock.json in the v2/v3 "packages" layout.
type NpmLockfile struct {
	root     string
	Version  int
	packages map[string]npmEntry
}

// ParseNpmLockfile decodes package-lock.json content.
func ParseNpmLockfile(root string, data []byte) (*NpmLockfile, error) {
	var doc struct {
		LockfileVersion int                 `json:"lockfileVersion"`
		Packages        map[string]npmEntry `json:"packages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse package-lock.json: %w", err)
	}
	if doc.LockfileVersion < 2 || doc.Packages == nil {
		return nil, fmt.Errorf("unsupported package-lock.json version %d (need 2 or 3)", doc.LockfileVersion)
	}
	return &NpmLockfile{root: root, Version: doc.LockfileVersion, packages: doc.Packages}, nil
}

// AllDependencies implements Lockfile. Each dependency is located the way
// npm installs it: in the nearest node_modules directory walking up from the
// dependent's own location.
func (l *NpmLockfile) AllDependencies(pkg *Package) (map[string]string, error) {
	key, err := relKey(l.root, pkg)
	if err != nil {
		return nil, err
	}
	entry, ok := l.packages[key]
	if !ok {
		return nil, nil
	}

	type pending struct{ from, name string }
	var queue []pending
	enqueue := func(from string, e npmEntry) {
		for _, deps := range []map[string]string{e.Dependencies, e.DevDependencies, e.OptionalDependencies, e.PeerDependencies} {
			for name := range deps {
				queue = append(queue, pending{from: from, name: name})
			}
		}
	}
	// dev dependencies only count for the workspace itself
	enqueue(key, entry)

	out := make(map[string]string)
	visited := make(map[string]bool)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		loc, dep, ok := l.locate(next.from, next.name)
		if !ok || visited[loc] {
			continue
		}
		visited[loc] = true

		if dep.Link {
			target := l.packages[dep.Resolved]
			out[next.name] = target.Version
			continue
		}
		if _, seen := out[next.name]; !seen {
			out[next.name] = dep.Version
		}
		for _, deps := range []map[string]string{dep.Dependencies, dep.OptionalDependencies, dep.PeerDependencies} {
			for name := range deps {
				queue = append(queue, pending{from: loc, name: name})
			}
		}
	}
	return out, nil
}

// locate finds the installed entry for name as required from the package
// at from.
func (l *NpmLockfile) locate(from, name string) (string, npmEntry, bool) {
	for dir := from; ; {
		candidate := "node_modules/" + name
		if dir != "" {
			candidate = dir + "/" + candidate
		}
		if e, ok := l.packages[candidate]; ok {
			return candidate, e, true
		}
		if dir == "" {
			return "", npmEntry{}, false
		}
		dir = parentInstallDir(dir)
	}
}

// parentInstallDir strips one path level, skipping over a trailing
// node_modules component so "a/node_modules/b" steps to "a".
func parentInstallDir(dir string) string {
	parent := path.Dir(dir)
	if path.Base(parent) == "node_modules" {
		parent = path.Dir(parent)
	}
	if parent == "." || parent == "/" {
		return ""
	}
	return strings.TrimSuffix(parent, "/")
}
