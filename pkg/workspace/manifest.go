package workspace

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest is the subset of package.json the checker reads.
type Manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version,omitempty"`
	Private              bool              `json:"private,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	Workspaces           Globs             `json:"workspaces,omitempty"`
}

// Globs is the package.json "workspaces" field, written either as an array
// or as an object with a "packages" array.
type Globs []string

// UnmarshalJSON accepts both workspace field shapes.
func (g *Globs) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = list
		return nil
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("workspaces must be an array or an object with packages: %w", err)
	}
	*g = obj.Packages
	return nil
}

// ReadManifest loads and decodes a package.json file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Categories returns the four dependency maps in declaration order:
// runtime, dev, peer, optional. Missing maps are nil.
func (m *Manifest) Categories() []map[string]string {
	if m == nil {
		return nil
	}
	return []map[string]string{
		m.Dependencies,
		m.DevDependencies,
		m.PeerDependencies,
		m.OptionalDependencies,
	}
}

// DeclaredDependencies merges every category into a single name→range map.
// Earlier categories win when a name is declared twice.
func (m *Manifest) DeclaredDependencies() map[string]string {
	out := make(map[string]string)
	cats := m.Categories()
	for i := len(cats) - 1; i >= 0; i-- {
		for name, version := range cats[i] {
			out[name] = version
		}
	}
	return out
}
