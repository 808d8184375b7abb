package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Lockfile answers which external packages a workspace package reaches
// through lock resolution.
type Lockfile interface {
	// AllDependencies returns the transitive closure of pkg's locked
	// dependencies as name→version. A nil map means the lockfile has no
	// entry for pkg.
	AllDependencies(pkg *Package) (map[string]string, error)
}

// LoadLockfile reads the lockfile at the workspace root. It returns nil
// without error when the repository has no supported lockfile.
func LoadLockfile(root string) (Lockfile, error) {
	if data, err := readOptional(filepath.Join(root, "package-lock.json")); err != nil {
		return nil, err
	} else if data != nil {
		return ParseNpmLockfile(root, data)
	}
	if data, err := readOptional(filepath.Join(root, "pnpm-lock.yaml")); err != nil {
		return nil, err
	} else if data != nil {
		return ParsePnpmLockfile(root, data)
	}
	return nil, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// relKey returns pkg's directory relative to root with forward slashes, the
// form both lockfile formats key workspaces by.
func relKey(root string, pkg *Package) (string, error) {
	rel, err := filepath.Rel(root, pkg.Dir)
	if err != nil {
		return "", fmt.Errorf("package %s is outside the workspace: %w", pkg.Name, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		rel = ""
	}
	return rel, nil
}
