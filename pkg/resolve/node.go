package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheSize bounds the number of memoized resolutions.
const DefaultCacheSize = 4096

// Extensions tried, in order, when a specifier omits one.
var Extensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs", ".json", ".vue", ".svelte"}

// entry fields consulted, in order, in a package's package.json.
var entryFields = []string{"types", "typings", "module", "main"}

type resolution struct {
	path string
	err  error
}

// NodeResolver resolves specifiers the way Node.js and bundlers find files:
// builtins first, then relative paths, then node_modules directories from
// the importing directory up to the filesystem root. Results are memoized
// in an LRU cache shared by all callers.
type NodeResolver struct {
	cache  *lru.LRU[string, resolution]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewNodeResolver creates a resolver whose cache holds up to size entries.
func NewNodeResolver(size int) *NodeResolver {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &NodeResolver{
		cache: lru.NewLRU[string, resolution](size, nil, 0),
	}
}

// Resolve implements Resolver.
func (r *NodeResolver) Resolve(dir, specifier string) (string, error) {
	if Builtin(specifier) {
		return "", &BuiltinError{Name: specifier}
	}

	key := dir + "\x00" + specifier
	if res, ok := r.cache.Get(key); ok {
		r.hits.Add(1)
		return res.path, res.err
	}
	r.misses.Add(1)

	path, err := resolveUncached(dir, specifier)
	r.cache.Add(key, resolution{path: path, err: err})
	return path, err
}

// Stats returns cache hits and misses.
func (r *NodeResolver) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

func resolveUncached(dir, specifier string) (string, error) {
	if specifier == "" {
		return "", ErrNotFound
	}
	if strings.HasPrefix(specifier, ".") || filepath.IsAbs(specifier) {
		target := specifier
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, specifier)
		}
		return loadFileOrDirectory(target)
	}

	name, subpath := splitPackage(specifier)
	for current := dir; ; current = filepath.Dir(current) {
		if filepath.Base(current) != "node_modules" {
			pkgDir := filepath.Join(current, "node_modules", filepath.FromSlash(name))
			if isDir(pkgDir) {
				if subpath == "" {
					if path, err := loadDirectory(pkgDir); err == nil {
						return path, nil
					}
				} else if path, err := loadFileOrDirectory(filepath.Join(pkgDir, filepath.FromSlash(subpath))); err == nil {
					return path, nil
				}
			}
		}
		if parent := filepath.Dir(current); parent == current {
			break
		}
	}
	return "", ErrNotFound
}

// splitPackage splits a bare specifier into its package name and subpath.
func splitPackage(specifier string) (name, subpath string) {
	parts := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") && len(parts) >= 2 {
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return name, subpath
	}
	name, subpath, _ = strings.Cut(specifier, "/")
	return name, subpath
}

func loadFileOrDirectory(target string) (string, error) {
	if path, ok := loadFile(target); ok {
		return path, nil
	}
	return loadDirectory(target)
}

func loadFile(target string) (string, bool) {
	if isFile(target) {
		return target, true
	}
	for _, ext := range Extensions {
		if isFile(target + ext) {
			return target + ext, true
		}
	}
	return "", false
}

func loadDirectory(dir string) (string, error) {
	if !isDir(dir) {
		return "", ErrNotFound
	}
	if data, err := os.ReadFile(filepath.Join(dir, "package.json")); err == nil {
		var manifest map[string]any
		if json.Unmarshal(data, &manifest) == nil {
			for _, field := range entryFields {
				entry, ok := manifest[field].(string)
				if !ok || entry == "" {
					continue
				}
				if path, ok := loadFile(filepath.Join(dir, filepath.FromSlash(entry))); ok {
					return path, nil
				}
			}
		}
	}
	if path, ok := loadFile(filepath.Join(dir, "index")); ok {
		return path, nil
	}
	return "", ErrNotFound
}

// ===== HELPERS =====

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
