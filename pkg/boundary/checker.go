// Package boundary decides whether the imports of a workspace package stay
// within its declared dependencies and its own directory.
package boundary

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/resolve"
	"github.com/praetorian-inc/perimeter/pkg/types"
	"github.com/praetorian-inc/perimeter/pkg/workspace"
)

var (
	errNulByte     = errors.New("path contains a NUL byte")
	errInvalidUTF8 = errors.New("path is not valid UTF-8")
)

// Checker validates the imports of one package. It is safe for concurrent
// use as long as Resolver is.
type Checker struct {
	Package  *workspace.Package
	Deps     *workspace.DependencyContext
	Resolver resolve.Resolver
	Diags    *diagnostic.Factory
}

// CheckImport classifies imp in place and validates it. It returns nil when
// the import is allowed or not validated at all.
func (c *Checker) CheckImport(file *types.SourceFile, imp *types.Import) *types.Diagnostic {
	imp.Kind = Classify(imp.Specifier)
	switch imp.Kind {
	case types.ImportKindRelativeFile:
		return c.CheckFileImport(file, *imp)
	case types.ImportKindBarePackage:
		return c.CheckPackageImport(file, *imp)
	default:
		return nil
	}
}

// CheckPackageImport validates a bare package import. Declared packages and
// runtime builtins are allowed. Otherwise the package's @types package
// decides: declared, it allows type-only imports and rejects value imports.
func (c *Checker) CheckPackageImport(file *types.SourceFile, imp types.Import) *types.Diagnostic {
	name := PackageName(imp.Specifier)
	if IsDependency(c.Deps, name) {
		return nil
	}

	if c.Resolver != nil {
		if _, err := c.Resolver.Resolve(file.Dir(), imp.Specifier); resolve.IsBuiltin(err) {
			return nil
		}
	}

	if IsDependency(c.Deps, TypesPackage(name)) {
		if imp.TypeOnly {
			return nil
		}
		return c.Diags.NotTypeOnlyImport(file, imp)
	}
	return c.Diags.PackageNotFound(file, imp, name)
}

// CheckFileImport validates that a relative import stays inside the package
// directory.
func (c *Checker) CheckFileImport(file *types.SourceFile, imp types.Import) *types.Diagnostic {
	if err := validatePath(imp.Specifier); err != nil {
		return c.Diags.Path(file, imp, err)
	}

	target := filepath.Join(file.Dir(), filepath.FromSlash(imp.Specifier))
	switch Relation(c.Package.Dir, target) {
	case RelationEqual, RelationDescendant:
		return nil
	default:
		return c.Diags.ImportLeavesPackage(file, imp)
	}
}

func validatePath(specifier string) error {
	if strings.ContainsRune(specifier, 0) {
		return errNulByte
	}
	if !utf8.ValidString(specifier) {
		return errInvalidUTF8
	}
	return nil
}
