package boundary

import (
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/resolve"
	"github.com/praetorian-inc/perimeter/pkg/types"
	"github.com/praetorian-inc/perimeter/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pkgDir = filepath.FromSlash("/repo/packages/a")

func newChecker(deps *workspace.DependencyContext, r resolve.Resolver) *Checker {
	return &Checker{
		Package:  &workspace.Package{Name: "pkg-a", Dir: pkgDir, Manifest: &workspace.Manifest{Name: "pkg-a"}},
		Deps:     deps,
		Resolver: r,
		Diags:    diagnostic.NewFactory("pkg-a", 0),
	}
}

// importOf builds a source file whose only content is an import of spec and
// an Import whose span covers the quoted literal.
func importOf(t *testing.T, rel, spec string, typeOnly bool) (*types.SourceFile, types.Import) {
	t.Helper()
	prefix := "import x from "
	literal := `"` + spec + `"`
	content := []byte(prefix + literal + ";\n")
	file := types.NewSourceFile(filepath.Join(pkgDir, filepath.FromSlash(rel)), content)
	imp := types.Import{
		Specifier: spec,
		Span:      types.OffsetSpan{Start: int64(len(prefix)), End: int64(len(prefix) + len(literal))},
		TypeOnly:  typeOnly,
	}
	return file, imp
}

func TestIsDependency_EachSourceIndependently(t *testing.T) {
	tests := []struct {
		name string
		deps *workspace.DependencyContext
	}{
		{"internal", &workspace.DependencyContext{Internal: map[string]struct{}{"x": {}}}},
		{"resolved external", &workspace.DependencyContext{ResolvedExternal: map[string]string{"x": "1.0.0"}}},
		{"unresolved external", &workspace.DependencyContext{UnresolvedExternal: map[string]string{"x": "^1"}}},
		{"dependencies", &workspace.DependencyContext{Manifest: &workspace.Manifest{Dependencies: map[string]string{"x": "^1"}}}},
		{"devDependencies", &workspace.DependencyContext{Manifest: &workspace.Manifest{DevDependencies: map[string]string{"x": "^1"}}}},
		{"peerDependencies", &workspace.DependencyContext{Manifest: &workspace.Manifest{PeerDependencies: map[string]string{"x": "^1"}}}},
		{"optionalDependencies", &workspace.DependencyContext{Manifest: &workspace.Manifest{OptionalDependencies: map[string]string{"x": "^1"}}}},
	}
	require.Len(t, tests, len(dependencySources))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsDependency(tt.deps, "x"))
			assert.False(t, IsDependency(tt.deps, "y"))
		})
	}
}

func TestIsDependency_Empty(t *testing.T) {
	assert.False(t, IsDependency(nil, "x"))
	assert.False(t, IsDependency(&workspace.DependencyContext{}, "x"))
}

func TestCheckPackageImport_Declared(t *testing.T) {
	deps := &workspace.DependencyContext{ResolvedExternal: map[string]string{"lodash": "4.17.21"}}
	c := newChecker(deps, nil)

	file, imp := importOf(t, "src/index.ts", "lodash", false)
	assert.Nil(t, c.CheckPackageImport(file, imp))
}

func TestCheckPackageImport_Scoped(t *testing.T) {
	deps := &workspace.DependencyContext{UnresolvedExternal: map[string]string{"@scope/pkg": "^1"}}
	c := newChecker(deps, nil)

	file, imp := importOf(t, "src/index.ts", "@scope/pkg", false)
	assert.Nil(t, c.CheckPackageImport(file, imp))
}

func TestCheckImport_ScopedDeepImportIsUnclassified(t *testing.T) {
	// deep imports are never checked, declared or not
	c := newChecker(&workspace.DependencyContext{}, nil)

	file, imp := importOf(t, "src/index.ts", "@scope/pkg/sub", false)
	assert.Nil(t, c.CheckImport(file, &imp))
	assert.Equal(t, types.ImportKindUnclassified, imp.Kind)
}

func TestCheckPackageImport_NotFound(t *testing.T) {
	c := newChecker(&workspace.DependencyContext{}, nil)

	file, imp := importOf(t, "src/index.ts", "lodash", false)
	d := c.CheckPackageImport(file, imp)
	require.NotNil(t, d)
	assert.Equal(t, types.KindPackageNotFound, d.Kind)
	assert.Contains(t, d.Message, "lodash")
	assert.Equal(t, imp.Span, d.Location.Offset)
	assert.Equal(t, "pkg-a", d.Package)
}

func TestCheckPackageImport_ResolvableButUndeclared(t *testing.T) {
	r := resolve.ResolverFunc(func(dir, spec string) (string, error) {
		return filepath.Join("/repo/node_modules", spec, "index.js"), nil
	})
	c := newChecker(&workspace.DependencyContext{}, r)

	file, imp := importOf(t, "src/index.ts", "lodash", false)
	d := c.CheckPackageImport(file, imp)
	require.NotNil(t, d)
	assert.Equal(t, types.KindPackageNotFound, d.Kind)
}

func TestCheckPackageImport_TypesFallback(t *testing.T) {
	deps := &workspace.DependencyContext{Manifest: &workspace.Manifest{DevDependencies: map[string]string{"@types/react": "^18"}}}
	c := newChecker(deps, nil)

	file, imp := importOf(t, "src/index.ts", "react", true)
	assert.Nil(t, c.CheckPackageImport(file, imp))

	file, imp = importOf(t, "src/index.ts", "react", false)
	d := c.CheckPackageImport(file, imp)
	require.NotNil(t, d)
	assert.Equal(t, types.KindNotTypeOnlyImport, d.Kind)
	assert.Contains(t, d.Help, "type")
}

func TestCheckPackageImport_BuiltinExempt(t *testing.T) {
	deps := &workspace.DependencyContext{Manifest: &workspace.Manifest{DevDependencies: map[string]string{"@types/node": "^20"}}}
	builtins := resolve.ResolverFunc(func(dir, spec string) (string, error) {
		if resolve.Builtin(spec) {
			return "", &resolve.BuiltinError{Name: spec}
		}
		return "", resolve.ErrNotFound
	})
	c := newChecker(deps, builtins)

	file, imp := importOf(t, "src/index.ts", "fs", false)
	assert.Nil(t, c.CheckPackageImport(file, imp))

	// without a resolver the value import falls through to @types/node
	c = newChecker(deps, nil)
	d := c.CheckPackageImport(file, imp)
	require.NotNil(t, d)
	assert.Equal(t, types.KindNotTypeOnlyImport, d.Kind)
}

func TestCheckFileImport(t *testing.T) {
	c := newChecker(&workspace.DependencyContext{}, nil)

	tests := []struct {
		from string
		spec string
		want types.DiagnosticKind
	}{
		{"src/index.ts", "./util", ""},
		{"src/index.ts", "../lib/x", ""},
		{"src/index.ts", "..", ""},
		{"index.ts", ".", ""},
		{"src/index.ts", "../../b/secret", types.KindImportLeavesPackage},
		{"index.ts", "..", types.KindImportLeavesPackage},
		{"src/deep/index.ts", "../../../../../../../../etc/passwd", types.KindImportLeavesPackage},
		{"src/index.ts", "../../a-other/x", types.KindImportLeavesPackage},
		{"src/index.ts", "./bad\x00name", types.KindPath},
		{"src/index.ts", "./bad\xffname", types.KindPath},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.spec, func(t *testing.T) {
			file, imp := importOf(t, tt.from, tt.spec, false)
			d := c.CheckFileImport(file, imp)
			if tt.want == "" {
				assert.Nil(t, d)
				return
			}
			require.NotNil(t, d)
			assert.Equal(t, tt.want, d.Kind)
			assert.Equal(t, imp.Span, d.Location.Offset)
		})
	}
}

func TestCheckImport_SetsKind(t *testing.T) {
	c := newChecker(&workspace.DependencyContext{}, nil)

	file, imp := importOf(t, "src/index.ts", "@/components/Button", false)
	assert.Nil(t, c.CheckImport(file, &imp))
	assert.Equal(t, types.ImportKindUnclassified, imp.Kind)

	file, imp = importOf(t, "src/index.ts", "lodash/fp", false)
	assert.Nil(t, c.CheckImport(file, &imp))
	assert.Equal(t, types.ImportKindUnclassified, imp.Kind)

	file, imp = importOf(t, "src/index.ts", "./x", false)
	assert.Nil(t, c.CheckImport(file, &imp))
	assert.Equal(t, types.ImportKindRelativeFile, imp.Kind)

	file, imp = importOf(t, "src/index.ts", "lodash", false)
	assert.NotNil(t, c.CheckImport(file, &imp))
	assert.Equal(t, types.ImportKindBarePackage, imp.Kind)
}
