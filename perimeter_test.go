package perimeter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/resolve"
	"github.com/praetorian-inc/perimeter/pkg/types"
	"github.com/praetorian-inc/perimeter/pkg/workspace"
)

// ===== HELPERS =====

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

const fixtureLock = `{
  "name": "root",
  "lockfileVersion": 3,
  "packages": {
    "": {"name": "root", "workspaces": ["packages/*"]},
    "packages/a": {"name": "a", "version": "1.0.0", "dependencies": {"lodash": "^4", "b": "*"}},
    "packages/b": {"name": "b", "version": "1.0.0"},
    "node_modules/a": {"resolved": "packages/a", "link": true},
    "node_modules/b": {"resolved": "packages/b", "link": true},
    "node_modules/lodash": {"version": "4.17.21"}
  }
}`

// fixtureWorkspace builds a two-package npm workspace:
//
//	a: declares lodash and b; imports lodash, b, react (undeclared), fs, and
//	   reaches into b through a relative path
//	b: one clean file and one file that does not parse
func fixtureWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json":      `{"name": "root", "private": true, "workspaces": ["packages/*"]}`,
		"package-lock.json": fixtureLock,
		"packages/a/package.json": `{
			"name": "a",
			"dependencies": {"lodash": "^4", "b": "*"},
			"devDependencies": {"@types/node": "^20"}
		}`,
		"packages/a/src/index.ts": `import { map } from "lodash";
import { helper } from "b";
import React from "react";
import fs from "fs";
import secret from "../../b/src/secret";
`,
		"packages/a/src/util.ts":             `export const id = (x: unknown) => x;` + "\n",
		"packages/a/node_modules/x/index.js": `import "undeclared-in-node-modules";` + "\n",
		"packages/b/package.json":            `{"name": "b"}`,
		"packages/b/src/index.ts":            `export const helper = 1;` + "\n",
		"packages/b/src/broken.ts":           "export const x = {;\n",
	})
	return root
}

func kindsOf(diags []*types.Diagnostic) []types.DiagnosticKind {
	out := make([]types.DiagnosticKind, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}

// ===== TESTS =====

func TestCheckWorkspace(t *testing.T) {
	root := fixtureWorkspace(t)

	checker, err := NewChecker(WithWorkers(2))
	require.NoError(t, err)

	report, err := checker.CheckWorkspace(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Packages, 2)

	a := report.Packages[0]
	assert.Equal(t, "a", a.Package)
	assert.Equal(t, 2, a.Files)
	assert.Equal(t, []types.DiagnosticKind{KindPackageNotFound, KindImportLeavesPackage}, kindsOf(a.Diagnostics))
	assert.Equal(t, "react", a.Diagnostics[0].Specifier)
	assert.Equal(t, 3, a.Diagnostics[0].Location.Source.Start.Line)

	b := report.Packages[1]
	assert.Equal(t, "b", b.Package)
	assert.Equal(t, 2, b.Files)
	assert.Equal(t, []types.DiagnosticKind{KindParseError}, kindsOf(b.Diagnostics))

	assert.Equal(t, 3, report.Count())
	assert.Equal(t, 4, report.FileCount())
}

func TestCheckWorkspace_Deterministic(t *testing.T) {
	root := fixtureWorkspace(t)
	checker, err := NewChecker(WithWorkers(8))
	require.NoError(t, err)

	first, err := checker.CheckWorkspace(context.Background(), root)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := checker.CheckWorkspace(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCheckWorkspace_PackageFilter(t *testing.T) {
	root := fixtureWorkspace(t)

	checker, err := NewChecker(WithPackageFilter([]string{"b"}))
	require.NoError(t, err)
	report, err := checker.CheckWorkspace(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Packages, 1)
	assert.Equal(t, "b", report.Packages[0].Package)

	checker, err = NewChecker(WithPackageFilter([]string{"nope"}))
	require.NoError(t, err)
	_, err = checker.CheckWorkspace(context.Background(), root)
	assert.ErrorContains(t, err, `no workspace package named "nope"`)
}

func TestCheckWorkspace_KindFilterAndExcludes(t *testing.T) {
	root := fixtureWorkspace(t)

	checker, err := NewChecker(
		WithKindFilter(diagnostic.FilterConfig{Exclude: []string{"parse-error"}}),
		WithExtraExcludes([]string{"src/index.ts"}),
	)
	require.NoError(t, err)

	report, err := checker.CheckWorkspace(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Count())
	assert.Equal(t, 2, report.FileCount())
}

func TestCheckWorkspace_TypesOnlyWithoutBuiltinResolver(t *testing.T) {
	root := fixtureWorkspace(t)

	// a resolver that knows no builtins turns the fs value import into a
	// type-only violation through @types/node
	checker, err := NewChecker(
		WithPackageFilter([]string{"a"}),
		WithResolver(resolve.ResolverFunc(func(dir, spec string) (string, error) {
			return "", resolve.ErrNotFound
		})),
	)
	require.NoError(t, err)

	report, err := checker.CheckWorkspace(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t,
		[]types.DiagnosticKind{KindPackageNotFound, KindNotTypeOnlyImport, KindImportLeavesPackage},
		kindsOf(report.Packages[0].Diagnostics))
}

func TestCheckWorkspace_VCSIgnore(t *testing.T) {
	root := fixtureWorkspace(t)
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	writeFiles(t, root, map[string]string{
		".gitignore":                  "generated/\n",
		"packages/a/generated/api.ts": `import "undeclared";` + "\n",
	})

	checker, err := NewChecker(WithPackageFilter([]string{"a"}))
	require.NoError(t, err)
	report, err := checker.CheckWorkspace(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Packages[0].Files)

	checker, err = NewChecker(WithPackageFilter([]string{"a"}), WithVCS(false))
	require.NoError(t, err)
	report, err = checker.CheckWorkspace(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Packages[0].Files)
}

func TestCheckWorkspace_MissingManifestIsFatal(t *testing.T) {
	checker, err := NewChecker()
	require.NoError(t, err)

	_, err = checker.CheckWorkspace(context.Background(), t.TempDir())
	require.Error(t, err)
	var fatal *types.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, types.FatalWorkspace, fatal.Kind)
}

func TestCheckWorkspace_CorruptLockfileIsFatal(t *testing.T) {
	root := fixtureWorkspace(t)
	writeFiles(t, root, map[string]string{"package-lock.json": "{"})

	checker, err := NewChecker()
	require.NoError(t, err)
	_, err = checker.CheckWorkspace(context.Background(), root)
	var fatal *types.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, types.FatalLockfile, fatal.Kind)
}

func TestCheckWorkspace_Cancelled(t *testing.T) {
	root := fixtureWorkspace(t)
	checker, err := NewChecker()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = checker.CheckWorkspace(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckPackage(t *testing.T) {
	root := fixtureWorkspace(t)
	ws, err := workspace.Discover(root)
	require.NoError(t, err)
	pkg, ok := ws.Package("b")
	require.True(t, ok)

	checker, err := NewChecker(WithContextLines(0))
	require.NoError(t, err)
	report, err := checker.CheckPackage(context.Background(), ws, pkg)
	require.NoError(t, err)
	assert.Equal(t, []types.DiagnosticKind{KindParseError}, kindsOf(report.Diagnostics))
	assert.Equal(t, filepath.Join(root, "packages", "b", "src", "broken.ts"), report.Diagnostics[0].Path)
}

func TestNewChecker_InvalidOptions(t *testing.T) {
	_, err := NewChecker(WithContextLines(-1))
	assert.ErrorContains(t, err, "context lines")

	_, err = NewChecker(WithMaxFileSize(-1))
	assert.ErrorContains(t, err, "max file size")

	_, err = NewChecker(WithKindFilter(diagnostic.FilterConfig{Include: []string{"("}}))
	assert.ErrorContains(t, err, "invalid kind filter")

	_, err = NewChecker(WithExtraIncludes([]string{"[a-"}))
	assert.ErrorContains(t, err, "invalid include pattern")
}

func TestChecker_With(t *testing.T) {
	root := fixtureWorkspace(t)

	base, err := NewChecker(WithWorkers(2))
	require.NoError(t, err)

	narrowed, err := base.With(WithPackageFilter([]string{"b"}))
	require.NoError(t, err)
	assert.Same(t, base.config.resolver, narrowed.config.resolver)
	assert.Equal(t, 2, narrowed.config.workers)
	assert.Empty(t, base.config.packages)

	report, err := narrowed.CheckWorkspace(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Packages, 1)
	assert.Equal(t, "b", report.Packages[0].Package)

	_, err = base.With(WithKindFilter(diagnostic.FilterConfig{Include: []string{"("}}))
	assert.ErrorContains(t, err, "invalid kind filter")
}
