package boundary

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/perimeter/pkg/enum"
	"github.com/praetorian-inc/perimeter/pkg/resolve"
	"github.com/praetorian-inc/perimeter/pkg/types"
	"github.com/praetorian-inc/perimeter/pkg/workspace"
)

// fixture lays out packages/a under a temporary repository root.
func fixture(t *testing.T, files map[string]string) (*workspace.Package, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "packages", "a")
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return &workspace.Package{Name: "pkg-a", Dir: dir, Manifest: &workspace.Manifest{Name: "pkg-a"}}, root
}

func builtinResolver() resolve.Resolver {
	return resolve.ResolverFunc(func(dir, spec string) (string, error) {
		if resolve.Builtin(spec) {
			return "", &resolve.BuiltinError{Name: spec}
		}
		return "", resolve.ErrNotFound
	})
}

func kinds(diags []*types.Diagnostic) []types.DiagnosticKind {
	out := make([]types.DiagnosticKind, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}

func TestCheckPackage_UndeclaredPackage(t *testing.T) {
	src := `import { map } from "lodash";` + "\n"
	pkg, _ := fixture(t, map[string]string{"src/index.ts": src})

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "pkg-a", report.Package)
	assert.Equal(t, 1, report.Files)
	require.Len(t, report.Diagnostics, 1)

	d := report.Diagnostics[0]
	assert.Equal(t, types.KindPackageNotFound, d.Kind)
	assert.Contains(t, d.Message, "lodash")
	start := strings.Index(src, `"lodash"`)
	assert.Equal(t, types.OffsetSpan{Start: int64(start), End: int64(start + len(`"lodash"`))}, d.Location.Offset)
	assert.Equal(t, 1, d.Location.Source.Start.Line)
	assert.Equal(t, start+1, d.Location.Source.Start.Column)
}

func TestCheckPackage_JSXTextDoesNotHideImports(t *testing.T) {
	src := strings.Join([]string{
		`import { map } from "lodash";`,
		`export const Note = ({ ok }) => <p>Don't {ok ? 'yes' : 'no'}</p>;`,
		`if (ok) /'/.test(String(ok));`,
	}, "\n") + "\n"
	pkg, _ := fixture(t, map[string]string{"src/Note.jsx": src})

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, types.KindPackageNotFound, report.Diagnostics[0].Kind)
	assert.Equal(t, "lodash", report.Diagnostics[0].Specifier)
}

func TestCheckPackage_NonASCIISpanAndColumn(t *testing.T) {
	src := "const greeting = \"héllo wörld\";\nconst 日本 = 1; import { map } from \"lodash\";\n"
	pkg, _ := fixture(t, map[string]string{"src/index.ts": src})

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)

	// Offsets count bytes; columns count characters.
	loc := report.Diagnostics[0].Location
	start := strings.Index(src, `"lodash"`)
	assert.Equal(t, types.OffsetSpan{Start: int64(start), End: int64(start + len(`"lodash"`))}, loc.Offset)
	assert.Equal(t, `"lodash"`, src[loc.Offset.Start:loc.Offset.End])
	assert.Equal(t, 2, loc.Source.Start.Line)
	assert.Equal(t, len([]rune("const 日本 = 1; import { map } from "))+1, loc.Source.Start.Column)
	assert.Equal(t, `"lodash"`, report.Diagnostics[0].Snippet.Matching)
}

func TestCheckPackage_ImportLeavesPackage(t *testing.T) {
	pkg, _ := fixture(t, map[string]string{"src/index.ts": `import "../../b/secret";` + "\n"})

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, types.KindImportLeavesPackage, report.Diagnostics[0].Kind)
	assert.Equal(t, "../../b/secret", report.Diagnostics[0].Specifier)
}

func TestCheckPackage_BuiltinWithTypesOnly(t *testing.T) {
	pkg, _ := fixture(t, map[string]string{"src/index.ts": `import fs from "fs";` + "\n"})
	pkg.Manifest.DevDependencies = map[string]string{"@types/node": "^20.0.0"}

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{
		Resolver: builtinResolver(),
	})
	require.NoError(t, err)
	assert.Empty(t, report.Diagnostics)
	assert.NotNil(t, report.Diagnostics)
}

func TestCheckPackage_ParseErrorIsolated(t *testing.T) {
	pkg, _ := fixture(t, map[string]string{
		"a.ts": `import x from "missing-a";` + "\n",
		"b.ts": "const x = (1;\n",
		"c.ts": `import y from "missing-c";` + "\n",
	})

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Files)
	require.Equal(t, []types.DiagnosticKind{
		types.KindPackageNotFound,
		types.KindParseError,
		types.KindPackageNotFound,
	}, kinds(report.Diagnostics))

	parseErr := report.Diagnostics[1]
	assert.Equal(t, filepath.Join(pkg.Dir, "b.ts"), parseErr.Path)
	assert.Contains(t, parseErr.Message, "failed to parse file")
	assert.NotEmpty(t, parseErr.Label)
}

func TestCheckPackage_Ordering(t *testing.T) {
	files := map[string]string{}
	var want []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files["src/"+name+".ts"] = "import one from \"" + name + "-one\";\nimport two from \"" + name + "-two\";\n"
		want = append(want, name+"-one", name+"-two")
	}
	pkg, _ := fixture(t, files)

	for run := 0; run < 5; run++ {
		report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{
			Files: enum.Config{Readers: 4},
		})
		require.NoError(t, err)

		var got []string
		for _, d := range report.Diagnostics {
			got = append(got, d.Specifier)
		}
		assert.Equal(t, want, got)
	}
}

func TestCheckPackage_DeclaredAndTypeOnly(t *testing.T) {
	src := strings.Join([]string{
		`import { map } from "lodash";`,
		`import type { FC } from "react";`,
		`import React from "react";`,
		`import { helper } from "pkg-b";`,
		`import Button from "@/components/Button";`,
		`export { thing } from "./local";`,
		`const lazy = import("left-pad");`,
		`const cjs = require("debug");`,
	}, "\n") + "\n"
	pkg, _ := fixture(t, map[string]string{"src/index.tsx": src})
	deps := &workspace.DependencyContext{
		Internal:         map[string]struct{}{"pkg-b": {}},
		ResolvedExternal: map[string]string{"lodash": "4.17.21", "debug": "4.3.4"},
		Manifest:         &workspace.Manifest{DevDependencies: map[string]string{"@types/react": "^18"}},
	}

	report, err := CheckPackage(context.Background(), pkg, deps, Options{})
	require.NoError(t, err)
	require.Equal(t, []types.DiagnosticKind{
		types.KindNotTypeOnlyImport,
		types.KindPackageNotFound,
	}, kinds(report.Diagnostics))
	assert.Equal(t, "react", report.Diagnostics[0].Specifier)
	assert.Equal(t, "left-pad", report.Diagnostics[1].Specifier)
}

func TestCheckPackage_VueComponent(t *testing.T) {
	src := "<template><div/></template>\n<script setup lang=\"ts\">\nimport { ref } from \"vue\";\n</script>\n"
	pkg, _ := fixture(t, map[string]string{"App.vue": src})

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)

	d := report.Diagnostics[0]
	start := strings.Index(src, `"vue"`)
	assert.Equal(t, int64(start), d.Location.Offset.Start)
	assert.Equal(t, 3, d.Location.Source.Start.Line)
}

func TestCheckPackage_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	pkg, _ := fixture(t, map[string]string{
		"a.ts": "export const a = 1;\n",
		"b.ts": "export const b = 2;\n",
	})
	locked := filepath.Join(pkg.Dir, "b.ts")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, types.KindFileNotFound, report.Diagnostics[0].Kind)
	assert.Equal(t, locked, report.Diagnostics[0].Path)
}

func TestCheckPackage_OversizedFileSkipped(t *testing.T) {
	pkg, _ := fixture(t, map[string]string{
		"small.ts": `import a from "undeclared";` + "\n",
		"big.ts":   strings.Repeat("// padding\n", 100) + `import b from "undeclared";` + "\n",
	})

	var logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)

	report, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{Manifest: pkg.Manifest}, Options{
		Files:  enum.Config{MaxFileSize: 256},
		Logger: logger,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, filepath.Join(pkg.Dir, "small.ts"), report.Diagnostics[0].Path)
	assert.Contains(t, logs.String(), "skipping file larger than 256 bytes")
}

func TestCheckPackage_MissingDirIsFatal(t *testing.T) {
	pkg := &workspace.Package{Name: "gone", Dir: filepath.Join(t.TempDir(), "gone"), Manifest: &workspace.Manifest{}}

	_, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{}, Options{})
	require.Error(t, err)
	var fatal *types.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, types.FatalEnumeration, fatal.Kind)
}

func TestCheckPackage_InvalidIncludeGlob(t *testing.T) {
	pkg, _ := fixture(t, nil)

	_, err := CheckPackage(context.Background(), pkg, &workspace.DependencyContext{}, Options{
		Files: enum.Config{Include: []string{"[a-"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pkg-a")
}
