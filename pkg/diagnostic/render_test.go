package diagnostic

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/praetorian-inc/perimeter/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Located(t *testing.T) {
	content := "import { map } from \"lodash\";\n"
	file := sourceFile("/repo/packages/a/src/x.ts", content)
	d := NewFactory("pkg-a", 2).PackageNotFound(file, importOf(content, `"lodash"`), "lodash")

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false, "/repo/packages/a").Render(d))

	want := "error[package-not-found]: cannot import package `lodash` because it is not a dependency\n" +
		" --> src/x.ts:1:21\n" +
		"  |\n" +
		"1 | import { map } from \"lodash\";\n" +
		"  |                     ^^^^^^^^ package imported here\n" +
		"  |\n" +
		"  = help: add `lodash` to the dependencies of `pkg-a`\n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderer_ContextLinesAndGutterWidth(t *testing.T) {
	content := "a\nb\nc\nd\ne\nf\ng\nh\ni\nimport x from \"../../b/secret\";\nk\nl\n"
	file := sourceFile("/repo/packages/a/src/x.ts", content)
	d := NewFactory("pkg-a", 2).ImportLeavesPackage(file, importOf(content, `"../../b/secret"`))

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false, "").Render(d))
	out := buf.String()

	assert.Contains(t, out, "  --> /repo/packages/a/src/x.ts:10:15\n")
	assert.Contains(t, out, "\n 8 | h\n")
	assert.Contains(t, out, "\n10 | import x from \"../../b/secret\";\n")
	assert.Contains(t, out, "\n   | "+strings.Repeat(" ", 14)+strings.Repeat("^", 16)+" file imported here\n")
	assert.Contains(t, out, "\n12 | l\n")
	assert.NotContains(t, out, " 7 | g")
}

func TestRenderer_Unlocated(t *testing.T) {
	d := NewFactory("a", 2).FileNotFound("/repo/a/gone.ts", errors.New("permission denied"))

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false, "/repo").Render(d))
	assert.Equal(t,
		"error[file-not-found]: failed to read file: /repo/a/gone.ts\n"+
			"  --> a/gone.ts\n"+
			"   = permission denied\n"+
			"\n",
		buf.String())
}

func TestRenderer_Summary(t *testing.T) {
	report := &types.Report{Packages: []*types.PackageReport{
		{Package: "a", Files: 3},
		{Package: "b", Files: 2, Diagnostics: []*types.Diagnostic{{Kind: types.KindPath}}},
	}}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false, "").Summary(report))
	assert.Equal(t, "Checked 5 files in 2 packages: 1 issue found\n", buf.String())

	buf.Reset()
	require.NoError(t, NewRenderer(&buf, false, "").Summary(&types.Report{}))
	assert.Equal(t, "Checked 0 files in 0 packages: no boundary violations\n", buf.String())
}

func TestRenderer_Color(t *testing.T) {
	d := NewFactory("a", 2).FileNotFound("/x.ts", nil)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, true, "").Render(d))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestColorEnabled(t *testing.T) {
	assert.True(t, ColorEnabled("always", nil))
	assert.False(t, ColorEnabled("never", nil))
	assert.False(t, ColorEnabled("auto", nil))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled("auto", nil))
}
