//go:build cgo

package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

func treeParse(t *testing.T, src string, d types.Dialect) *Module {
	t.Helper()
	p, err := NewTreeSitter()
	require.NoError(t, err)
	mod, err := p.Parse([]byte(src), ConfigFor(d))
	require.NoError(t, err)
	return mod
}

func TestTreeSitter_ImportForms(t *testing.T) {
	src := strings.Join([]string{
		`import "side-effect";`,
		`import def from "default";`,
		`import * as ns from "namespace";`,
		`import def2, { a, b as c } from "mixed";`,
		`export * from "all";`,
		`export { x as y } from "named";`,
		`const fs = require("fs");`,
		`const lazy = import("./lazy");`,
		`const other = module.require("not-a-require");`,
	}, "\n")
	mod := treeParse(t, src, types.DialectJS)

	assert.Equal(t, []string{"side-effect", "default", "namespace", "mixed", "all", "named", "fs", "./lazy"}, specifiers(mod))
	assert.Equal(t, spanOf(src, `"mixed"`), mod.Items[3].Span)
	assert.Equal(t, []Binding{{Name: "def2"}, {Name: "a"}, {Name: "c"}}, mod.Items[3].Bindings)
	assert.Equal(t, ItemExportFrom, mod.Items[4].Kind)
	assert.Equal(t, []Binding{{Name: "y"}}, mod.Items[5].Bindings)
	assert.Equal(t, ItemRequire, mod.Items[6].Kind)
	assert.Equal(t, ItemDynamicImport, mod.Items[7].Kind)
}

func TestTreeSitter_TypeOnly(t *testing.T) {
	src := strings.Join([]string{
		`import type { A } from "decl";`,
		`import { type B, C } from "mixed";`,
		`import fs = require("fs");`,
	}, "\n")
	mod := treeParse(t, src, types.DialectTS)

	require.Len(t, mod.Items, 3)
	assert.True(t, mod.Items[0].TypeOnly)
	assert.False(t, mod.Items[1].TypeOnly)
	assert.Equal(t, []Binding{{Name: "B", TypeOnly: true}, {Name: "C"}}, mod.Items[1].Bindings)
	assert.Equal(t, ItemImportEquals, mod.Items[2].Kind)
	assert.Equal(t, "fs", mod.Items[2].Specifier)
}

func TestTreeSitter_JSXTextAndRegex(t *testing.T) {
	src := strings.Join([]string{
		`import a from "a";`,
		`const el = <p>Don't {ok ? 'yes' : 'no'}</p>;`,
		`if (a) /'/.test(String(a));`,
		`import b from "b";`,
	}, "\n")

	for _, d := range []types.Dialect{types.DialectJS, types.DialectTSX} {
		t.Run(d.String(), func(t *testing.T) {
			mod := treeParse(t, src, d)
			assert.Equal(t, []string{"a", "b"}, specifiers(mod))
		})
	}
}

func TestTreeSitter_AgreesWithModuleParser(t *testing.T) {
	src := strings.Join([]string{
		`import { map } from "lodash";`,
		`import "../../b/secret";`,
		`import escaped from "\x6co\u{64}ash";`,
		`export * as ns from "ns";`,
		`const x = require("x");`,
	}, "\n")

	tree := treeParse(t, src, types.DialectTS)
	builtin := parseOK(t, src, types.DialectTS)
	assert.Equal(t, builtin.Items, tree.Items)
}

func TestTreeSitter_SyntaxError(t *testing.T) {
	p, err := NewTreeSitter()
	require.NoError(t, err)

	_, err = p.Parse([]byte("import { a from \"x\";\nconst = ;"), ConfigFor(types.DialectTS))
	require.Error(t, err)
	var syntaxErr *SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
}

func TestByName(t *testing.T) {
	p, err := ByName("")
	require.NoError(t, err)
	assert.IsType(t, &ModuleParser{}, p)

	p, err = ByName(NameTreeSitter)
	require.NoError(t, err)
	assert.IsType(t, &TreeSitterParser{}, p)

	_, err = ByName("esprima")
	assert.ErrorContains(t, err, "unknown parser")
}
