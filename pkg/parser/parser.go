// Package parser turns JavaScript and TypeScript source text into the list of
// module items the boundary checker cares about: static imports, re-exports,
// import-equals declarations, dynamic imports and require calls.
//
// ModuleParser, the default, does not build a full expression tree. It lexes
// the whole file (so unterminated literals and unbalanced brackets are
// reported as syntax errors) and recognizes module items over the resulting
// token stream. TreeSitterParser parses with the tree-sitter grammars and is
// available in cgo builds.
package parser

import (
	"fmt"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// ItemKind is the syntactic shape of a module item.
type ItemKind int

const (
	// ItemImport is a static import declaration, including `import "x"`.
	ItemImport ItemKind = iota
	// ItemImportEquals is a TypeScript `import x = require("x")`.
	ItemImportEquals
	// ItemExportFrom is `export {..} from "x"`, `export * from "x"` or `export * as ns from "x"`.
	ItemExportFrom
	// ItemDynamicImport is `import("x")` with a string literal argument.
	ItemDynamicImport
	// ItemRequire is `require("x")` with a string literal argument.
	ItemRequire
)

// String returns the item kind name.
func (k ItemKind) String() string {
	switch k {
	case ItemImportEquals:
		return "import-equals"
	case ItemExportFrom:
		return "export-from"
	case ItemDynamicImport:
		return "dynamic-import"
	case ItemRequire:
		return "require"
	default:
		return "import"
	}
}

// Binding is one name brought in (or re-exported) by a declaration.
type Binding struct {
	Name     string
	TypeOnly bool // carries its own `type` modifier
}

// Item is one module item that references another module.
type Item struct {
	Kind      ItemKind
	Specifier string           // decoded string literal value
	Span      types.OffsetSpan // byte span of the literal, quotes included
	TypeOnly  bool             // declaration-level `type` (or `typeof import(...)`)
	Bindings  []Binding
}

// Module is the parsed form of one source text.
type Module struct {
	Items []Item
}

// Config selects the grammar used for a source text.
type Config struct {
	TypeScript bool
	JSX        bool
	Decorators bool
}

// ConfigFor returns the grammar configuration for a dialect.
func ConfigFor(d types.Dialect) Config {
	return Config{
		TypeScript: d.IsTypeScript(),
		JSX:        d.JSX(),
		Decorators: d.IsTypeScript(),
	}
}

// SyntaxError reports why a source text could not be parsed.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

// Parser parses a source text under a grammar configuration.
type Parser interface {
	Parse(src []byte, cfg Config) (*Module, error)
}

// Parser names accepted by ByName.
const (
	NameBuiltin    = "builtin"
	NameTreeSitter = "tree-sitter"
)

// Names lists the selectable parsers.
var Names = []string{NameBuiltin, NameTreeSitter}

// ByName returns the parser registered under name; empty selects the
// default.
func ByName(name string) (Parser, error) {
	switch name {
	case "", NameBuiltin:
		return New(), nil
	case NameTreeSitter:
		p, err := NewTreeSitter()
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown parser %q (want builtin or tree-sitter)", name)
	}
}

// ModuleParser is the default Parser.
type ModuleParser struct{}

// New returns the default parser.
func New() *ModuleParser {
	return &ModuleParser{}
}

// Parse lexes src and collects its module items.
func (p *ModuleParser) Parse(src []byte, cfg Config) (*Module, error) {
	toks, err := tokenize(src, cfg)
	if err != nil {
		return nil, err
	}
	items, err := collectItems(toks, cfg)
	if err != nil {
		return nil, err
	}
	return &Module{Items: items}, nil
}
