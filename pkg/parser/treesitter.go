//go:build cgo

package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// TreeSitterParser parses with the tree-sitter JavaScript, TypeScript and
// TSX grammars. It builds a full syntax tree per file, so it is slower than
// ModuleParser but follows the grammars exactly.
type TreeSitterParser struct{}

// NewTreeSitter returns a tree-sitter backed parser.
func NewTreeSitter() (*TreeSitterParser, error) {
	return &TreeSitterParser{}, nil
}

func grammar(cfg Config) *sitter.Language {
	switch {
	case cfg.TypeScript && cfg.JSX:
		return tsx.GetLanguage()
	case cfg.TypeScript:
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Parse builds the syntax tree of src and collects its module items. Any
// error or missing node in the tree fails the parse.
func (p *TreeSitterParser) Parse(src []byte, cfg Config) (*Module, error) {
	sp := sitter.NewParser()
	defer sp.Close()
	sp.SetLanguage(grammar(cfg))

	tree, err := sp.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, treeError(root)
	}

	w := &treeWalker{src: src}
	w.walk(root)
	if w.items == nil {
		w.items = []Item{}
	}
	return &Module{Items: w.items}, nil
}

// treeError locates the first error or missing node under n.
func treeError(n *sitter.Node) error {
	if n.IsMissing() {
		return &SyntaxError{Offset: int(n.StartByte()), Msg: fmt.Sprintf("missing %s", n.Type())}
	}
	if n.Type() == "ERROR" {
		return &SyntaxError{Offset: int(n.StartByte()), Msg: "unexpected input"}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && (child.HasError() || child.IsMissing()) {
			return treeError(child)
		}
	}
	return &SyntaxError{Offset: int(n.StartByte()), Msg: "unexpected input"}
}

type treeWalker struct {
	src   []byte
	items []Item
}

func (w *treeWalker) walk(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		w.importStatement(n)
		return
	case "export_statement":
		if w.exportFrom(n) {
			return
		}
	case "call_expression":
		w.call(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			w.walk(child)
		}
	}
}

func (w *treeWalker) add(kind ItemKind, lit *sitter.Node, typeOnly bool, bindings []Binding) {
	w.items = append(w.items, Item{
		Kind:      kind,
		Specifier: w.stringValue(lit),
		Span:      types.OffsetSpan{Start: int64(lit.StartByte()), End: int64(lit.EndByte())},
		TypeOnly:  typeOnly,
		Bindings:  bindings,
	})
}

func (w *treeWalker) importStatement(n *sitter.Node) {
	typeOnly := hasKeyword(n, "type")

	if source := n.ChildByFieldName("source"); source != nil {
		var bindings []Binding
		if clause := childOfType(n, "import_clause"); clause != nil {
			bindings = w.importBindings(clause)
		}
		w.add(ItemImport, source, typeOnly, bindings)
		return
	}

	// import x = require("x")
	if clause := childOfType(n, "import_require_clause"); clause != nil {
		source := clause.ChildByFieldName("source")
		if source == nil {
			source = childOfType(clause, "string")
		}
		if source == nil {
			return
		}
		var bindings []Binding
		if name := childOfType(clause, "identifier"); name != nil {
			bindings = []Binding{{Name: name.Content(w.src)}}
		}
		w.add(ItemImportEquals, source, typeOnly, bindings)
	}
}

func (w *treeWalker) importBindings(clause *sitter.Node) []Binding {
	var bindings []Binding
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "identifier":
			bindings = append(bindings, Binding{Name: child.Content(w.src)})
		case "namespace_import":
			if name := child.NamedChild(0); name != nil {
				bindings = append(bindings, Binding{Name: name.Content(w.src)})
			}
		case "named_imports":
			bindings = append(bindings, w.specifiers(child, "import_specifier")...)
		}
	}
	return bindings
}

// specifiers reads an import or export list. The bound name is the alias
// when one is given.
func (w *treeWalker) specifiers(list *sitter.Node, kind string) []Binding {
	bindings := []Binding{}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		spec := list.NamedChild(i)
		if spec.Type() != kind {
			continue
		}
		name := spec.ChildByFieldName("alias")
		if name == nil {
			name = spec.ChildByFieldName("name")
		}
		if name == nil {
			continue
		}
		bindings = append(bindings, Binding{
			Name:     w.nameValue(name),
			TypeOnly: hasKeyword(spec, "type"),
		})
	}
	return bindings
}

// exportFrom records `export ... from "x"` and reports whether n was one.
func (w *treeWalker) exportFrom(n *sitter.Node) bool {
	source := n.ChildByFieldName("source")
	if source == nil {
		return false
	}

	var bindings []Binding
	if clause := childOfType(n, "export_clause"); clause != nil {
		bindings = w.specifiers(clause, "export_specifier")
	} else if ns := childOfType(n, "namespace_export"); ns != nil {
		if name := ns.NamedChild(0); name != nil {
			bindings = []Binding{{Name: w.nameValue(name)}}
		}
	}
	w.add(ItemExportFrom, source, hasKeyword(n, "type"), bindings)
	return true
}

// call records `import("x")` and `require("x")` with a literal first
// argument.
func (w *treeWalker) call(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || args == nil || args.NamedChildCount() == 0 {
		return
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return
	}

	switch {
	case fn.Type() == "import":
		w.add(ItemDynamicImport, first, inTypeQuery(n), nil)
	case fn.Type() == "identifier" && fn.Content(w.src) == "require" && args.NamedChildCount() == 1:
		w.add(ItemRequire, first, false, nil)
	}
}

func (w *treeWalker) nameValue(n *sitter.Node) string {
	if n.Type() == "string" {
		return w.stringValue(n)
	}
	return n.Content(w.src)
}

// stringValue decodes a string literal node with the module lexer so both
// parsers agree on escapes.
func (w *treeWalker) stringValue(n *sitter.Node) string {
	raw := w.src[n.StartByte():n.EndByte()]
	if len(raw) < 2 {
		return ""
	}
	lx := &lexer{cur: cursor{src: raw}}
	if err := lx.scanString(raw[0]); err != nil || len(lx.toks) != 1 {
		return string(raw[1 : len(raw)-1])
	}
	return lx.toks[0].value
}

// ===== HELPERS =====

func childOfType(n *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && child.Type() == kind {
			return child
		}
	}
	return nil
}

// hasKeyword reports whether n has the anonymous keyword child kw.
func hasKeyword(n *sitter.Node, kw string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && !child.IsNamed() && child.Type() == kw {
			return true
		}
	}
	return false
}

func inTypeQuery(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "type_query" {
			return true
		}
	}
	return false
}
