// Package extract turns parsed module items into the flat, ordered import
// list the boundary checker validates.
package extract

import (
	"errors"

	"github.com/praetorian-inc/perimeter/pkg/parser"
	"github.com/praetorian-inc/perimeter/pkg/types"
)

// Extract converts the items of mod into imports, in source order. base is
// added to every span so that spans index the file the module text was cut
// from. Kind is left unclassified.
func Extract(mod *parser.Module, base int) []types.Import {
	if mod == nil {
		return nil
	}
	imports := make([]types.Import, 0, len(mod.Items))
	for _, item := range mod.Items {
		imports = append(imports, types.Import{
			Specifier: item.Specifier,
			Span: types.OffsetSpan{
				Start: item.Span.Start + int64(base),
				End:   item.Span.End + int64(base),
			},
			TypeOnly: TypeOnly(item),
			Syntax:   syntaxOf(item.Kind),
		})
	}
	return imports
}

// TypeOnly reports whether an item only brings in type information: the
// declaration carries `type`, or it has bindings and every one of them does.
func TypeOnly(item parser.Item) bool {
	if item.TypeOnly {
		return true
	}
	if len(item.Bindings) == 0 {
		return false
	}
	for _, b := range item.Bindings {
		if !b.TypeOnly {
			return false
		}
	}
	return true
}

// File parses f with p and extracts its imports. Single-file components have
// each <script> block parsed on its own, with the block's lang attribute
// choosing the grammar.
func File(p parser.Parser, f *types.SourceFile) ([]types.Import, error) {
	if !parser.IsComponent(f.Path) {
		mod, err := p.Parse(f.Content, parser.ConfigFor(f.Dialect))
		if err != nil {
			return nil, err
		}
		return Extract(mod, 0), nil
	}

	var imports []types.Import
	for _, block := range parser.ScriptBlocks(f.Content) {
		mod, err := p.Parse(f.Content[block.Start:block.End], parser.ConfigFor(block.Dialect()))
		if err != nil {
			var syntaxErr *parser.SyntaxError
			if errors.As(err, &syntaxErr) {
				return nil, &parser.SyntaxError{Offset: syntaxErr.Offset + block.Start, Msg: syntaxErr.Msg}
			}
			return nil, err
		}
		imports = append(imports, Extract(mod, block.Start)...)
	}
	return imports, nil
}

func syntaxOf(kind parser.ItemKind) types.ImportSyntax {
	switch kind {
	case parser.ItemImportEquals:
		return types.SyntaxImportEquals
	case parser.ItemExportFrom:
		return types.SyntaxExportFrom
	case parser.ItemDynamicImport:
		return types.SyntaxDynamicImport
	case parser.ItemRequire:
		return types.SyntaxRequire
	default:
		return types.SyntaxImport
	}
}
