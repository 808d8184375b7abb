package types

// ImportKind is the shape classification of an import specifier.
type ImportKind int

const (
	// ImportKindUnclassified specifiers (path aliases, URLs, deep imports) are never validated.
	ImportKindUnclassified ImportKind = iota
	// ImportKindRelativeFile specifiers start with "." and name a file.
	ImportKindRelativeFile
	// ImportKindBarePackage specifiers match the package-name grammar.
	ImportKindBarePackage
)

// String returns the kind name.
func (k ImportKind) String() string {
	switch k {
	case ImportKindRelativeFile:
		return "relative-file"
	case ImportKindBarePackage:
		return "bare-package"
	default:
		return "unclassified"
	}
}

// ImportSyntax is the syntactic form an import was written in.
type ImportSyntax int

const (
	// SyntaxImport is a static import declaration, including `import "x"`.
	SyntaxImport ImportSyntax = iota
	// SyntaxImportEquals is a TypeScript `import x = require("x")`.
	SyntaxImportEquals
	// SyntaxExportFrom is a re-export: `export ... from "x"`.
	SyntaxExportFrom
	// SyntaxDynamicImport is a call-style `import("x")`.
	SyntaxDynamicImport
	// SyntaxRequire is a CommonJS `require("x")`.
	SyntaxRequire
)

// String returns the syntax name.
func (s ImportSyntax) String() string {
	switch s {
	case SyntaxImportEquals:
		return "import-equals"
	case SyntaxExportFrom:
		return "export-from"
	case SyntaxDynamicImport:
		return "dynamic-import"
	case SyntaxRequire:
		return "require"
	default:
		return "import"
	}
}

// Import is one module specifier extracted from a source file.
type Import struct {
	Specifier string       `json:"specifier"`
	Span      OffsetSpan   `json:"span"` // the string literal token only, quotes included
	Kind      ImportKind   `json:"kind"`
	TypeOnly  bool         `json:"type_only"`
	Syntax    ImportSyntax `json:"syntax"`
}
