package types

import (
	"path/filepath"
	"strings"
)

// Dialect is the grammar a source file is parsed with.
type Dialect int

const (
	// DialectJS is ECMAScript with JSX enabled (.js, .jsx, .vue, .svelte).
	DialectJS Dialect = iota
	// DialectTS is TypeScript with decorators, no JSX (.ts).
	DialectTS
	// DialectTSX is TypeScript with decorators and JSX (.tsx).
	DialectTSX
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectTS:
		return "ts"
	case DialectTSX:
		return "tsx"
	default:
		return "js"
	}
}

// IsTypeScript reports whether the dialect enables TypeScript syntax.
func (d Dialect) IsTypeScript() bool {
	return d == DialectTS || d == DialectTSX
}

// JSX reports whether the dialect enables JSX syntax.
func (d Dialect) JSX() bool {
	return d != DialectTS
}

// DialectForPath picks the dialect from a file extension.
func DialectForPath(path string) Dialect {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts":
		return DialectTS
	case ".tsx":
		return DialectTSX
	default:
		return DialectJS
	}
}

// SourceFile is a discovered file together with its text.
// Content is owned by the check for its whole duration because diagnostics
// embed it for snippet rendering.
type SourceFile struct {
	Path    string
	Content []byte
	Dialect Dialect
	BlobID  BlobID
}

// NewSourceFile builds a SourceFile, detecting the dialect and content hash.
func NewSourceFile(path string, content []byte) *SourceFile {
	return &SourceFile{
		Path:    path,
		Content: content,
		Dialect: DialectForPath(path),
		BlobID:  ComputeBlobID(content),
	}
}

// Dir returns the directory containing the file.
func (f *SourceFile) Dir() string {
	return filepath.Dir(f.Path)
}
