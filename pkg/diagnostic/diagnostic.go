// Package diagnostic builds, collects, filters and renders boundary
// diagnostics.
package diagnostic

import (
	"fmt"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// DefaultContextLines is the number of source lines shown around a span.
const DefaultContextLines = 2

// Factory creates diagnostics for one package.
type Factory struct {
	Package      string
	ContextLines int
}

// NewFactory returns a factory for pkg. A negative contextLines selects the
// default.
func NewFactory(pkg string, contextLines int) *Factory {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	return &Factory{Package: pkg, ContextLines: contextLines}
}

// NotTypeOnlyImport reports a value import of a package that is only
// available through its @types package.
func (f *Factory) NotTypeOnlyImport(file *types.SourceFile, imp types.Import) *types.Diagnostic {
	d := f.located(types.KindNotTypeOnlyImport, file, imp.Span, imp.Specifier)
	d.Message = "importing from a type declaration package, but import is not declared as a type-only import"
	d.Label = "package imported here"
	d.Help = "add `type` to the import declaration"
	return d
}

// PackageNotFound reports an import of an undeclared package.
func (f *Factory) PackageNotFound(file *types.SourceFile, imp types.Import, name string) *types.Diagnostic {
	d := f.located(types.KindPackageNotFound, file, imp.Span, imp.Specifier)
	d.Message = fmt.Sprintf("cannot import package `%s` because it is not a dependency", name)
	d.Label = "package imported here"
	d.Help = fmt.Sprintf("add `%s` to the dependencies of `%s`", name, f.Package)
	return d
}

// ImportLeavesPackage reports a relative import that escapes the package.
func (f *Factory) ImportLeavesPackage(file *types.SourceFile, imp types.Import) *types.Diagnostic {
	d := f.located(types.KindImportLeavesPackage, file, imp.Span, imp.Specifier)
	d.Message = fmt.Sprintf("cannot import file `%s` because it leaves the package", imp.Specifier)
	d.Label = "file imported here"
	d.Help = "import the other package by name and declare it as a dependency"
	return d
}

// Path reports a relative specifier that is not a usable path.
func (f *Factory) Path(file *types.SourceFile, imp types.Import, err error) *types.Diagnostic {
	d := f.located(types.KindPath, file, imp.Span, imp.Specifier)
	d.Message = fmt.Sprintf("invalid import path `%s`: %v", imp.Specifier, err)
	d.Label = "path imported here"
	return d
}

// ParseError reports a file that could not be parsed. offset points at the
// syntax error; a negative offset omits the location.
func (f *Factory) ParseError(file *types.SourceFile, offset int, reason string) *types.Diagnostic {
	var d *types.Diagnostic
	if offset < 0 {
		d = f.unlocated(types.KindParseError, file.Path)
		d.BlobID = file.BlobID
	} else {
		end := offset + 1
		if end > len(file.Content) {
			end = len(file.Content)
		}
		d = f.located(types.KindParseError, file, types.OffsetSpan{Start: int64(offset), End: int64(end)}, "")
	}
	d.Message = fmt.Sprintf("failed to parse file %s", file.Path)
	d.Label = reason
	return d
}

// FileNotFound reports a discovered file that could not be read.
func (f *Factory) FileNotFound(path string, err error) *types.Diagnostic {
	d := f.unlocated(types.KindFileNotFound, path)
	d.Message = fmt.Sprintf("failed to read file: %s", path)
	if err != nil {
		d.Label = err.Error()
	}
	return d
}

// ===== HELPERS =====

func (f *Factory) located(kind types.DiagnosticKind, file *types.SourceFile, span types.OffsetSpan, specifier string) *types.Diagnostic {
	start, end := int(span.Start), int(span.End)
	loc := types.LocationFor(file.Content, start, end)
	return &types.Diagnostic{
		ID:        types.ComputeDiagnosticID(kind, file.Path, loc.Offset, specifier),
		Kind:      kind,
		Package:   f.Package,
		Path:      file.Path,
		Specifier: specifier,
		Location:  loc,
		Snippet:   types.ExtractSnippet(file.Content, int(loc.Offset.Start), int(loc.Offset.End), f.ContextLines),
		BlobID:    file.BlobID,
		Source:    string(file.Content),
	}
}

func (f *Factory) unlocated(kind types.DiagnosticKind, path string) *types.Diagnostic {
	return &types.Diagnostic{
		ID:      types.ComputeDiagnosticID(kind, path, types.OffsetSpan{}, ""),
		Kind:    kind,
		Package: f.Package,
		Path:    path,
	}
}
