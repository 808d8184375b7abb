package types

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// DiagnosticKind identifies which boundary rule a diagnostic reports.
type DiagnosticKind string

const (
	KindNotTypeOnlyImport   DiagnosticKind = "not-type-only-import"
	KindPackageNotFound     DiagnosticKind = "package-not-found"
	KindImportLeavesPackage DiagnosticKind = "import-leaves-package"
	KindParseError          DiagnosticKind = "parse-error"
	KindFileNotFound        DiagnosticKind = "file-not-found"
	KindPath                DiagnosticKind = "path"
)

// AllKinds lists every diagnostic kind in a stable order.
var AllKinds = []DiagnosticKind{
	KindNotTypeOnlyImport,
	KindPackageNotFound,
	KindImportLeavesPackage,
	KindParseError,
	KindFileNotFound,
	KindPath,
}

// Description returns a one-line description of the rule behind the kind.
func (k DiagnosticKind) Description() string {
	switch k {
	case KindNotTypeOnlyImport:
		return "Value import of a package that is only declared through its @types package"
	case KindPackageNotFound:
		return "Import of a package that is not a declared dependency"
	case KindImportLeavesPackage:
		return "Relative import that resolves outside the importing package"
	case KindParseError:
		return "Source file could not be parsed"
	case KindFileNotFound:
		return "Source file could not be read"
	case KindPath:
		return "Relative import specifier is not a valid path"
	default:
		return string(k)
	}
}

// Diagnostic is a single source-located boundary violation.
// Diagnostics carry everything needed to render them, so presentation never
// re-reads the file.
type Diagnostic struct {
	ID        string         `json:"id"`
	Kind      DiagnosticKind `json:"kind"`
	Package   string         `json:"package"`
	Path      string         `json:"path"`
	Specifier string         `json:"specifier,omitempty"`
	Location  Location       `json:"location"`
	Message   string         `json:"message"`
	Label     string         `json:"label,omitempty"`
	Help      string         `json:"help,omitempty"`
	Snippet   Snippet        `json:"snippet"`
	BlobID    BlobID         `json:"blob_id"`

	// Stale is set on a stored diagnostic whose file no longer hashes to
	// BlobID, so its snippet and location may not match the file on disk.
	Stale bool `json:"stale,omitempty"`

	// Source is the full text of the file; it is not serialized.
	Source string `json:"-"`
}

// Error implements error so a diagnostic can travel through error paths.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.Path, d.Location.Source.Start.Line, d.Location.Source.Start.Column, d.Message)
}

// ComputeDiagnosticID computes a content-based ID.
// Format: SHA-1(kind + '\0' + path + '\0' + start + '\0' + end + '\0' + specifier)
func ComputeDiagnosticID(kind DiagnosticKind, path string, span OffsetSpan, specifier string) string {
	h := sha1.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", span.Start)
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", span.End)
	h.Write([]byte{0})
	h.Write([]byte(specifier))
	return hex.EncodeToString(h.Sum(nil))
}
