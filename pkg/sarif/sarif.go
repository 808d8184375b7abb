package sarif

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// SARIF 2.1.0 constants
const (
	SchemaURI   = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	Version     = "2.1.0"
	ToolName    = "perimeter"
	ToolVersion = "0.1.0"

	// SrcRootID is the uriBaseId workspace-relative paths resolve against.
	SrcRootID = "%SRCROOT%"
)

// Report is the top-level SARIF report structure
type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`
}

// Run represents a single invocation of the tool
type Run struct {
	Tool               Tool                        `json:"tool"`
	OriginalURIBaseIDs map[string]ArtifactLocation `json:"originalUriBaseIds,omitempty"`
	Results            []Result                    `json:"results"`
}

// Tool describes the analysis tool
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver contains tool metadata
type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules,omitempty"`
}

// Rule represents a detection rule
type Rule struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	ShortDescription ShortDescription `json:"shortDescription"`
}

// ShortDescription contains rule description text
type ShortDescription struct {
	Text string `json:"text"`
}

// Result represents a single diagnostic
type Result struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             Message           `json:"message"`
	Locations           []Location        `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

// Message contains the result message
type Message struct {
	Text string `json:"text"`
}

// Location describes where a result was found
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation specifies file location
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           *Region          `json:"region,omitempty"`
}

// ArtifactLocation identifies the file
type ArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// Region specifies the line/column range
type Region struct {
	StartLine   int      `json:"startLine"`
	StartColumn int      `json:"startColumn"`
	EndLine     int      `json:"endLine"`
	EndColumn   int      `json:"endColumn"`
	Snippet     *Snippet `json:"snippet,omitempty"`
}

// Snippet contains the import specifier literal
type Snippet struct {
	Text string `json:"text"`
}

// NewReport creates a new SARIF report with initialized structure
func NewReport() *Report {
	return &Report{
		Schema:  SchemaURI,
		Version: Version,
		Runs: []Run{
			{
				Tool: Tool{
					Driver: Driver{
						Name:    ToolName,
						Version: ToolVersion,
						Rules:   []Rule{},
					},
				},
				Results: []Result{},
			},
		},
	}
}

// AddRule registers a diagnostic kind as a SARIF rule.
func (r *Report) AddRule(kind types.DiagnosticKind) {
	r.Runs[0].Tool.Driver.Rules = append(r.Runs[0].Tool.Driver.Rules, Rule{
		ID:   string(kind),
		Name: ruleName(kind),
		ShortDescription: ShortDescription{
			Text: kind.Description(),
		},
	})
}

// AddResult adds a diagnostic result to the report. Paths under root are
// written relative to the %SRCROOT% base.
func (r *Report) AddResult(d *types.Diagnostic, root string) {
	artifact := ArtifactLocation{URI: formatFileURI(d.Path)}
	if rel, ok := relativeTo(root, d.Path); ok {
		artifact = ArtifactLocation{URI: rel, URIBaseID: SrcRootID}
	}

	loc := Location{PhysicalLocation: PhysicalLocation{ArtifactLocation: artifact}}

	// unlocated diagnostics (unreadable files) carry no region
	if d.Location.Source.Start.Line > 0 {
		region := &Region{
			StartLine:   d.Location.Source.Start.Line,
			StartColumn: d.Location.Source.Start.Column,
			EndLine:     d.Location.Source.End.Line,
			EndColumn:   d.Location.Source.End.Column,
		}
		if d.Snippet.Matching != "" {
			region.Snippet = &Snippet{Text: d.Snippet.Matching}
		}
		loc.PhysicalLocation.Region = region
	}

	text := d.Message
	if d.Help != "" {
		text += " (help: " + d.Help + ")"
	}

	r.Runs[0].Results = append(r.Runs[0].Results, Result{
		RuleID:              string(d.Kind),
		Level:               "error",
		Message:             Message{Text: text},
		Locations:           []Location{loc},
		PartialFingerprints: map[string]string{"diagnosticId/v1": d.ID},
	})
}

// FromReport converts a check report, registering every diagnostic kind as a
// rule.
func FromReport(report *types.Report) *Report {
	out := NewReport()
	if report.Root != "" {
		out.Runs[0].OriginalURIBaseIDs = map[string]ArtifactLocation{
			SrcRootID: {URI: formatFileURI(report.Root) + "/"},
		}
	}
	for _, kind := range types.AllKinds {
		out.AddRule(kind)
	}
	for _, d := range report.Diagnostics() {
		out.AddResult(d, report.Root)
	}
	return out
}

// ToJSON serializes the report to JSON bytes
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// formatFileURI converts a file path to SARIF URI format
// Absolute paths get file:// prefix, relative paths stay as-is
func formatFileURI(path string) string {
	if filepath.IsAbs(path) {
		// Normalize path separators for URI format
		path = filepath.ToSlash(path)
		// Ensure path starts with /
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "file://" + path
	}
	// Relative paths stay as-is
	return filepath.ToSlash(path)
}

// relativeTo returns path relative to root with forward slashes when path
// lies under root.
func relativeTo(root, path string) (string, bool) {
	if root == "" || !filepath.IsAbs(path) {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ruleName turns "package-not-found" into "PackageNotFound".
func ruleName(kind types.DiagnosticKind) string {
	var b strings.Builder
	for _, part := range strings.Split(string(kind), "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
