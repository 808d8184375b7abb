package sarif

import (
	"encoding/json"
	"testing"

	"github.com/praetorian-inc/perimeter/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReport(t *testing.T) {
	report := NewReport()

	assert.Equal(t, SchemaURI, report.Schema)
	assert.Equal(t, Version, report.Version)
	assert.Len(t, report.Runs, 1)
	assert.Equal(t, ToolName, report.Runs[0].Tool.Driver.Name)
	assert.Equal(t, ToolVersion, report.Runs[0].Tool.Driver.Version)
}

func TestAddRule(t *testing.T) {
	report := NewReport()
	report.AddRule(types.KindNotTypeOnlyImport)

	require.Len(t, report.Runs[0].Tool.Driver.Rules, 1)
	rule := report.Runs[0].Tool.Driver.Rules[0]
	assert.Equal(t, "not-type-only-import", rule.ID)
	assert.Equal(t, "NotTypeOnlyImport", rule.Name)
	assert.Equal(t, types.KindNotTypeOnlyImport.Description(), rule.ShortDescription.Text)
}

func TestAddResult(t *testing.T) {
	report := NewReport()

	d := &types.Diagnostic{
		ID:   "abc123",
		Kind: types.KindPackageNotFound,
		Path: "/repo/packages/web/src/index.ts",
		Location: types.Location{
			Offset: types.OffsetSpan{Start: 20, End: 28},
			Source: types.SourceSpan{
				Start: types.SourcePoint{Line: 3, Column: 21},
				End:   types.SourcePoint{Line: 3, Column: 29},
			},
		},
		Message: "cannot import package `lodash` because it is not a dependency",
		Help:    "add `lodash` to the dependencies of `web`",
		Snippet: types.Snippet{Matching: `"lodash"`},
	}
	report.AddResult(d, "/repo")

	require.Len(t, report.Runs[0].Results, 1)
	result := report.Runs[0].Results[0]
	assert.Equal(t, "package-not-found", result.RuleID)
	assert.Equal(t, "error", result.Level)
	assert.Contains(t, result.Message.Text, "lodash")
	assert.Contains(t, result.Message.Text, "help: add `lodash`")
	assert.Equal(t, "abc123", result.PartialFingerprints["diagnosticId/v1"])

	loc := result.Locations[0].PhysicalLocation
	assert.Equal(t, "packages/web/src/index.ts", loc.ArtifactLocation.URI)
	assert.Equal(t, SrcRootID, loc.ArtifactLocation.URIBaseID)
	require.NotNil(t, loc.Region)
	assert.Equal(t, 3, loc.Region.StartLine)
	assert.Equal(t, 21, loc.Region.StartColumn)
	assert.Equal(t, 29, loc.Region.EndColumn)
	require.NotNil(t, loc.Region.Snippet)
	assert.Equal(t, `"lodash"`, loc.Region.Snippet.Text)
}

func TestAddResult_OutsideRootAndUnlocated(t *testing.T) {
	report := NewReport()
	report.AddResult(&types.Diagnostic{
		Kind:    types.KindFileNotFound,
		Path:    "/elsewhere/x.ts",
		Message: "failed to read file: /elsewhere/x.ts",
	}, "/repo")

	loc := report.Runs[0].Results[0].Locations[0].PhysicalLocation
	assert.Equal(t, "file:///elsewhere/x.ts", loc.ArtifactLocation.URI)
	assert.Empty(t, loc.ArtifactLocation.URIBaseID)
	assert.Nil(t, loc.Region)
}

func TestFromReport(t *testing.T) {
	report := &types.Report{
		Root: "/repo",
		Packages: []*types.PackageReport{
			{Package: "a", Diagnostics: []*types.Diagnostic{
				{Kind: types.KindImportLeavesPackage, Path: "/repo/a/x.ts", Message: "one"},
			}},
			{Package: "b", Diagnostics: []*types.Diagnostic{
				{Kind: types.KindPath, Path: "/repo/b/y.ts", Message: "two"},
			}},
		},
	}

	out := FromReport(report)
	assert.Len(t, out.Runs[0].Tool.Driver.Rules, len(types.AllKinds))
	require.Len(t, out.Runs[0].Results, 2)
	assert.Equal(t, "one", out.Runs[0].Results[0].Message.Text)
	assert.Equal(t, "two", out.Runs[0].Results[1].Message.Text)
	assert.Equal(t, "file:///repo/", out.Runs[0].OriginalURIBaseIDs[SrcRootID].URI)
}

func TestToJSON(t *testing.T) {
	out := FromReport(&types.Report{Root: "/repo"})

	data, err := out.ToJSON()
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, SchemaURI, parsed["$schema"])
	assert.Equal(t, "2.1.0", parsed["version"])

	runs := parsed["runs"].([]any)
	run := runs[0].(map[string]any)
	assert.Equal(t, []any{}, run["results"])
	assert.Contains(t, run, "originalUriBaseIds")
}

func TestFormatFileURI(t *testing.T) {
	assert.Equal(t, "file:///path/to/file.ts", formatFileURI("/path/to/file.ts"))
	assert.Equal(t, "relative/path.ts", formatFileURI("relative/path.ts"))
}
