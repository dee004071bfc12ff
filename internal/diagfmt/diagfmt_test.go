package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/diag"
	"frontcore/internal/source"
)

func sample() ([]diag.Diagnostic, *source.FileSet) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("/home/user/proj/src/a.fc.yaml", []byte("line one\nfoo bar\n"))
	span := source.Span{File: id, Start: 13, End: 16}
	return []diag.Diagnostic{
		diag.New(diag.SevError, diag.ResUnresolvedReference, span, "unresolved reference: bar").
			WithNote(source.Span{File: id, Start: 0, End: 4}, "declared here"),
		diag.New(diag.SevWarning, diag.TypConditionTypeMismatch, source.NoSpan, "library problem"),
	}, fs
}

func TestJSONOutput(t *testing.T) {
	diags, fs := sample()
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, diags, fs, JSONOpts{IncludePositions: true, IncludeNotes: true, Paths: Paths{Mode: PathModeBasename}}))

	var out DiagnosticsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, 2, out.Count)
	assert.Equal(t, 2, out.Total)

	d := out.Diagnostics[0]
	assert.Equal(t, "error", d.Severity)
	assert.Equal(t, "RES1001", d.Code)
	assert.Equal(t, "Unresolved reference", d.Title)
	assert.Equal(t, LocationJSON{File: "a.fc.yaml", StartByte: 13, EndByte: 16, StartLine: 2, StartCol: 5, EndLine: 2, EndCol: 8}, d.Location)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, uint32(1), d.Notes[0].Location.StartLine)

	assert.Empty(t, out.Diagnostics[1].Location.File)
}

func TestJSONTruncatesAndSkipsNotes(t *testing.T) {
	diags, fs := sample()
	out := BuildDiagnosticsOutput(diags, fs, JSONOpts{Max: 1})
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, 2, out.Total)
	assert.Empty(t, out.Diagnostics[0].Notes)
	assert.Zero(t, out.Diagnostics[0].Location.StartLine)
}

func TestPathModes(t *testing.T) {
	const path = "/home/user/proj/src/a.fc.yaml"
	assert.Equal(t, "src/a.fc.yaml", Paths{Mode: PathModeRelative, Base: "/home/user/proj"}.Format(path))
	assert.Equal(t, path, Paths{Mode: PathModeRelative}.Format(path))
	assert.Equal(t, "a.fc.yaml", Paths{Mode: PathModeBasename}.Format(path))
	assert.Equal(t, path, Paths{Mode: PathModeAbsolute}.Format(path))
	assert.Equal(t, path, Paths{}.Format(path))
}

func TestSarif(t *testing.T) {
	diags, fs := sample()
	var buf bytes.Buffer
	require.NoError(t, Sarif(&buf, diags, fs, SarifRunMeta{ToolName: "frontcore", ToolVersion: "1.0.0", InvocationArgs: []string{"analyze"}}))

	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Equal(t, "frontcore", run.Tool.Driver.Name)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "RES1001", run.Tool.Driver.Rules[0].ID)
	require.Len(t, run.Invocations, 1)
	assert.False(t, run.Invocations[0].ExecutionSuccessful)

	require.Len(t, run.Results, 2)
	first := run.Results[0]
	assert.Equal(t, "error", first.Level)
	require.Len(t, first.Locations, 1)
	assert.Equal(t, sarifRegion{StartLine: 2, StartColumn: 5, EndLine: 2, EndColumn: 8, ByteOffset: 13, ByteLength: 3}, first.Locations[0].Physical.Region)
	require.Len(t, first.RelatedLocations, 1)
	assert.Equal(t, "declared here", first.RelatedLocations[0].Message.Text)

	assert.Equal(t, "warning", run.Results[1].Level)
	assert.Empty(t, run.Results[1].Locations)
}

func TestParsePathMode(t *testing.T) {
	m, err := ParsePathMode("Relative")
	require.NoError(t, err)
	assert.Equal(t, PathModeRelative, m)
	m, err = ParsePathMode("")
	require.NoError(t, err)
	assert.Equal(t, "auto", m.String())
	_, err = ParsePathMode("home")
	assert.Error(t, err)
}
