package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/driver"
	"frontcore/internal/metadata"
	"frontcore/internal/version"
)

const source = `
package: geo
declarations:
  - fun: answer
    returns: Int
    expr: 42
  - fun: broken
    returns: Int
    expr: missing
`

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755))
	for _, name := range []string{"b.fc.yaml", "sub/a.fc.yaml", ".hidden/c.fc.yaml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("package: x\n"), 0o644))
	}

	inputs, err := collectInputs([]string{dir, "missing.fc.yaml"})
	require.NoError(t, err)
	var paths []string
	for _, in := range inputs {
		paths = append(paths, in.Path)
	}
	assert.Equal(t, []string{
		filepath.Join(dir, "b.fc.yaml"),
		filepath.Join(dir, "sub", "a.fc.yaml"),
		"missing.fc.yaml",
	}, paths)

	_, err = collectInputs([]string{t.TempDir()})
	assert.Error(t, err)
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiAuto, "AUTO": uiAuto, " on ": uiOn, "off": uiOff} {
		got, err := readUIMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := readUIMode("sometimes")
	assert.Error(t, err)
	assert.Equal(t, "off", uiOff.String())
}

func TestShowProgress(t *testing.T) {
	pretty := func(m uiMode) analyzeOptions { return analyzeOptions{format: "pretty", ui: m} }
	for _, tc := range []struct {
		name   string
		opts   analyzeOptions
		inputs int
		tty    bool
		want   bool
	}{
		{"auto on a terminal", pretty(uiAuto), 3, true, true},
		{"auto with one input", pretty(uiAuto), 1, true, false},
		{"auto without a terminal", pretty(uiAuto), 3, false, false},
		{"forced on", pretty(uiOn), 1, false, true},
		{"forced off", pretty(uiOff), 9, true, false},
		{"quiet", analyzeOptions{format: "pretty", ui: uiOn, quiet: true}, 3, true, false},
		{"json output", analyzeOptions{format: "json", ui: uiOn}, 3, true, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, showProgress(tc.opts, tc.inputs, tc.tty))
		})
	}
}

func TestWriteDiagnosticsFormats(t *testing.T) {
	res, err := driver.Analyze(context.Background(), driver.Config{Module: "geo"},
		[]driver.Input{{Path: "geo.fc.yaml", Data: []byte(source)}})
	require.NoError(t, err)
	require.True(t, res.HasErrors())

	var short bytes.Buffer
	require.NoError(t, writeDiagnostics(&short, res, analyzeOptions{format: "short"}, nil))
	assert.Contains(t, short.String(), "error RES1001 geo.fc.yaml:")

	var js bytes.Buffer
	require.NoError(t, writeDiagnostics(&js, res, analyzeOptions{format: "json"}, nil))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.EqualValues(t, len(res.Diagnostics), decoded["count"])

	var sarif bytes.Buffer
	require.NoError(t, writeDiagnostics(&sarif, res, analyzeOptions{format: "sarif"}, []string{"geo.fc.yaml"}))
	assert.Contains(t, sarif.String(), `"version": "2.1.0"`)

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
	var pretty bytes.Buffer
	require.NoError(t, writeDiagnostics(&pretty, res, analyzeOptions{format: "pretty"}, nil))
	assert.Contains(t, pretty.String(), "error[RES1001]")
}

func TestWriteArtifacts(t *testing.T) {
	res, err := driver.Analyze(context.Background(), driver.Config{Module: "geo", Emit: true, KeepSession: true},
		[]driver.Input{{Path: "geo.fc.yaml", Data: []byte("package: geo\ndeclarations:\n  - fun: answer\n    returns: Int\n    expr: 42\n")}})
	require.NoError(t, err)
	require.False(t, res.HasErrors(), "%v", res.Diagnostics)

	dir := t.TempDir()
	opts := analyzeOptions{output: filepath.Join(dir, "geo.fclib"), classDir: filepath.Join(dir, "classes")}
	require.NoError(t, writeArtifacts(res, opts))

	lib, err := metadata.ReadLibraryFile(opts.output)
	require.NoError(t, err)
	assert.Equal(t, "geo", lib.Header.Module)

	var classFiles int
	require.NoError(t, filepath.WalkDir(opts.classDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			classFiles++
		}
		return err
	}))
	assert.Positive(t, classFiles)
}

func TestVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderVersionJSON(&buf, version.Info{Version: "1.2.3", GitCommit: "abc", LibraryFormat: 1}, versionOptions{showHash: true}))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "frontcore", payload["tool"])
	assert.Equal(t, "1.2.3", payload["version"])
	assert.Equal(t, "abc", payload["git_commit"])
	assert.NotContains(t, payload, "build_date")
}
