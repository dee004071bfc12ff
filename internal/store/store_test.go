package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/driver"
)

const program = `
package: geo
declarations:
  - class: Box
    constructor:
      params: [{name: item, type: Int, val: true}]
  - fun: answer
    returns: Int
    expr: 42
  - fun: use
    returns: Int
    expr: {call: answer}
  - fun: broken
    returns: Int
    expr: missing
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func analyze(t *testing.T) *driver.Result {
	t.Helper()
	res, err := driver.Analyze(context.Background(), driver.Config{Module: "geo"},
		[]driver.Input{{Path: "geo.fc.yaml", Data: []byte(program)}})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	return res
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	_, ok, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	res := analyze(t)

	runID, err := s.Export(ctx, Snapshot{Module: "geo", Files: res.Files, Session: res.Session, Diagnostics: res.Diagnostics})
	require.NoError(t, err)
	run, ok, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "geo", run.Module)

	decls, err := s.Declarations(ctx, runID, "")
	require.NoError(t, err)
	var named []string
	for _, d := range decls {
		named = append(named, d.Name)
		assert.Equal(t, "geo.fc.yaml", d.Pos.File)
		assert.Positive(t, d.Pos.StartLine)
	}
	assert.Subset(t, named, []string{"Box", "answer", "use", "broken"})
	// source order
	assert.Equal(t, "Box", decls[0].Name)

	answer, err := s.Declarations(ctx, runID, "answer")
	require.NoError(t, err)
	require.Len(t, answer, 1)
	assert.Equal(t, "function", answer[0].Kind)
	assert.Equal(t, "geo", answer[0].Owner)
	assert.Contains(t, answer[0].Rendered, "answer")

	calls, err := s.ResolvedCalls(ctx, runID)
	require.NoError(t, err)
	var found bool
	for _, c := range calls {
		if c.Name == "answer" {
			found = true
			assert.True(t, c.Completed)
			assert.Equal(t, "function", c.CalleeKind)
			assert.Equal(t, "Int", c.ResultType)
			assert.Empty(t, c.TypeArguments)
		}
	}
	assert.True(t, found, "call to answer not exported: %+v", calls)

	diags, err := s.Diagnostics(ctx, runID)
	require.NoError(t, err)
	require.Len(t, diags, len(res.Diagnostics))
	require.NotEmpty(t, diags)
	assert.Equal(t, res.Diagnostics[0].Code.ID(), diags[0].Code)
	assert.Equal(t, "error", diags[0].Severity)
}

func TestExportWithoutSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	res := analyze(t)

	first, err := s.Export(ctx, Snapshot{Module: "geo", Files: res.Files, Diagnostics: res.Diagnostics})
	require.NoError(t, err)
	second, err := s.Export(ctx, Snapshot{Module: "geo"})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	decls, err := s.Declarations(ctx, first, "")
	require.NoError(t, err)
	assert.Empty(t, decls)
	diags, err := s.Diagnostics(ctx, first)
	require.NoError(t, err)
	assert.Len(t, diags, len(res.Diagnostics))
	diags, err = s.Diagnostics(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestStringsColumn(t *testing.T) {
	assert.Equal(t, "[]", marshalStrings(nil))
	assert.Nil(t, unmarshalStrings("[]"))
	assert.Equal(t, []string{"Int", "List<T>"}, unmarshalStrings(marshalStrings([]string{"Int", "List<T>"})))
}
