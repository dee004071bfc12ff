package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/ast"
	"frontcore/internal/driver"
	"frontcore/internal/source"
)

const program = `
package: shapes
declarations:
  - class: Box
    type_params: [{name: T}]
    constructor:
      params: [{name: item, type: T, val: true}]
    members:
      - fun: get
        returns: T
        expr: item
  - fun: wrap
    type_params: [{name: T}]
    params: [{name: x, type: T}]
    returns: Box<T>
    expr: {call: Box, args: [x]}
  - fun: answer
    returns: Int
    expr: {call: wrap, args: [42]}
`

func analyze(t *testing.T) *driver.Result {
	t.Helper()
	res, err := driver.Analyze(context.Background(), driver.Config{Module: "shapes"},
		[]driver.Input{{Path: "shapes.fc.yaml", Data: []byte(program)}})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	return res
}

func TestSessionInvariantsHold(t *testing.T) {
	res := analyze(t)
	require.NoError(t, CheckSession(res.Session))

	b := res.Session.Builder()
	for _, id := range b.AllFiles() {
		f := b.Files.Get(id)
		require.NoError(t, CheckSpanInvariants(b, id, res.Files.Get(f.Source)))
	}
}

func TestSpanOutsideFileIsReported(t *testing.T) {
	res := analyze(t)
	b := res.Session.Builder()
	id := b.AllFiles()[0]
	f := b.Files.Get(id)
	sf := res.Files.Get(f.Source)
	require.NotEmpty(t, f.Decls)

	d := b.Decls.Get(f.Decls[0])
	saved := d.Span
	d.Span = source.Span{File: sf.ID, Start: saved.Start, End: f.Span.End + 10}
	assert.ErrorContains(t, CheckSpanInvariants(b, id, sf), "outside file span")

	d.Span = source.Span{File: sf.ID + 1, Start: saved.Start, End: saved.End}
	assert.ErrorContains(t, CheckSpanInvariants(b, id, sf), "file mismatch")
	d.Span = saved

	assert.Error(t, CheckSpanInvariants(nil, id, sf))
	assert.Error(t, CheckSpanInvariants(b, ast.FileID(99), sf))
}
