package declsrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/ast"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/source"
)

const shapes = `
package: shapes
imports: [util.twice, "util.*", "util.Box as B"]
declarations:
  - interface: Shape
    members:
      - fun: area
        returns: Int
        modality: abstract
  - class: Circle
    supertypes: [Shape]
    constructor:
      params:
        - {name: r, type: Int, val: true}
    members:
      - fun: area
        returns: Int
        expr: {binary: "*", left: r, right: 3}
  - enum: Color
    entries: [RED, GREEN]
  - fun: describe
    type_params: [{name: T, bounds: ["Comparable<T>"]}]
    params:
      - {name: s, type: "Shape?"}
      - {name: xs, type: "Array<out T>", vararg: true}
    returns: String
    body:
      - val: {name: a, init: {call: area, receiver: s, safe: true}}
      - return: {string: "shape"}
  - var: counter
    type: Int
    init: 0
---
package: util
declarations:
  - fun: twice
    params: [{name: x, type: Int}]
    expr: {call: plus, receiver: x, args: [x]}
`

func load(t *testing.T, text string) (*ast.Builder, *diag.Bag, []ast.FileID) {
	t.Helper()
	nt := names.NewTable()
	b := ast.NewBuilder(nt, ast.Hints{})
	bag := diag.NewBag(50)
	l := NewLoader(b, source.NewFileSet(), diag.BagReporter{Bag: bag})
	files, err := l.LoadBytes("shapes"+Extension, []byte(text))
	require.NoError(t, err)
	return b, bag, files
}

func TestLoadDocuments(t *testing.T) {
	b, bag, files := load(t, shapes)
	require.Zero(t, bag.Len(), "%v", bag.Items())
	require.Len(t, files, 2)

	f := b.Files.Get(files[0])
	assert.Equal(t, "shapes", b.Names.FqString(f.Package))
	require.Len(t, f.Imports, 3)
	assert.False(t, f.Imports[0].All)
	assert.True(t, f.Imports[1].All)
	assert.Equal(t, "B", b.Names.MustLookup(f.Imports[2].Alias))
	require.Len(t, f.Decls, 5)

	shape, ok := b.Decls.Class(f.Decls[0])
	require.True(t, ok)
	assert.Equal(t, ast.ClassInterface, shape.Kind)
	require.Len(t, shape.Members, 1)
	assert.Equal(t, ast.ModAbstract, b.Decls.Get(shape.Members[0]).Modality)

	circle, _ := b.Decls.Class(f.Decls[1])
	require.NotNil(t, circle.Ctor)
	require.Len(t, circle.Ctor.Params, 1)
	assert.True(t, circle.Ctor.Params[0].Property)
	area, _ := b.Decls.Function(circle.Members[0])
	assert.Equal(t, ast.ExprBinary, b.Exprs.Get(area.ExprBody).Kind)

	color, _ := b.Decls.Class(f.Decls[2])
	assert.Equal(t, ast.ClassEnum, color.Kind)
	require.Len(t, color.EnumEntries, 2)
	entry, _ := b.Decls.Class(color.EnumEntries[1])
	assert.Equal(t, ast.ClassEnumEntry, entry.Kind)
	assert.Equal(t, "GREEN", b.Names.MustLookup(b.Decls.Get(color.EnumEntries[1]).Name))

	fn, _ := b.Decls.Function(f.Decls[3])
	require.Len(t, fn.TypeParams, 1)
	require.Len(t, fn.TypeParams[0].Bounds, 1)
	require.Len(t, fn.Params, 2)
	assert.True(t, b.TypeRefs.Get(fn.Params[0].Type).Nullable)
	xs := b.TypeRefs.Get(fn.Params[1].Type)
	require.Len(t, xs.Args, 1)
	assert.Equal(t, ast.Out, xs.Args[0].Variance)
	assert.True(t, fn.Params[1].Vararg)
	body := b.Stmts.Get(fn.Body)
	require.Len(t, body.Stmts, 2)
	assert.Equal(t, ast.StmtVal, b.Stmts.Get(body.Stmts[0]).Kind)
	ret := b.Stmts.Get(body.Stmts[1])
	assert.Equal(t, ast.StmtReturn, ret.Kind)
	lit, ok := b.Exprs.Literal(ret.Expr)
	require.True(t, ok)
	assert.Equal(t, ast.LitString, lit.Kind)

	prop, ok := b.Decls.Property(f.Decls[4])
	require.True(t, ok)
	assert.True(t, prop.Mutable)
	init, _ := b.Exprs.Literal(prop.Init)
	assert.Equal(t, ast.LitInt, init.Kind)

	util := b.Files.Get(files[1])
	assert.Equal(t, "util", b.Names.FqString(util.Package))
}

func TestSpansPointAtNodes(t *testing.T) {
	text := "package: p\ndeclarations:\n  - fun: f\n    expr: answer\n"
	b, _, files := load(t, text)
	f := b.Files.Get(files[0])
	fn, _ := b.Decls.Function(f.Decls[0])
	sp := b.Exprs.Get(fn.ExprBody).Span
	assert.Equal(t, "answer", text[sp.Start:sp.End])
}

func TestMalformedDeclarations(t *testing.T) {
	_, bag, files := load(t, `
package: p
declarations:
  - {fun: f, class: C}
  - {}
  - fun: g
    expr: {name: a, int: "1"}
  - fun: h
    params: [{name: x}]
    body:
      - loop: 1
  - val: v
    type: "Box<"
    setter: {}
`)
	require.Len(t, files, 1)
	assert.Equal(t, 4, bag.Count(diag.SrcInvalidDecl))
	assert.Equal(t, 2, bag.Count(diag.SrcUnknownNode))
	assert.Equal(t, 1, bag.Count(diag.SrcSyntax))
}

func TestSyntaxErrorKeepsEarlierDocuments(t *testing.T) {
	nt := names.NewTable()
	b := ast.NewBuilder(nt, ast.Hints{})
	bag := diag.NewBag(10)
	l := NewLoader(b, source.NewFileSet(), diag.BagReporter{Bag: bag})
	files, err := l.LoadBytes("broken"+Extension, []byte("package: a\n---\npackage: [b\n"))
	require.Error(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, 1, bag.Count(diag.SrcSyntax))
}

func TestParseTypes(t *testing.T) {
	nt := names.NewTable()
	b := ast.NewBuilder(nt, ast.Hints{})
	for _, tc := range []struct {
		text string
		kind ast.TypeRefKind
		args int
		null bool
	}{
		{"Int", ast.TypeRefNamed, 0, false},
		{"a.b.Box<in T, *>?", ast.TypeRefNamed, 2, true},
		{"(Int, String) -> Unit", ast.TypeRefFunction, 0, false},
		{"((Int) -> Unit)?", ast.TypeRefFunction, 0, true},
		{"Map<String, List<out Int?>>", ast.TypeRefNamed, 2, false},
	} {
		id, err := parseType(b, tc.text, source.Span{End: uint32(len(tc.text))})
		require.NoError(t, err, tc.text)
		ref := b.TypeRefs.Get(id)
		assert.Equal(t, tc.kind, ref.Kind, tc.text)
		assert.Len(t, ref.Args, tc.args, tc.text)
		assert.Equal(t, tc.null, ref.Nullable, tc.text)
	}
	id, err := parseType(b, "List<String!>!", source.Span{End: 14})
	require.NoError(t, err)
	ref := b.TypeRefs.Get(id)
	assert.True(t, ref.Platform)
	assert.False(t, ref.Nullable)
	assert.True(t, b.TypeRefs.Get(ref.Args[0].Type).Platform)

	for _, bad := range []string{"", "Box<", "(Int, Long)", "Int extra", "a..B", "String?!"} {
		_, err := parseType(b, bad, source.Span{})
		assert.Error(t, err, bad)
	}
}

func TestTypeSpansAreFileOffsets(t *testing.T) {
	b := ast.NewBuilder(names.NewTable(), ast.Hints{})
	text := "Map<String, Int>"
	id, err := parseType(b, text, source.Span{File: 1, Start: 100, End: 116})
	require.NoError(t, err)
	ref := b.TypeRefs.Get(id)
	assert.Equal(t, source.Span{File: 1, Start: 100, End: 116}, ref.Span)
	require.Len(t, ref.Args, 2)
	assert.Equal(t, source.Span{File: 1, Start: 104, End: 110}, b.TypeRefs.Get(ref.Args[0].Type).Span)
	assert.Equal(t, source.Span{File: 1, Start: 112, End: 115}, b.TypeRefs.Get(ref.Args[1].Type).Span)

	// a node narrower than its text clamps every span to the node
	id, err = parseType(b, text, source.Span{File: 1, Start: 0, End: 3})
	require.NoError(t, err)
	ref = b.TypeRefs.Get(id)
	assert.Equal(t, source.Span{File: 1, Start: 0, End: 3}, ref.Span)
	assert.Equal(t, source.Span{File: 1, Start: 3, End: 3}, b.TypeRefs.Get(ref.Args[0].Type).Span)
}
