package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/calls"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

type fixture struct {
	t      *testing.T
	nt     *names.Table
	b      *ast.Builder
	bag    *diag.Bag
	offset uint32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	nt := names.NewTable()
	return &fixture{t: t, nt: nt, b: ast.NewBuilder(nt, ast.Hints{}), bag: diag.NewBag(200)}
}

func (fx *fixture) span() source.Span {
	fx.offset += 10
	return source.Span{Start: fx.offset, End: fx.offset + 5}
}

func (fx *fixture) session(mode storage.Mode, jobs int) *Session {
	fx.t.Helper()
	s, err := NewSession(Config{
		ModuleName: "test",
		Names:      fx.nt,
		Storage:    mode,
		Jobs:       jobs,
		Builder:    fx.b,
		Reporter:   diag.BagReporter{Bag: fx.bag},
	})
	require.NoError(fx.t, err)
	return s
}

func (fx *fixture) file(pkg string, imports ...string) ast.FileID {
	fid := fx.b.Files.New(0, fx.span(), fx.nt.ParseFq(pkg))
	for _, imp := range imports {
		fx.b.PushImport(fid, fx.imp(imp))
	}
	return fid
}

// imp parses "a.b.C", "a.b.*" and "a.b.C as D".
func (fx *fixture) imp(s string) ast.Import {
	out := ast.Import{Span: fx.span()}
	if path, alias, ok := strings.Cut(s, " as "); ok {
		s = path
		out.Alias = fx.nt.Intern(alias)
	}
	if path, ok := strings.CutSuffix(s, ".*"); ok {
		s = path
		out.All = true
	}
	out.Path = fx.nt.ParseFq(s)
	return out
}

// ref parses "a.B", "B?" and plain names; args are type references.
func (fx *fixture) ref(s string, args ...ast.TypeRefID) ast.TypeRefID {
	nullable := strings.HasSuffix(s, "?")
	s = strings.TrimSuffix(s, "?")
	var path []names.Name
	for _, seg := range strings.Split(s, ".") {
		path = append(path, fx.nt.Intern(seg))
	}
	var targs []ast.TypeArg
	for _, a := range args {
		targs = append(targs, ast.TypeArg{Type: a})
	}
	return fx.b.TypeRefs.NewNamed(fx.span(), path, targs, nullable)
}

func (fx *fixture) class(name string, data ast.ClassData, mods ...ast.Modality) ast.DeclID {
	hdr := ast.Decl{Span: fx.span(), Name: fx.nt.Intern(name)}
	if len(mods) > 0 {
		hdr.Modality = mods[0]
	}
	return fx.b.Decls.NewClass(hdr, data)
}

func (fx *fixture) fun(name string, data ast.FunctionData, mods ...ast.Modality) ast.DeclID {
	hdr := ast.Decl{Span: fx.span(), Name: fx.nt.Intern(name)}
	if len(mods) > 0 {
		hdr.Modality = mods[0]
	}
	return fx.b.Decls.NewFunction(hdr, data)
}

func (fx *fixture) param(name string, typ ast.TypeRefID) ast.Param {
	return ast.Param{Span: fx.span(), Name: fx.nt.Intern(name), Type: typ}
}

func (fx *fixture) lit(kind ast.LitKind, text string) ast.ExprID {
	return fx.b.Exprs.NewLiteral(fx.span(), kind, text)
}

func (fx *fixture) name(s string) ast.ExprID {
	return fx.b.Exprs.NewName(fx.span(), fx.nt.Intern(s))
}

func (fx *fixture) call(name string, args ...ast.ExprID) ast.ExprID {
	data := ast.CallData{Name: fx.nt.Intern(name)}
	for _, a := range args {
		data.Args = append(data.Args, ast.Arg{Value: a})
	}
	return fx.b.Exprs.NewCall(fx.span(), data)
}

func (fx *fixture) classID(s string) names.ClassId { return fx.nt.ParseClassId(s) }

func (fx *fixture) function(s *Session, pkg, name string) *descriptors.CallableDescriptor {
	fx.t.Helper()
	p := s.ResolvePackage(fx.nt.ParseFq(pkg))
	require.NotNil(fx.t, p)
	fns := p.MemberScope().Functions(fx.nt.Intern(name))
	require.Len(fx.t, fns, 1)
	return fns[0]
}

func classOf(in *types.Interner, t types.TypeID) names.ClassId {
	id, _ := in.ClassOf(t)
	return id
}

func TestSessionRequiresLockingForJobs(t *testing.T) {
	_, err := NewSession(Config{Names: names.NewTable(), Jobs: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locking")

	_, err = NewSession(Config{})
	require.Error(t, err)
}

func TestResolveClassUnknown(t *testing.T) {
	fx := newFixture(t)
	fid := fx.file("demo")
	fx.b.PushDecl(fid, fx.class("Known", ast.ClassData{}))
	s := fx.session(storage.ModeSingleThreaded, 1)

	assert.Nil(t, s.ResolveClass(fx.classID("demo/Missing")))
	assert.Nil(t, s.ResolveClass(fx.classID("nowhere/Known")))
	c := s.ResolveClass(fx.classID("demo/Known"))
	require.NotNil(t, c)
	assert.Same(t, c, s.ResolveClass(fx.classID("demo/Known")))
	assert.Equal(t, []types.TypeID{s.Types().Builtins().AnyType}, c.Supertypes())
	assert.Zero(t, fx.bag.Len())
}

func TestNestedClassesAndSupertypes(t *testing.T) {
	fx := newFixture(t)
	fid := fx.file("demo")
	inner := fx.class("Inner", ast.ClassData{})
	fx.b.PushDecl(fid, fx.class("Base", ast.ClassData{Members: []ast.DeclID{inner}}, ast.ModOpen))
	fx.b.PushDecl(fid, fx.class("Derived", ast.ClassData{Supertypes: []ast.TypeRefID{fx.ref("Base")}}))
	fx.b.PushDecl(fid, fx.fun("make", ast.FunctionData{Return: fx.ref("Base.Inner")}))
	s := fx.session(storage.ModeSingleThreaded, 1)

	derived := s.ResolveClass(fx.classID("demo/Derived"))
	base := s.ResolveClass(fx.classID("demo/Base"))
	require.NotNil(t, derived)
	require.NotNil(t, base)
	assert.True(t, derived.IsSubclassOf(base))

	nested := s.ResolveClass(fx.classID("demo/Base.Inner"))
	require.NotNil(t, nested)
	assert.Same(t, nested, base.NestedClass(fx.nt.Intern("Inner")))
	assert.Equal(t, nested.DefaultType(), fx.function(s, "demo", "make").ReturnType())
	assert.Zero(t, fx.bag.Len())
}

func TestCyclicSupertypes(t *testing.T) {
	fx := newFixture(t)
	fid := fx.file("demo")
	fx.b.PushDecl(fid, fx.class("A", ast.ClassData{Supertypes: []ast.TypeRefID{fx.ref("B")}}, ast.ModOpen))
	fx.b.PushDecl(fid, fx.class("B", ast.ClassData{Supertypes: []ast.TypeRefID{fx.ref("A")}}, ast.ModOpen))
	s := fx.session(storage.ModeSingleThreaded, 1)

	a := s.ResolveClass(fx.classID("demo/A"))
	require.NotNil(t, a)
	err := a.SupertypesErr()
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrCyclicComputation))
	assert.Positive(t, fx.bag.Count(diag.ResCyclicInheritance))

	require.NoError(t, s.ForceResolveAll(context.Background()))
	before := fx.bag.Count(diag.ResCyclicInheritance)
	require.NoError(t, s.ForceResolveAll(context.Background()))
	assert.Equal(t, before, fx.bag.Count(diag.ResCyclicInheritance))
}

func TestFinalSupertype(t *testing.T) {
	fx := newFixture(t)
	fid := fx.file("demo")
	fx.b.PushDecl(fid, fx.class("Closed", ast.ClassData{}))
	fx.b.PushDecl(fid, fx.class("Sub", ast.ClassData{Supertypes: []ast.TypeRefID{fx.ref("Closed")}}))
	s := fx.session(storage.ModeSingleThreaded, 1)

	require.NoError(t, s.ForceResolveAll(context.Background()))
	assert.Equal(t, 1, fx.bag.Count(diag.ResFinalSupertype))
}

func TestUnresolvedTypeReference(t *testing.T) {
	fx := newFixture(t)
	fid := fx.file("demo")
	fx.b.PushDecl(fid, fx.fun("f", ast.FunctionData{
		Params: []ast.Param{fx.param("x", fx.ref("Missing"))},
		Body:   fx.b.Stmts.NewBlock(fx.span(), nil),
	}))
	s := fx.session(storage.ModeSingleThreaded, 1)

	f := fx.function(s, "demo", "f")
	require.Len(t, f.ValueParameters(), 1)
	assert.True(t, s.Types().IsError(f.ValueParameters()[0].Type()))
	assert.Equal(t, 1, fx.bag.Count(diag.ResUnresolvedReference))
	assert.Equal(t, s.Types().Builtins().UnitType, f.ReturnType())
}

func TestWrongTypeArgumentCount(t *testing.T) {
	fx := newFixture(t)
	fid := fx.file("demo")
	fx.b.PushDecl(fid, fx.class("Box", ast.ClassData{TypeParams: []ast.TypeParam{{Span: fx.span(), Name: fx.nt.Intern("T")}}}))
	fx.b.PushDecl(fid, fx.fun("f", ast.FunctionData{Params: []ast.Param{fx.param("b", fx.ref("Box"))}}))
	fx.b.PushDecl(fid, fx.fun("g", ast.FunctionData{Params: []ast.Param{fx.param("b", fx.ref("Box", fx.ref("Int")))}}))
	s := fx.session(storage.ModeSingleThreaded, 1)

	require.NoError(t, s.ForceResolveAll(context.Background()))
	assert.Equal(t, 1, fx.bag.Count(diag.ResWrongTypeArgCount))
	g := fx.function(s, "demo", "g")
	box := s.ResolveClass(fx.classID("demo/Box"))
	assert.Equal(t, box.ID(), classOf(s.Types(), g.ValueParameters()[0].Type()))
}

func TestImports(t *testing.T) {
	fx := newFixture(t)
	lib := fx.file("lib")
	fx.b.PushDecl(lib, fx.class("Widget", ast.ClassData{}))
	fx.b.PushDecl(lib, fx.class("Gadget", ast.ClassData{}))
	fx.b.PushDecl(lib, fx.fun("helper", ast.FunctionData{Return: fx.ref("Int"), ExprBody: fx.lit(ast.LitInt, "1")}))

	app := fx.file("app", "lib.Widget as W", "lib.*", "lib.helper", "nowhere.Thing")
	fx.b.PushDecl(app, fx.fun("a", ast.FunctionData{Params: []ast.Param{fx.param("w", fx.ref("W"))}}))
	fx.b.PushDecl(app, fx.fun("b", ast.FunctionData{Params: []ast.Param{fx.param("g", fx.ref("Gadget"))}}))
	fx.b.PushDecl(app, fx.fun("c", ast.FunctionData{Params: []ast.Param{fx.param("w", fx.ref("lib.Widget"))}}))
	fx.b.PushDecl(app, fx.fun("d", ast.FunctionData{ExprBody: fx.call("helper")}))
	s := fx.session(storage.ModeSingleThreaded, 1)

	require.NoError(t, s.ForceResolveAll(context.Background()))
	in := s.Types()
	widget := fx.classID("lib/Widget")
	assert.Equal(t, widget, classOf(in, fx.function(s, "app", "a").ValueParameters()[0].Type()))
	assert.Equal(t, fx.classID("lib/Gadget"), classOf(in, fx.function(s, "app", "b").ValueParameters()[0].Type()))
	assert.Equal(t, widget, classOf(in, fx.function(s, "app", "c").ValueParameters()[0].Type()))
	assert.Equal(t, in.Builtins().IntType, fx.function(s, "app", "d").ReturnType())
	assert.Equal(t, 1, fx.bag.Count(diag.ResUnresolvedImport))
	assert.Zero(t, fx.bag.Count(diag.ResUnresolvedReference))
}

// extensionCall builds "5.g()".
func (fx *fixture) extensionCall(name string) ast.ExprID {
	return fx.b.Exprs.NewCall(fx.span(), ast.CallData{Receiver: fx.lit(ast.LitInt, "5"), Name: fx.nt.Intern(name)})
}

func TestStarImportedExtensionsAreAmbiguous(t *testing.T) {
	fx := newFixture(t)
	for _, pkg := range []string{"a", "b"} {
		fx.b.PushDecl(fx.file(pkg), fx.fun("g", ast.FunctionData{
			Receiver: fx.ref("Int"),
			Return:   fx.ref("Int"),
			ExprBody: fx.lit(ast.LitInt, "1"),
		}))
	}
	both := fx.file("app", "a.*", "b.*")
	ambiguous := fx.extensionCall("g")
	fx.b.PushDecl(both, fx.fun("use", ast.FunctionData{ExprBody: ambiguous}))

	// an explicit import outranks every star import
	pinned := fx.file("pinned", "a.*", "b.*", "b.g")
	explicit := fx.extensionCall("g")
	fx.b.PushDecl(pinned, fx.fun("use", ast.FunctionData{ExprBody: explicit}))

	single := fx.file("single", "a.*")
	only := fx.extensionCall("g")
	fx.b.PushDecl(single, fx.fun("use", ast.FunctionData{ExprBody: only}))
	s := fx.session(storage.ModeSingleThreaded, 1)

	require.NoError(t, s.ForceResolveAll(context.Background()))
	assert.Equal(t, 1, fx.bag.Count(diag.TypOverloadResolutionAmbiguity))

	failure, ok := binding.Get(s.Trace(), calls.Failure, ambiguous)
	require.True(t, ok)
	assert.Equal(t, calls.Ambiguity, failure)
	tied, ok := binding.Get(s.Trace(), calls.AmbiguousCandidates, ambiguous)
	require.True(t, ok)
	require.Len(t, tied, 2)
	for _, rc := range tied {
		assert.False(t, rc.Completed)
	}
	_, ok = binding.Get(s.Trace(), calls.Resolved, ambiguous)
	assert.False(t, ok, "no candidate is picked")

	for call, pkg := range map[ast.ExprID]string{explicit: "b", only: "a"} {
		rc, ok := binding.Get(s.Trace(), calls.Resolved, call)
		require.True(t, ok, pkg)
		assert.Same(t, fx.function(s, pkg, "g"), rc.Candidate, pkg)
	}
}

func TestInferredReturnTypes(t *testing.T) {
	fx := newFixture(t)
	fid := fx.file("demo")
	fx.b.PushDecl(fid, fx.fun("one", ast.FunctionData{ExprBody: fx.lit(ast.LitInt, "1")}))
	fx.b.PushDecl(fid, fx.fun("viaOne", ast.FunctionData{ExprBody: fx.call("one")}))
	fx.b.PushDecl(fid, fx.fun("loop", ast.FunctionData{ExprBody: fx.call("loop")}))
	s := fx.session(storage.ModeSingleThreaded, 1)

	builtins := s.Types().Builtins()
	assert.Equal(t, builtins.IntType, fx.function(s, "demo", "viaOne").ReturnType())

	require.NoError(t, s.ForceResolveAll(context.Background()))
	assert.Equal(t, 1, fx.bag.Count(diag.TypRecursiveTypeInference))
	loop := fx.function(s, "demo", "loop")
	assert.True(t, errors.Is(loop.ReturnTypeErr(), storage.ErrCyclicComputation))

	decl := fx.b.Files.Get(fid).Decls[0]
	d, ok := binding.Get(s.Trace(), binding.Declaration, decl)
	require.True(t, ok)
	assert.Same(t, fx.function(s, "demo", "one"), d)
}

func TestForceResolveAllIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	buildProgram(fx)
	s := fx.session(storage.ModeSingleThreaded, 1)

	require.NoError(t, s.ForceResolveAll(context.Background()))
	diags := fx.bag.Len()
	stats := s.Storage().Stats()
	require.Positive(t, diags)

	require.NoError(t, s.ForceResolveAll(context.Background()))
	assert.Equal(t, diags, fx.bag.Len())
	assert.Equal(t, stats.Computations, s.Storage().Stats().Computations)
}

func TestForceResolveAllCancelled(t *testing.T) {
	fx := newFixture(t)
	buildProgram(fx)
	s := fx.session(storage.ModeSingleThreaded, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.ForceResolveAll(ctx), context.Canceled)
}

func TestParallelMatchesSequential(t *testing.T) {
	seq := newFixture(t)
	buildProgram(seq)
	require.NoError(t, seq.session(storage.ModeSingleThreaded, 1).ForceResolveAll(context.Background()))

	par := newFixture(t)
	buildProgram(par)
	require.NoError(t, par.session(storage.ModeLocking, 4).ForceResolveAll(context.Background()))

	assert.Equal(t, seq.bag.Len(), par.bag.Len())
	for _, code := range []diag.Code{diag.ResAbstractMemberInFinal, diag.ResRedeclaration, diag.ResUnresolvedReference} {
		assert.Equal(t, seq.bag.Count(code), par.bag.Count(code), code.String())
	}
}

func TestAbstractMembersAndConflicts(t *testing.T) {
	fx := newFixture(t)
	buildProgram(fx)
	s := fx.session(storage.ModeSingleThreaded, 1)

	require.NoError(t, s.ForceResolveAll(context.Background()))
	// one declared abstract member in Concrete, one unimplemented in Impl
	assert.Equal(t, 2, fx.bag.Count(diag.ResAbstractMemberInFinal))
	assert.Equal(t, 1, fx.bag.Count(diag.ResRedeclaration))
}

func TestAnnotationArguments(t *testing.T) {
	fx := newFixture(t)
	fid := fx.file("demo")
	level := fx.param("level", fx.ref("Int"))
	level.Property = true
	fx.b.PushDecl(fid, fx.class("Tag", ast.ClassData{
		Kind: ast.ClassAnnotation,
		Ctor: &ast.PrimaryCtor{Span: fx.span(), Params: []ast.Param{level}},
	}))
	good := fx.fun("good", ast.FunctionData{Body: fx.b.Stmts.NewBlock(fx.span(), nil)})
	fx.b.Decls.Get(good).Annotations = []ast.Annotation{{
		Span: fx.span(),
		Type: fx.ref("Tag"),
		Args: []ast.Arg{{Name: fx.nt.Intern("level"), Value: fx.lit(ast.LitInt, "3")}},
	}}
	fx.b.PushDecl(fid, good)
	bad := fx.fun("bad", ast.FunctionData{
		Params: []ast.Param{fx.param("x", fx.ref("Int"))},
		Body:   fx.b.Stmts.NewBlock(fx.span(), nil),
	})
	fx.b.Decls.Get(bad).Annotations = []ast.Annotation{{
		Span: fx.span(),
		Type: fx.ref("Tag"),
		Args: []ast.Arg{{Value: fx.call("good")}},
	}}
	fx.b.PushDecl(fid, bad)
	s := fx.session(storage.ModeSingleThreaded, 1)

	require.NoError(t, s.ForceResolveAll(context.Background()))
	annos := fx.function(s, "demo", "good").Annotations()
	require.Len(t, annos, 1)
	assert.Equal(t, fx.classID("demo/Tag"), annos[0].Class)
	require.Len(t, annos[0].Args, 1)
	assert.Equal(t, descriptors.ConstInt, annos[0].Args[0].Value.Kind)
	assert.EqualValues(t, 3, annos[0].Args[0].Value.Int)
	assert.Equal(t, 1, fx.bag.Count(diag.ResNotConstant))
}

// buildProgram declares a few packages with known problems:
//
//	package shapes:  interface Shape { fun area(): Int }
//	                 class Impl : Shape
//	                 class Concrete { abstract fun todo() }
//	package util:    fun twice(x: Int): Int = x
//	                 fun twice(y: Int): Int = y
//	                 fun ok(): Int = 2
//	package app:     fun use(s: shapes.Shape) {}
func buildProgram(fx *fixture) {
	shapes := fx.file("shapes")
	area := fx.fun("area", ast.FunctionData{Return: fx.ref("Int")})
	fx.b.PushDecl(shapes, fx.class("Shape", ast.ClassData{Kind: ast.ClassInterface, Members: []ast.DeclID{area}}))
	fx.b.PushDecl(shapes, fx.class("Impl", ast.ClassData{Supertypes: []ast.TypeRefID{fx.ref("Shape")}}))
	todo := fx.fun("todo", ast.FunctionData{}, ast.ModAbstract)
	fx.b.PushDecl(shapes, fx.class("Concrete", ast.ClassData{Members: []ast.DeclID{todo}}))

	util := fx.file("util")
	fx.b.PushDecl(util, fx.fun("twice", ast.FunctionData{
		Params:   []ast.Param{fx.param("x", fx.ref("Int"))},
		Return:   fx.ref("Int"),
		ExprBody: fx.name("x"),
	}))
	fx.b.PushDecl(util, fx.fun("twice", ast.FunctionData{
		Params:   []ast.Param{fx.param("y", fx.ref("Int"))},
		Return:   fx.ref("Int"),
		ExprBody: fx.name("y"),
	}))
	fx.b.PushDecl(util, fx.fun("ok", ast.FunctionData{Return: fx.ref("Int"), ExprBody: fx.lit(ast.LitInt, "2")}))

	app := fx.file("app")
	fx.b.PushDecl(app, fx.fun("use", ast.FunctionData{
		Params: []ast.Param{fx.param("s", fx.ref("shapes.Shape"))},
		Body:   fx.b.Stmts.NewBlock(fx.span(), nil),
	}))
}
