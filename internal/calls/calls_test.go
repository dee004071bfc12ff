package calls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

type finder struct{ b *descriptors.BuiltIns }

func (f *finder) FindClass(id names.ClassId) *descriptors.ClassDescriptor { return f.b.Class(id) }
func (f *finder) FindPackage(names.FqName) *descriptors.PackageDescriptor { return nil }

type param struct {
	name string
	typ  types.TypeID
	def  bool
}

type fixture struct {
	nt       *names.Table
	in       *types.Interner
	b        *types.Builtins
	mod      *descriptors.ModuleDescriptor
	builtins *descriptors.BuiltIns
	pkg      *descriptors.PackageDescriptor
	scope    *descriptors.StaticScope
	flow     *dataflow.Factory
	r        *Resolver
	trace    *binding.Trace
	bag      *diag.Bag
	next     ast.ExprID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	nt := names.NewTable()
	in := types.NewInterner(nt)
	f := &finder{}
	mod := descriptors.NewModule(nt.Intern("test"), in, storage.NewManager(storage.ModeSingleThreaded), f)
	f.b = descriptors.NewBuiltIns(mod)
	scope := descriptors.NewStaticScope()
	pkg := descriptors.NewPackage(mod, nt.ParseFq("demo"), func(*descriptors.PackageDescriptor) (descriptors.Scope, error) {
		return scope, nil
	})
	return &fixture{
		nt:       nt,
		in:       in,
		b:        in.Builtins(),
		mod:      mod,
		builtins: f.b,
		pkg:      pkg,
		scope:    scope,
		flow:     dataflow.NewFactory(in),
		r:        NewResolver(mod),
		trace:    binding.NewTrace(),
		bag:      diag.NewBag(100),
	}
}

func (fx *fixture) signature(c *descriptors.CallableDescriptor, params []param, ret types.TypeID) descriptors.Signature {
	vps := make([]*descriptors.ValueParameter, len(params))
	for i, p := range params {
		vps[i] = descriptors.NewValueParameter(c, i, descriptors.Header{Name: fx.nt.Intern(p.name)}, p.typ, types.NoTypeID, p.def)
	}
	return descriptors.Signature{
		ValueParameters: vps,
		ReturnType:      func() (types.TypeID, error) { return ret, nil },
	}
}

// fn declares a top-level function in the test package.
func (fx *fixture) fn(name string, ret types.TypeID, params ...param) *descriptors.CallableDescriptor {
	c := descriptors.NewCallable(fx.pkg, descriptors.CallableSpec{
		Header:       descriptors.Header{Name: fx.nt.Intern(name)},
		CallableKind: descriptors.CallableFunction,
	}, func(c *descriptors.CallableDescriptor) descriptors.Signature {
		return fx.signature(c, params, ret)
	})
	fx.scope.Add(c)
	return c
}

// generic declares fun <T> name(...) with params and result built from T.
func (fx *fixture) generic(name string, build func(T types.TypeID) ([]param, types.TypeID)) *descriptors.CallableDescriptor {
	c := descriptors.NewCallable(fx.pkg, descriptors.CallableSpec{
		Header:       descriptors.Header{Name: fx.nt.Intern(name)},
		CallableKind: descriptors.CallableFunction,
	}, func(c *descriptors.CallableDescriptor) descriptors.Signature {
		tp := descriptors.NewTypeParameter(c, 0, descriptors.Header{Name: fx.nt.Intern("T")}, types.VarInvariant, false, nil)
		params, ret := build(tp.Type())
		sig := fx.signature(c, params, ret)
		sig.TypeParameters = []*descriptors.TypeParameter{tp}
		return sig
	})
	fx.scope.Add(c)
	return c
}

func (fx *fixture) extension(name string, recv, ret types.TypeID) *descriptors.CallableDescriptor {
	c := descriptors.NewCallable(fx.pkg, descriptors.CallableSpec{
		Header:       descriptors.Header{Name: fx.nt.Intern(name)},
		CallableKind: descriptors.CallableFunction,
	}, func(c *descriptors.CallableDescriptor) descriptors.Signature {
		sig := fx.signature(c, nil, ret)
		sig.ExtensionReceiver = recv
		return sig
	})
	fx.scope.Add(c)
	return c
}

func (fx *fixture) local(name string, typ types.TypeID) *descriptors.LocalVariable {
	return descriptors.NewLocalVariable(fx.pkg, fx.nt.Intern(name), typ, false, source.NoSpan)
}

func (fx *fixture) expr() (ast.ExprID, source.Span) {
	fx.next++
	start := uint32(fx.next) * 10
	return fx.next, source.Span{Start: start, End: start + 5}
}

func (fx *fixture) arg(t types.TypeID) Argument {
	expr, span := fx.expr()
	return Argument{Expr: expr, Span: span, Type: t, Value: fx.flow.ForExpression(expr, t)}
}

func (fx *fixture) named(name string, t types.TypeID) Argument {
	a := fx.arg(t)
	a.Name = fx.nt.Intern(name)
	return a
}

// varArg is an argument reading v.
func (fx *fixture) varArg(v *descriptors.LocalVariable) Argument {
	a := fx.arg(v.Type())
	a.Value = fx.flow.ForVariable(v, nil, v.Type())
	return a
}

func (fx *fixture) receiver(v *descriptors.LocalVariable) *Receiver {
	expr, _ := fx.expr()
	return &Receiver{Expr: expr, Type: v.Type(), Value: fx.flow.ForVariable(v, nil, v.Type()), Owner: v}
}

func (fx *fixture) call(name string, args ...Argument) *Call {
	expr, span := fx.expr()
	return &Call{Kind: CallFunction, Expr: expr, Span: span, Name: fx.nt.Intern(name), Args: args}
}

func (fx *fixture) ctx() *Context {
	return &Context{
		Trace:    fx.trace,
		Reporter: diag.BagReporter{Bag: fx.bag},
		DataFlow: dataflow.Empty(fx.in),
		TopLevel: []descriptors.Scope{fx.scope, fx.builtins.Package().MemberScope()},
	}
}

func (fx *fixture) codes() []diag.Code {
	var out []diag.Code
	for _, d := range fx.bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestPicksTheApplicableOverload(t *testing.T) {
	fx := newFixture(t)
	fInt := fx.fn("f", fx.b.UnitType, param{"x", fx.b.IntType, false})
	fx.fn("f", fx.b.UnitType, param{"x", fx.b.StringType, false})

	call := fx.call("f", fx.arg(fx.b.IntType))
	res := fx.r.ResolveCall(fx.ctx(), call)

	require.True(t, res.IsSuccess())
	rc := res.ResultingCall()
	assert.Same(t, fInt, rc.Candidate)
	assert.True(t, rc.Completed)
	assert.Equal(t, Completed, rc.State)
	assert.Equal(t, fx.b.UnitType, res.ResultType())
	assert.Empty(t, fx.codes())

	recorded, ok := binding.Get(fx.trace, Resolved, call.Expr)
	require.True(t, ok)
	assert.Same(t, rc, recorded)
	ref, _ := binding.Get(fx.trace, binding.Reference, call.Expr)
	assert.Equal(t, descriptors.Descriptor(fInt), ref)
}

func TestAmbiguityReportsOnceAndCompletesNothing(t *testing.T) {
	fx := newFixture(t)
	fx.fn("f", fx.b.UnitType, param{"a", fx.b.IntType, false}, param{"b", fx.b.AnyType, false})
	fx.fn("f", fx.b.UnitType, param{"a", fx.b.AnyType, false}, param{"b", fx.b.IntType, false})

	call := fx.call("f", fx.arg(fx.b.IntType), fx.arg(fx.b.IntType))
	res := fx.r.ResolveCall(fx.ctx(), call)

	assert.Equal(t, Ambiguity, res.Failure)
	assert.Len(t, res.Calls, 2)
	assert.Equal(t, []diag.Code{diag.TypOverloadResolutionAmbiguity}, fx.codes())
	assert.Len(t, fx.bag.Items()[0].Notes, 2)
	assert.False(t, binding.Has(fx.trace, Resolved, call.Expr))
	for _, rc := range res.Calls {
		assert.False(t, rc.Completed)
	}
	tied, ok := binding.Get(fx.trace, AmbiguousCandidates, call.Expr)
	require.True(t, ok)
	assert.Len(t, tied, 2)
}

func TestMoreSpecificParameterWins(t *testing.T) {
	fx := newFixture(t)
	fx.fn("f", fx.b.UnitType, param{"x", fx.b.AnyType, false})
	fInt := fx.fn("f", fx.b.UnitType, param{"x", fx.b.IntType, false})

	res := fx.r.ResolveCall(fx.ctx(), fx.call("f", fx.arg(fx.b.IntType)))
	require.True(t, res.IsSuccess())
	assert.Same(t, fInt, res.ResultingCall().Candidate)
}

func TestNonGenericBeatsGeneric(t *testing.T) {
	fx := newFixture(t)
	fx.generic("pick", func(T types.TypeID) ([]param, types.TypeID) {
		return []param{{"x", T, false}}, T
	})
	plain := fx.fn("pick", fx.b.IntType, param{"x", fx.b.IntType, false})

	res := fx.r.ResolveCall(fx.ctx(), fx.call("pick", fx.arg(fx.b.IntType)))
	require.True(t, res.IsSuccess())
	assert.Same(t, plain, res.ResultingCall().Candidate)
}

func TestInfersVarargElementType(t *testing.T) {
	fx := newFixture(t)
	call := fx.call("arrayOf", fx.arg(fx.b.IntType), fx.arg(fx.b.IntType))
	res := fx.r.ResolveCall(fx.ctx(), call)

	require.True(t, res.IsSuccess())
	rc := res.ResultingCall()
	assert.Equal(t, fx.builtins.ArrayType(fx.b.IntType, false), rc.ResultType)
	assert.Equal(t, []types.TypeID{fx.b.IntType}, rc.TypeArguments)
	assert.True(t, rc.UsesVararg)
	assert.Equal(t, [][]int{{0, 1}}, rc.ValueArguments)
}

func TestExpectedTypeInfersResult(t *testing.T) {
	fx := newFixture(t)
	fx.generic("make", func(T types.TypeID) ([]param, types.TypeID) { return nil, T })

	res := fx.r.ResolveCall(fx.ctx(), fx.call("make"))
	assert.Equal(t, CannotCompleteResolve, res.Failure)
	assert.Equal(t, []diag.Code{diag.TypUninferredTypeParameter}, fx.codes())

	ctx := fx.ctx()
	ctx.Expected = fx.b.StringType
	res = fx.r.ResolveCall(ctx, fx.call("make"))
	require.True(t, res.IsSuccess())
	assert.Equal(t, fx.b.StringType, res.ResultType())
}

func TestUnresolvedReference(t *testing.T) {
	fx := newFixture(t)
	res := fx.r.ResolveCall(fx.ctx(), fx.call("nope"))
	assert.Equal(t, Unresolved, res.Failure)
	assert.Equal(t, []diag.Code{diag.ResUnresolvedReference}, fx.codes())
}

func TestSingleCandidateReportsItsOwnProblem(t *testing.T) {
	fx := newFixture(t)
	f := fx.fn("f", fx.b.UnitType, param{"x", fx.b.IntType, false})
	call := fx.call("f", fx.arg(fx.b.StringType))

	res := fx.r.ResolveCall(fx.ctx(), call)
	assert.Equal(t, NoneApplicable, res.Failure)
	assert.Equal(t, []diag.Code{diag.TypMismatch}, fx.codes())
	ref, _ := binding.Get(fx.trace, binding.Reference, call.Expr)
	assert.Equal(t, descriptors.Descriptor(f), ref)
}

func TestNoneApplicableListsCandidates(t *testing.T) {
	fx := newFixture(t)
	fx.fn("f", fx.b.UnitType, param{"x", fx.b.IntType, false})
	fx.fn("f", fx.b.UnitType, param{"x", fx.b.BooleanType, false})

	res := fx.r.ResolveCall(fx.ctx(), fx.call("f", fx.arg(fx.b.StringType)))
	assert.Equal(t, NoneApplicable, res.Failure)
	assert.Equal(t, []diag.Code{diag.TypNoneApplicable}, fx.codes())
	assert.Len(t, fx.bag.Items()[0].Notes, 2)
}

func TestArgumentMapping(t *testing.T) {
	fx := newFixture(t)
	g := fx.fn("g", fx.b.UnitType, param{"a", fx.b.IntType, false}, param{"b", fx.b.IntType, true})

	res := fx.r.ResolveCall(fx.ctx(), fx.call("g", fx.named("b", fx.b.IntType), fx.named("a", fx.b.IntType)))
	require.True(t, res.IsSuccess())
	assert.Equal(t, [][]int{{1}, {0}}, res.ResultingCall().ValueArguments)

	res = fx.r.ResolveCall(fx.ctx(), fx.call("g", fx.arg(fx.b.IntType)))
	require.True(t, res.IsSuccess())
	assert.Same(t, g, res.ResultingCall().Candidate)
	assert.Empty(t, res.ResultingCall().ValueArguments[1])

	cases := []struct {
		name string
		args []Argument
		code diag.Code
	}{
		{"missing value", []Argument{fx.named("b", fx.b.IntType)}, diag.TypNoValueForParameter},
		{"unknown name", []Argument{fx.named("c", fx.b.IntType)}, diag.TypNamedParameterNotFound},
		{"passed twice", []Argument{fx.arg(fx.b.IntType), fx.named("a", fx.b.IntType)}, diag.TypArgumentPassedTwice},
		{"too many", []Argument{fx.arg(fx.b.IntType), fx.arg(fx.b.IntType), fx.arg(fx.b.IntType)}, diag.TypTooManyArguments},
		{"positional after named", []Argument{fx.named("a", fx.b.IntType), fx.arg(fx.b.IntType)}, diag.TypMixingNamedAndPositional},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx.bag = diag.NewBag(100)
			res := fx.r.ResolveCall(fx.ctx(), fx.call("g", tc.args...))
			assert.Equal(t, NoneApplicable, res.Failure)
			assert.Contains(t, fx.codes(), tc.code)
		})
	}
}

func TestSmartCastMakesArgumentApplicable(t *testing.T) {
	fx := newFixture(t)
	fx.fn("f", fx.b.UnitType, param{"x", fx.b.IntType, false})
	x := fx.local("x", fx.b.AnyType)
	arg := fx.varArg(x)

	ctx := fx.ctx()
	ctx.DataFlow = ctx.DataFlow.EstablishSubtyping(arg.Value, fx.b.IntType)
	res := fx.r.ResolveCall(ctx, fx.call("f", arg))

	require.True(t, res.IsSuccess())
	cast, ok := binding.Get(fx.trace, binding.SmartCast, arg.Expr)
	require.True(t, ok)
	assert.Equal(t, fx.b.IntType, cast)
	assert.Empty(t, fx.codes())
}

func TestUnstableSmartCastIsReported(t *testing.T) {
	fx := newFixture(t)
	fx.fn("f", fx.b.UnitType, param{"x", fx.b.IntType, false})
	arg := fx.arg(fx.b.AnyType)
	arg.Value = dataflow.Value{ID: 1000, Kind: dataflow.UnstableValue, Type: fx.b.AnyType, Nullability: dataflow.NotNull}

	ctx := fx.ctx()
	ctx.DataFlow = ctx.DataFlow.EstablishSubtyping(arg.Value, fx.b.IntType)
	res := fx.r.ResolveCall(ctx, fx.call("f", arg))

	require.True(t, res.IsSuccess())
	assert.Equal(t, []diag.Code{diag.TypSmartCastImpossible}, fx.codes())
	assert.False(t, binding.Has(fx.trace, binding.SmartCast, arg.Expr))
}

func TestLosingCandidateLeavesNoSmartCast(t *testing.T) {
	fx := newFixture(t)
	fx.fn("f", fx.b.UnitType, param{"x", fx.b.IntType, false}, param{"y", fx.b.BooleanType, false})
	x := fx.local("x", fx.b.AnyType)
	arg := fx.varArg(x)

	ctx := fx.ctx()
	ctx.DataFlow = ctx.DataFlow.EstablishSubtyping(arg.Value, fx.b.IntType)
	res := fx.r.ResolveCall(ctx, fx.call("f", arg, fx.arg(fx.b.StringType)))

	assert.Equal(t, NoneApplicable, res.Failure)
	assert.False(t, binding.Has(fx.trace, binding.SmartCast, arg.Expr))
}

func TestMemberPropertyThroughReceiver(t *testing.T) {
	fx := newFixture(t)
	s := fx.local("s", fx.b.StringType)
	call := fx.call("length")
	call.Kind = CallVariable
	call.Receiver = fx.receiver(s)

	res := fx.r.ResolveCall(fx.ctx(), call)
	require.True(t, res.IsSuccess())
	assert.Equal(t, fx.b.IntType, res.ResultType())
	assert.Same(t, call.Receiver, res.ResultingCall().DispatchReceiver)
}

func TestMemberFoundThroughSmartCast(t *testing.T) {
	fx := newFixture(t)
	x := fx.local("x", fx.b.AnyType)
	call := fx.call("length")
	call.Kind = CallVariable
	call.Receiver = fx.receiver(x)

	ctx := fx.ctx()
	ctx.DataFlow = ctx.DataFlow.EstablishSubtyping(call.Receiver.Value, fx.b.StringType)
	res := fx.r.ResolveCall(ctx, call)

	require.True(t, res.IsSuccess())
	cast, ok := binding.Get(fx.trace, binding.SmartCast, call.Receiver.Expr)
	require.True(t, ok)
	assert.Equal(t, fx.b.StringType, cast)
}

func TestNullableReceiver(t *testing.T) {
	fx := newFixture(t)
	s := fx.local("s", fx.in.MakeNullable(fx.b.StringType))
	lengthOf := func(safe bool) *Call {
		call := fx.call("length")
		call.Kind = CallVariable
		call.Receiver = fx.receiver(s)
		call.Safe = safe
		return call
	}

	res := fx.r.ResolveCall(fx.ctx(), lengthOf(false))
	require.True(t, res.IsSuccess())
	assert.Equal(t, []diag.Code{diag.TypUnsafeCall}, fx.codes())

	fx.bag = diag.NewBag(100)
	res = fx.r.ResolveCall(fx.ctx(), lengthOf(true))
	require.True(t, res.IsSuccess())
	assert.Empty(t, fx.codes())

	checked := lengthOf(false)
	ctx := fx.ctx()
	ctx.DataFlow = ctx.DataFlow.Disequate(checked.Receiver.Value, fx.flow.Null())
	res = fx.r.ResolveCall(ctx, checked)
	require.True(t, res.IsSuccess())
	assert.Empty(t, fx.codes())
	cast, _ := binding.Get(fx.trace, binding.SmartCast, checked.Receiver.Expr)
	assert.Equal(t, fx.b.StringType, cast)
}

func TestExtensionReceiver(t *testing.T) {
	fx := newFixture(t)
	twice := fx.extension("twice", fx.b.IntType, fx.b.IntType)
	n := fx.local("n", fx.b.IntType)
	s := fx.local("s", fx.b.StringType)

	call := fx.call("twice")
	call.Receiver = fx.receiver(n)
	res := fx.r.ResolveCall(fx.ctx(), call)
	require.True(t, res.IsSuccess())
	assert.Same(t, twice, res.ResultingCall().Candidate)
	assert.Same(t, call.Receiver, res.ResultingCall().ExtensionReceiver)

	call = fx.call("twice")
	call.Receiver = fx.receiver(s)
	res = fx.r.ResolveCall(fx.ctx(), call)
	assert.Equal(t, WrongReceiver, res.Failure)
	assert.Equal(t, []diag.Code{diag.TypUnresolvedReferenceWrongRecv}, fx.codes())
}

func TestExtensionWithoutReceiverIsWrongReceiver(t *testing.T) {
	fx := newFixture(t)
	fx.extension("twice", fx.b.IntType, fx.b.IntType)

	res := fx.r.ResolveCall(fx.ctx(), fx.call("twice"))
	assert.Equal(t, WrongReceiver, res.Failure)
}

func TestImplicitReceiverMember(t *testing.T) {
	fx := newFixture(t)
	this := &Receiver{Type: fx.b.StringType, Value: fx.flow.ForThis(fx.pkg, fx.b.StringType), Owner: fx.pkg}
	call := fx.call("length")
	call.Kind = CallVariable

	ctx := fx.ctx()
	ctx.Implicit = []*Receiver{this}
	res := fx.r.ResolveCall(ctx, call)
	require.True(t, res.IsSuccess())
	assert.Same(t, this, res.ResultingCall().DispatchReceiver)
}

func TestLocalShadowsTopLevel(t *testing.T) {
	fx := newFixture(t)
	fx.fn("f", fx.b.UnitType)
	f := fx.local("f", fx.b.IntType)
	locals := descriptors.NewStaticScope()
	locals.Add(f)

	call := fx.call("f")
	call.Kind = CallVariable
	ctx := fx.ctx()
	ctx.Locals = []descriptors.Scope{locals}
	res := fx.r.ResolveCall(ctx, call)
	require.True(t, res.IsSuccess())
	assert.Same(t, f, res.ResultingCall().Candidate)
}

func TestVariableInvoke(t *testing.T) {
	fx := newFixture(t)
	fnType, ok := fx.builtins.FunctionType([]types.TypeID{fx.b.IntType}, fx.b.StringType)
	require.True(t, ok)
	v := fx.local("v", fnType)
	locals := descriptors.NewStaticScope()
	locals.Add(v)

	call := fx.call("v", fx.arg(fx.b.IntType))
	ctx := fx.ctx()
	ctx.Locals = []descriptors.Scope{locals}
	res := fx.r.ResolveCall(ctx, call)

	require.True(t, res.IsSuccess())
	rc := res.ResultingCall()
	assert.Equal(t, fx.b.StringType, rc.ResultType)
	require.NotNil(t, rc.Variable)
	assert.True(t, rc.Variable.Completed)
	ref, _ := binding.Get(fx.trace, binding.Reference, call.Expr)
	assert.Equal(t, descriptors.Descriptor(v), ref)
}

func TestCallingANonFunctionValue(t *testing.T) {
	fx := newFixture(t)
	v := fx.local("v", fx.b.IntType)
	locals := descriptors.NewStaticScope()
	locals.Add(v)

	ctx := fx.ctx()
	ctx.Locals = []descriptors.Scope{locals}
	res := fx.r.ResolveCall(ctx, fx.call("v"))
	assert.Equal(t, NoneApplicable, res.Failure)
	assert.Equal(t, []diag.Code{diag.TypFunctionExpected}, fx.codes())
}

func TestCallSiteIsResolvedOnce(t *testing.T) {
	fx := newFixture(t)
	fx.fn("f", fx.b.UnitType, param{"x", fx.b.IntType, false})
	call := fx.call("f", fx.arg(fx.b.StringType))

	first := fx.r.ResolveCall(fx.ctx(), call)
	second := fx.r.ResolveCall(fx.ctx(), call)
	assert.Equal(t, first.Failure, second.Failure)
	assert.Len(t, fx.bag.Items(), 1)

	fx.fn("g", fx.b.UnitType)
	ok := fx.call("g")
	a := fx.r.ResolveCall(fx.ctx(), ok)
	b := fx.r.ResolveCall(fx.ctx(), ok)
	assert.Same(t, a.ResultingCall(), b.ResultingCall())
}

func TestExplicitTypeArguments(t *testing.T) {
	fx := newFixture(t)
	fx.generic("id", func(T types.TypeID) ([]param, types.TypeID) {
		return []param{{"x", T, false}}, T
	})

	call := fx.call("id", fx.arg(fx.b.IntType))
	call.TypeArgs = []types.TypeID{fx.b.NumberType}
	res := fx.r.ResolveCall(fx.ctx(), call)
	require.True(t, res.IsSuccess())
	assert.Equal(t, fx.b.NumberType, res.ResultType())

	bad := fx.call("id", fx.arg(fx.b.StringType))
	bad.TypeArgs = []types.TypeID{fx.b.IntType}
	res = fx.r.ResolveCall(fx.ctx(), bad)
	assert.Equal(t, NoneApplicable, res.Failure)
	assert.Equal(t, []diag.Code{diag.TypMismatch}, fx.codes())
}
