package sema

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

type fixture struct {
	nt       *names.Table
	in       *types.Interner
	b        *types.Builtins
	mod      *descriptors.ModuleDescriptor
	builtins *descriptors.BuiltIns
	pkg      *descriptors.PackageDescriptor
	scope    *descriptors.StaticScope
	owner    *descriptors.CallableDescriptor
	params   *descriptors.StaticScope
	ast      *ast.Builder
	refs     map[ast.TypeRefID]types.TypeID
	trace    *binding.Trace
	bag      *diag.Bag
	checker  *Checker
	offset   uint32
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
	owner := descriptors.NewCallable(pkg, descriptors.CallableSpec{
		Header:       descriptors.Header{Name: nt.Intern("f")},
		CallableKind: descriptors.CallableFunction,
		HasBody:      true,
	}, func(*descriptors.CallableDescriptor) descriptors.Signature { return descriptors.Signature{} })
	fx := &fixture{
		nt:       nt,
		in:       in,
		b:        in.Builtins(),
		mod:      mod,
		builtins: f.b,
		pkg:      pkg,
		scope:    scope,
		owner:    owner,
		params:   descriptors.NewStaticScope(),
		ast:      ast.NewBuilder(nt, ast.Hints{}),
		refs:     make(map[ast.TypeRefID]types.TypeID),
		trace:    binding.NewTrace(),
		bag:      diag.NewBag(100),
	}
	fx.checker = NewChecker(Options{
		Module:   mod,
		Builder:  fx.ast,
		Trace:    fx.trace,
		Reporter: diag.BagReporter{Bag: fx.bag},
	})
	return fx
}

func (fx *fixture) span() source.Span {
	fx.offset += 10
	return source.Span{Start: fx.offset, End: fx.offset + 5}
}

func (fx *fixture) param(name string, t types.TypeID) *descriptors.ValueParameter {
	p := descriptors.NewValueParameter(fx.owner, len(fx.params.All()), descriptors.Header{Name: fx.nt.Intern(name)}, t, types.NoTypeID, false)
	fx.params.Add(p)
	return p
}

func (fx *fixture) env(ret types.TypeID) *Env {
	return &Env{
		Owner:    fx.owner,
		Locals:   []descriptors.Scope{fx.params},
		TopLevel: []descriptors.Scope{fx.scope, fx.builtins.Package().MemberScope()},
		ResolveType: func(ref ast.TypeRefID) types.TypeID {
			if t, ok := fx.refs[ref]; ok {
				return t
			}
			return fx.in.Error("unknown type")
		},
		ReturnType:  ret,
		AllowReturn: true,
	}
}

func (fx *fixture) typeRef(name string, t types.TypeID) ast.TypeRefID {
	id := fx.ast.TypeRefs.NewNamed(fx.span(), []names.Name{fx.nt.Intern(name)}, nil, fx.in.IsNullable(t))
	fx.refs[id] = t
	return id
}

func (fx *fixture) name(s string) ast.ExprID {
	return fx.ast.Exprs.NewName(fx.span(), fx.nt.Intern(s))
}

func (fx *fixture) lit(kind ast.LitKind, text string) ast.ExprID {
	return fx.ast.Exprs.NewLiteral(fx.span(), kind, text)
}

func (fx *fixture) null() ast.ExprID { return fx.lit(ast.LitNull, "null") }

func (fx *fixture) member(recv ast.ExprID, name string) ast.ExprID {
	return fx.ast.Exprs.NewMember(fx.span(), recv, false, fx.nt.Intern(name))
}

func (fx *fixture) bin(op ast.BinaryOp, l, r ast.ExprID) ast.ExprID {
	return fx.ast.Exprs.NewBinary(fx.span(), op, l, r)
}

func (fx *fixture) is(value ast.ExprID, ref ast.TypeRefID, negated bool) ast.ExprID {
	return fx.ast.Exprs.NewIs(fx.span(), value, ref, negated)
}

func (fx *fixture) ifx(cond, then, els ast.ExprID) ast.ExprID {
	return fx.ast.Exprs.NewIf(fx.span(), cond, then, els)
}

func (fx *fixture) block(stmts ...ast.StmtID) ast.ExprID {
	return fx.ast.Exprs.NewBlock(fx.span(), stmts)
}

func (fx *fixture) do(e ast.ExprID) ast.StmtID { return fx.ast.Stmts.NewExpr(fx.span(), e) }

func (fx *fixture) val(name string, mutable bool, ref ast.TypeRefID, init ast.ExprID) ast.StmtID {
	return fx.ast.Stmts.NewVal(fx.span(), fx.nt.Intern(name), mutable, ref, init)
}

func (fx *fixture) assign(target, value ast.ExprID) ast.StmtID {
	return fx.ast.Stmts.NewAssign(fx.span(), target, value)
}

func (fx *fixture) ret(value ast.ExprID) ast.StmtID { return fx.ast.Stmts.NewReturn(fx.span(), value) }

func (fx *fixture) while(cond ast.ExprID, body ast.StmtID) ast.StmtID {
	return fx.ast.Stmts.NewWhile(fx.span(), cond, body)
}

func (fx *fixture) body(stmts ...ast.StmtID) ast.StmtID { return fx.ast.Stmts.NewBlock(fx.span(), stmts) }

func (fx *fixture) codes() []diag.Code {
	var out []diag.Code
	for _, d := range fx.bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func (fx *fixture) typeOf(t *testing.T, e ast.ExprID) types.TypeID {
	t.Helper()
	typ, ok := binding.Get(fx.trace, binding.ExpressionType, e)
	require.True(t, ok, "expression was not typed")
	return typ
}

func TestSmartCastAfterIsCheck(t *testing.T) {
	fx := newFixture(t)
	fx.param("x", fx.b.AnyType)
	inner := fx.name("x")
	length := fx.member(inner, "length")
	cond := fx.is(fx.name("x"), fx.typeRef("String", fx.b.StringType), false)
	body := fx.body(fx.do(fx.ifx(cond, fx.block(fx.do(length)), ast.NoExprID)))

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Empty(t, fx.codes())
	assert.Equal(t, fx.b.IntType, fx.typeOf(t, length))
	assert.Equal(t, fx.b.AnyType, fx.typeOf(t, inner))
	cast, ok := binding.Get(fx.trace, binding.SmartCast, inner)
	require.True(t, ok)
	assert.Equal(t, fx.b.StringType, cast)
}

func TestNegatedIsCheckNarrowsElseBranch(t *testing.T) {
	fx := newFixture(t)
	fx.param("x", fx.b.AnyType)
	inThen := fx.member(fx.name("x"), "length")
	inElse := fx.member(fx.name("x"), "length")
	cond := fx.is(fx.name("x"), fx.typeRef("String", fx.b.StringType), true)
	body := fx.body(fx.do(fx.ifx(cond, fx.block(fx.do(inThen)), fx.block(fx.do(inElse)))))

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Len(t, fx.codes(), 1)
	assert.Equal(t, fx.b.IntType, fx.typeOf(t, inElse))
}

func TestEarlyReturnOnNullNarrowsTheRest(t *testing.T) {
	fx := newFixture(t)
	fx.param("s", fx.in.MakeNullable(fx.b.StringType))
	check := fx.ifx(fx.bin(ast.OpEq, fx.name("s"), fx.null()), fx.block(fx.ret(fx.lit(ast.LitInt, "0"))), ast.NoExprID)
	body := fx.body(fx.do(check), fx.ret(fx.member(fx.name("s"), "length")))

	fx.checker.CheckBlockBody(fx.env(fx.b.IntType), body)

	assert.Empty(t, fx.codes())
}

func TestNullableReceiverWithoutCheck(t *testing.T) {
	fx := newFixture(t)
	fx.param("s", fx.in.MakeNullable(fx.b.StringType))
	body := fx.body(fx.ret(fx.member(fx.name("s"), "length")))

	fx.checker.CheckBlockBody(fx.env(fx.b.IntType), body)

	assert.Equal(t, []diag.Code{diag.TypUnsafeCall}, fx.codes())
}

func TestElvisWithJumpNarrowsLeftOperand(t *testing.T) {
	fx := newFixture(t)
	fx.param("s", fx.in.MakeNullable(fx.b.StringType))
	decl := fx.val("n", false, ast.NoTypeRefID, fx.bin(ast.OpElvis, fx.name("s"), fx.block(fx.ret(fx.lit(ast.LitInt, "0")))))
	body := fx.body(decl, fx.ret(fx.member(fx.name("s"), "length")))

	fx.checker.CheckBlockBody(fx.env(fx.b.IntType), body)

	assert.Empty(t, fx.codes())
	v, ok := binding.Get(fx.trace, binding.Variable, decl)
	require.True(t, ok)
	assert.Equal(t, fx.b.StringType, v.Type())
}

func TestMissingReturnInBlockBody(t *testing.T) {
	fx := newFixture(t)
	body := fx.body(fx.val("y", false, ast.NoTypeRefID, fx.lit(ast.LitInt, "1")))

	fx.checker.CheckBlockBody(fx.env(fx.b.IntType), body)

	assert.Equal(t, []diag.Code{diag.TypNoReturnInBlockBody}, fx.codes())
}

func TestIntegerLiteralsTakeTheExpectedType(t *testing.T) {
	fx := newFixture(t)
	one := fx.lit(ast.LitInt, "1")
	minByte := fx.ast.Exprs.NewUnary(fx.span(), ast.OpMinus, fx.lit(ast.LitInt, "128"))
	body := fx.body(
		fx.val("a", false, fx.typeRef("Long", fx.b.LongType), one),
		fx.val("b", false, fx.typeRef("Byte", fx.b.ByteType), minByte),
		fx.val("c", false, fx.typeRef("Byte", fx.b.ByteType), fx.lit(ast.LitInt, "300")),
	)

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Equal(t, []diag.Code{diag.TypIntLiteralOutOfRange}, fx.codes())
	assert.Equal(t, fx.b.LongType, fx.typeOf(t, one))
	assert.Equal(t, fx.b.ByteType, fx.typeOf(t, minByte))
}

func TestConstantsThatDoNotConform(t *testing.T) {
	fx := newFixture(t)
	body := fx.body(
		fx.val("s", false, fx.typeRef("String", fx.b.StringType), fx.lit(ast.LitInt, "1")),
		fx.val("n", false, fx.typeRef("String", fx.b.StringType), fx.null()),
	)

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Equal(t, []diag.Code{diag.TypConstantExpectedTypeMismatch, diag.TypConstantExpectedTypeMismatch}, fx.codes())
}

func TestTypeMismatch(t *testing.T) {
	fx := newFixture(t)
	fx.param("x", fx.b.AnyType)
	body := fx.body(fx.val("s", false, fx.typeRef("String", fx.b.StringType), fx.name("x")))

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Equal(t, []diag.Code{diag.TypMismatch}, fx.codes())
}

func TestValCannotBeReassigned(t *testing.T) {
	fx := newFixture(t)
	body := fx.body(
		fx.val("x", false, ast.NoTypeRefID, fx.lit(ast.LitInt, "1")),
		fx.assign(fx.name("x"), fx.lit(ast.LitInt, "2")),
	)

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Equal(t, []diag.Code{diag.TypValReassignment}, fx.codes())
}

func TestAssignmentNarrowsVar(t *testing.T) {
	fx := newFixture(t)
	read := fx.name("y")
	body := fx.body(
		fx.val("y", true, fx.typeRef("Any", fx.b.AnyType), fx.lit(ast.LitInt, "1")),
		fx.assign(fx.name("y"), fx.lit(ast.LitString, "s")),
		fx.do(fx.member(read, "length")),
	)

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Empty(t, fx.codes())
	cast, ok := binding.Get(fx.trace, binding.SmartCast, read)
	require.True(t, ok)
	assert.Equal(t, fx.b.StringType, cast)
}

func TestLoopForgetsVariablesAssignedInItsBody(t *testing.T) {
	fx := newFixture(t)
	nullable := fx.in.MakeNullable(fx.b.StringType)
	before := fx.member(fx.name("y"), "length")
	inLoop := fx.member(fx.name("y"), "length")
	loop := fx.while(fx.lit(ast.LitBool, "true"), fx.body(
		fx.do(inLoop),
		fx.assign(fx.name("y"), fx.null()),
	))
	body := fx.body(
		fx.val("y", true, fx.typeRef("String", nullable), fx.null()),
		fx.do(fx.ifx(fx.bin(ast.OpNotEq, fx.name("y"), fx.null()), fx.block(fx.do(before), loop), ast.NoExprID)),
	)

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	require.Len(t, fx.bag.Items(), 1)
	assert.Equal(t, diag.TypUnsafeCall, fx.bag.Items()[0].Code)
	assert.False(t, binding.Has(fx.trace, binding.SmartCast, inLoop))
}

func TestConditionMustBeBoolean(t *testing.T) {
	fx := newFixture(t)
	body := fx.body(fx.do(fx.ifx(fx.lit(ast.LitInt, "1"), fx.block(), ast.NoExprID)))

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Equal(t, []diag.Code{diag.TypConditionTypeMismatch}, fx.codes())
}

func TestReturnNotAllowedInExpression(t *testing.T) {
	fx := newFixture(t)
	env := fx.env(types.NoTypeID)
	env.AllowReturn = false

	fx.checker.CheckExpression(env, fx.block(fx.ret(fx.lit(ast.LitInt, "1"))), types.NoTypeID)

	assert.Equal(t, []diag.Code{diag.TypReturnNotAllowed}, fx.codes())
}

func TestThisWithoutReceiver(t *testing.T) {
	fx := newFixture(t)

	got := fx.checker.CheckExpression(fx.env(types.NoTypeID), fx.ast.Exprs.NewThis(fx.span()), types.NoTypeID)

	assert.True(t, fx.in.IsError(got))
	assert.Equal(t, []diag.Code{diag.TypThisNotAvailable}, fx.codes())
}

func TestOperatorsResolveToMembers(t *testing.T) {
	fx := newFixture(t)
	env := fx.env(types.NoTypeID)

	sum := fx.checker.CheckExpression(env, fx.bin(ast.OpAdd, fx.lit(ast.LitInt, "1"), fx.lit(ast.LitLong, "2")), types.NoTypeID)
	less := fx.checker.CheckExpression(env, fx.bin(ast.OpLt, fx.lit(ast.LitInt, "1"), fx.lit(ast.LitInt, "2")), types.NoTypeID)

	assert.Empty(t, fx.codes())
	assert.Equal(t, fx.b.LongType, sum)
	assert.Equal(t, fx.b.BooleanType, less)
}

func TestComparingNonNullValueWithNull(t *testing.T) {
	fx := newFixture(t)
	fx.param("n", fx.b.IntType)

	fx.checker.CheckExpression(fx.env(types.NoTypeID), fx.bin(ast.OpEq, fx.name("n"), fx.null()), types.NoTypeID)

	assert.Equal(t, []diag.Code{diag.TypSenselessComparison}, fx.codes())
}

func TestExtractFromNegatedCondition(t *testing.T) {
	fx := newFixture(t)
	fx.param("x", fx.b.AnyType)
	x := fx.name("x")
	cond := fx.ast.Exprs.NewUnary(fx.span(), ast.OpNot, fx.is(x, fx.typeRef("String", fx.b.StringType), false))
	fx.checker.CheckExpression(fx.env(types.NoTypeID), cond, types.NoTypeID)
	require.Empty(t, fx.codes())

	value, ok := binding.Get(fx.trace, DataFlowValue, x)
	require.True(t, ok)
	whenFalse := fx.checker.ExtractDataFlowInfoFromCondition(cond, false, Context{})
	whenTrue := fx.checker.ExtractDataFlowInfoFromCondition(cond, true, Context{})
	assert.Equal(t, []types.TypeID{fx.b.StringType}, whenFalse.PossibleTypes(value))
	assert.Empty(t, whenTrue.PossibleTypes(value))
}

func TestRedeclarationInOneBlock(t *testing.T) {
	fx := newFixture(t)
	body := fx.body(
		fx.val("x", false, ast.NoTypeRefID, fx.lit(ast.LitInt, "1")),
		fx.val("x", false, ast.NoTypeRefID, fx.lit(ast.LitInt, "2")),
	)

	fx.checker.CheckBlockBody(fx.env(fx.b.UnitType), body)

	assert.Equal(t, []diag.Code{diag.ResRedeclaration}, fx.codes())
}

func TestConditionInfoComposes(t *testing.T) {
	fx := newFixture(t)
	fx.param("x", fx.b.AnyType)
	fx.param("y", fx.b.AnyType)
	checks := func() (ast.ExprID, ast.ExprID, ast.ExprID) {
		x := fx.name("x")
		return fx.is(x, fx.typeRef("String", fx.b.StringType), false), fx.is(fx.name("y"), fx.typeRef("Int", fx.b.IntType), false), x
	}
	extract := func(e ast.ExprID, v bool) *dataflow.Info {
		return fx.checker.ExtractDataFlowInfoFromCondition(e, v, Context{})
	}
	not := func(e ast.ExprID) ast.ExprID { return fx.ast.Exprs.NewUnary(fx.span(), ast.OpNot, e) }

	for _, tc := range []struct {
		name string
		op   ast.BinaryOp
		// join combines the operands' info when the condition has value v.
		join func(l, r *dataflow.Info, v bool) *dataflow.Info
	}{
		{"and", ast.OpAnd, func(l, r *dataflow.Info, v bool) *dataflow.Info {
			if v {
				return l.And(r)
			}
			return l.Or(r)
		}},
		{"or", ast.OpOr, func(l, r *dataflow.Info, v bool) *dataflow.Info {
			if v {
				return l.Or(r)
			}
			return l.And(r)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a, b, x := checks()
			cond := fx.bin(tc.op, a, b)
			doubled := not(not(cond))
			fx.checker.CheckExpression(fx.env(types.NoTypeID), doubled, types.NoTypeID)
			require.Empty(t, fx.codes())

			for _, v := range []bool{true, false} {
				want := tc.join(extract(a, v), extract(b, v), v)
				assert.True(t, want.Equal(extract(cond, v)), "%s %v", tc.name, v)
				assert.True(t, extract(cond, v).Equal(extract(doubled, v)), "!!(%s) %v", tc.name, v)
			}

			value, ok := binding.Get(fx.trace, DataFlowValue, x)
			require.True(t, ok)
			narrowed := extract(cond, tc.op == ast.OpAnd)
			if tc.op == ast.OpAnd {
				assert.Equal(t, []types.TypeID{fx.b.StringType}, narrowed.PossibleTypes(value))
			} else {
				assert.Empty(t, narrowed.PossibleTypes(value))
			}
		})
	}
}
