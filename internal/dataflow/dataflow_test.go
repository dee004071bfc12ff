package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/descriptors"
	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

type fixture struct {
	in *types.Interner
	b  *types.Builtins
	f  *Factory
}

func newFixture() *fixture {
	in := types.NewInterner(names.NewTable())
	return &fixture{in: in, b: in.Builtins(), f: NewFactory(in)}
}

func (fx *fixture) stable(id ValueID, t types.TypeID) Value {
	return Value{ID: id, Kind: StableValue, Type: t, Nullability: fx.f.immanent(t)}
}

func TestNullabilityLattice(t *testing.T) {
	assert.Equal(t, NotNull, Unknown.And(NotNull))
	assert.Equal(t, Impossible, Null.And(NotNull))
	assert.Equal(t, Unknown, Null.Or(NotNull))
	assert.Equal(t, Null, Impossible.Or(Null))
	assert.Equal(t, NotNull, Null.Invert())
	assert.Equal(t, Unknown, NotNull.Invert())
	assert.True(t, Unknown.CanBeNull())
	assert.False(t, NotNull.CanBeNull())
}

func TestEstablishSubtypingNarrows(t *testing.T) {
	fx := newFixture()
	x := fx.stable(1, fx.b.NullableAnyType)
	empty := Empty(fx.in)

	info := empty.EstablishSubtyping(x, fx.b.StringType)
	assert.Contains(t, info.PossibleTypes(x), fx.b.StringType)
	assert.Equal(t, NotNull, info.Nullability(x))
	assert.Empty(t, empty.PossibleTypes(x), "receiver stays untouched")
	assert.Equal(t, Unknown, empty.Nullability(x))
}

func TestNullCheckMakesStaticTypeNonNull(t *testing.T) {
	fx := newFixture()
	s := fx.stable(1, fx.in.MakeNullable(fx.b.StringType))

	info := Empty(fx.in).Disequate(s, fx.f.Null())
	assert.Equal(t, NotNull, info.Nullability(s))
	assert.Equal(t, []types.TypeID{fx.b.StringType}, info.PossibleTypes(s))

	eq := Empty(fx.in).Equate(s, fx.f.Null())
	assert.Equal(t, Null, eq.Nullability(s))
	assert.Empty(t, eq.PossibleTypes(s))
}

func TestEquateSharesTypes(t *testing.T) {
	fx := newFixture()
	a := fx.stable(1, fx.b.NullableAnyType)
	b := fx.stable(2, fx.b.StringType)

	info := Empty(fx.in).Equate(a, b)
	assert.Equal(t, NotNull, info.Nullability(a))
	assert.Contains(t, info.PossibleTypes(a), fx.b.StringType)
}

func TestAndIsUnionOrIsIntersection(t *testing.T) {
	fx := newFixture()
	x := fx.stable(1, fx.b.NullableAnyType)
	y := fx.stable(2, fx.b.NullableAnyType)
	e := Empty(fx.in)

	left := e.EstablishSubtyping(x, fx.b.StringType)
	right := e.EstablishSubtyping(y, fx.b.IntType)

	both := left.And(right)
	assert.Contains(t, both.PossibleTypes(x), fx.b.StringType)
	assert.Contains(t, both.PossibleTypes(y), fx.b.IntType)

	either := left.Or(right)
	assert.True(t, either.IsEmpty())

	same := left.Or(e.EstablishSubtyping(x, fx.b.StringType).EstablishSubtyping(y, fx.b.IntType))
	assert.True(t, same.Equal(left))
}

func TestAndIsIdempotent(t *testing.T) {
	fx := newFixture()
	x := fx.stable(1, fx.b.NullableAnyType)
	info := Empty(fx.in).EstablishSubtyping(x, fx.b.StringType)
	assert.True(t, info.And(info).Equal(info))
	assert.True(t, info.And(Empty(fx.in)).Equal(info))
	assert.True(t, info.Or(info).Equal(info))
}

func TestClearValue(t *testing.T) {
	fx := newFixture()
	x := fx.stable(1, fx.b.NullableAnyType)
	info := Empty(fx.in).EstablishSubtyping(x, fx.b.StringType)
	cleared := info.ClearValue(x)
	assert.True(t, cleared.IsEmpty())
	assert.Equal(t, []ValueID{1}, info.Values())
}

func TestValuesWithoutIdentityGetNoFacts(t *testing.T) {
	fx := newFixture()
	v := fx.f.ForExpression(0, fx.b.NullableAnyType)
	info := Empty(fx.in).EstablishSubtyping(v, fx.b.StringType)
	assert.True(t, info.IsEmpty())
	assert.Nil(t, info.PossibleTypes(v))
}

func TestFactoryStability(t *testing.T) {
	fx := newFixture()
	nt := fx.in.Names()
	mod := descriptors.NewModule(nt.Intern("m"), fx.in, storage.NewManager(storage.ModeSingleThreaded), nil)

	val := descriptors.NewLocalVariable(mod, nt.Intern("a"), fx.b.IntType, false, source.NoSpan)
	vr := descriptors.NewLocalVariable(mod, nt.Intern("b"), fx.b.IntType, true, source.NoSpan)

	first := fx.f.ForVariable(val, nil, fx.b.IntType)
	again := fx.f.ForVariable(val, nil, fx.b.IntType)
	require.True(t, first.IsIdentifiable())
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, StableValue, first.Kind)
	assert.Equal(t, NotNull, first.Nullability)

	other := fx.f.ForVariable(vr, nil, fx.in.MakeNullable(fx.b.IntType))
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, StableVariable, other.Kind)
	assert.Equal(t, Unknown, other.Nullability)

	this := fx.f.ForThis(mod, fx.b.AnyType)
	assert.True(t, this.IsStable())
	assert.False(t, fx.f.Null().IsIdentifiable())
}
