package inference

import (
	"testing"

	"frontcore/internal/names"
	"frontcore/internal/types"
)

type hierarchy struct {
	in     *types.Interner
	supers map[names.ClassId][]types.TypeID
	params map[names.ClassId][]types.TypeParamID
	bounds map[types.TypeParamID][]types.TypeID
}

func (h *hierarchy) Supertypes(id names.ClassId) []types.TypeID {
	if s, ok := h.supers[id]; ok {
		return s
	}
	if h.in.Builtins().IsRoot(id) {
		return nil
	}
	return []types.TypeID{h.in.Builtins().AnyType}
}

func (h *hierarchy) TypeParameters(id names.ClassId) []types.TypeParamID { return h.params[id] }

func (h *hierarchy) UpperBounds(p types.TypeParamID) []types.TypeID {
	if b, ok := h.bounds[p]; ok {
		return b
	}
	return []types.TypeID{h.in.Builtins().NullableAnyType}
}

type fixture struct {
	in  *types.Interner
	b   *types.Builtins
	h   *hierarchy
	c   *types.Checker
	box names.ClassId // Box<X>
	out names.ClassId // Out<out Y>
}

func newFixture() *fixture {
	nt := names.NewTable()
	in := types.NewInterner(nt)
	b := in.Builtins()
	h := &hierarchy{
		in:     in,
		supers: map[names.ClassId][]types.TypeID{},
		params: map[names.ClassId][]types.TypeParamID{},
		bounds: map[types.TypeParamID][]types.TypeID{},
	}
	number := []types.TypeID{b.NumberType}
	h.supers[b.Int] = append(number, in.Class(b.Comparable, types.Invariant(b.IntType)))
	h.supers[b.Double] = append(number, in.Class(b.Comparable, types.Invariant(b.DoubleType)))
	h.supers[b.String] = []types.TypeID{in.Class(b.Comparable, types.Invariant(b.StringType))}

	pkg := nt.ParseFq("demo")
	fx := &fixture{in: in, b: b, h: h}
	fx.box = nt.TopLevel(pkg, nt.Intern("Box"))
	fx.out = nt.TopLevel(pkg, nt.Intern("Out"))
	h.params[fx.box] = []types.TypeParamID{in.NewTypeParam(types.TypeParamInfo{Name: nt.Intern("X")})}
	h.params[fx.out] = []types.TypeParamID{in.NewTypeParam(types.TypeParamInfo{Name: nt.Intern("Y"), Variance: types.VarOut})}
	fx.c = types.NewChecker(in, h)
	return fx
}

func (fx *fixture) typeParam(name string, bounds ...types.TypeID) (types.TypeParamID, types.TypeID) {
	p := fx.in.NewTypeParam(types.TypeParamInfo{Name: fx.in.Names().Intern(name)})
	if len(bounds) > 0 {
		fx.h.bounds[p] = bounds
	}
	return p, fx.in.Param(p, false)
}

func (fx *fixture) boxOf(t types.TypeID) types.TypeID { return fx.in.Class(fx.box, types.Invariant(t)) }
func (fx *fixture) outOf(t types.TypeID) types.TypeID { return fx.in.Class(fx.out, types.Invariant(t)) }

func (fx *fixture) solved(t *testing.T, s *System, v types.TypeParamID) types.TypeID {
	t.Helper()
	st := s.Status()
	if !st.IsSuccessful() {
		t.Fatalf("system not solved: %+v", st)
	}
	got, ok := s.TypeBounds(v).Value(fx.c)
	if !ok {
		t.Fatalf("no value for variable")
	}
	return got
}

func TestInfersFromArgument(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.b.IntType, T, ValueParameter(0))

	if got := fx.solved(t, s, p); got != fx.b.IntType {
		t.Fatalf("T = %s, want Int", fx.in.String(got))
	}
	if got := s.ResultingSubstitutor().Substitute(fx.boxOf(T)); got != fx.boxOf(fx.b.IntType) {
		t.Fatalf("substituted %s", fx.in.String(got))
	}
}

func TestCommonSupertypeOfLowerBounds(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.b.IntType, T, ValueParameter(0))
	s.AddSubtypeConstraint(fx.b.DoubleType, T, ValueParameter(1))

	if got := fx.solved(t, s, p); got != fx.b.NumberType {
		t.Fatalf("T = %s, want Number", fx.in.String(got))
	}
}

func TestCovariantArgumentsWidenToAny(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.outOf(fx.b.IntType), fx.outOf(T), ValueParameter(0))
	s.AddSubtypeConstraint(fx.outOf(fx.b.StringType), fx.outOf(T), ValueParameter(1))

	if got := fx.solved(t, s, p); got != fx.b.AnyType {
		t.Fatalf("T = %s, want Any", fx.in.String(got))
	}
}

func TestNullableVariableSplits(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.in.MakeNullable(fx.b.StringType), fx.in.MakeNullable(T), ValueParameter(0))

	if got := fx.solved(t, s, p); got != fx.b.StringType {
		t.Fatalf("T = %s, want String", fx.in.String(got))
	}
}

func TestFlexibleArgumentUsesLowerBound(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.in.Platform(fx.boxOf(fx.b.IntType)), fx.boxOf(T), ValueParameter(0))

	if got := fx.solved(t, s, p); got != fx.b.IntType {
		t.Fatalf("T = %s, want Int", fx.in.String(got))
	}
}

func TestInvariantConflict(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.boxOf(fx.b.IntType), fx.boxOf(T), ValueParameter(0))
	s.AddSubtypeConstraint(fx.boxOf(fx.b.StringType), fx.boxOf(T), ValueParameter(1))

	st := s.Status()
	if !st.ConflictingConstraints || !st.HasContradiction() || st.IsSuccessful() {
		t.Fatalf("expected conflict, got %+v", st)
	}
	if !s.HasOnlyErrorsFrom(ValueParameter(1)) {
		t.Fatalf("dropping the second argument must solve the system")
	}
}

func TestTypeConstructorMismatch(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.b.StringType, fx.boxOf(T), ValueParameter(0))

	st := s.Status()
	if !st.TypeConstructorMismatch || !s.HasErrorAt(ValueParameter(0)) {
		t.Fatalf("expected mismatch at parameter 0, got %+v", st)
	}
}

func TestUnknownParameter(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})

	st := s.Status()
	if !st.UnknownParameters || st.IsSuccessful() {
		t.Fatalf("expected unknown parameter, got %+v", st)
	}
	if got := s.ResultingSubstitutor().Substitute(T); !fx.in.IsError(got) {
		t.Fatalf("uninferred variable must become an error type, got %s", fx.in.String(got))
	}
	if got := s.CurrentSubstitutor().Substitute(T); got != fx.in.DontCare() {
		t.Fatalf("current substitutor must use the wildcard, got %s", fx.in.String(got))
	}
}

func TestDeclaredBoundViolation(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T", fx.b.NumberType)
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.b.StringType, T, ValueParameter(0))
	s.ProcessDeclaredBounds()

	st := s.Status()
	if st.IsSuccessful() || !st.ViolatedUpperBound {
		t.Fatalf("expected violated upper bound, got %+v", st)
	}

	ok := NewSystem(fx.c, []types.TypeParamID{p})
	ok.AddSubtypeConstraint(fx.b.IntType, T, ValueParameter(0))
	ok.ProcessDeclaredBounds()
	if got := fx.solved(t, ok, p); got != fx.b.IntType {
		t.Fatalf("T = %s, want Int", fx.in.String(got))
	}
}

func TestBoundOnlyIsUnknown(t *testing.T) {
	fx := newFixture()
	p, _ := fx.typeParam("T", fx.b.NumberType)
	s := NewSystem(fx.c, []types.TypeParamID{p})
	if !s.Status().UnknownParameters {
		t.Fatalf("a declared bound alone must not fix the variable")
	}
}

func TestExpectedTypeConstraint(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSupertypeConstraint(fx.boxOf(fx.b.StringType), fx.boxOf(T), ExpectedType())
	s.AddSupertypeConstraint(fx.in.DontCare(), T, ExpectedType())

	if got := fx.solved(t, s, p); got != fx.b.StringType {
		t.Fatalf("T = %s, want String", fx.in.String(got))
	}
}

func TestErrorTypesAreIgnored(t *testing.T) {
	fx := newFixture()
	p, T := fx.typeParam("T")
	s := NewSystem(fx.c, []types.TypeParamID{p})
	s.AddSubtypeConstraint(fx.in.Error("unresolved"), T, ValueParameter(0))

	st := s.Status()
	if !st.ErrorInConstrainingType || !st.UnknownParameters {
		t.Fatalf("got %+v", st)
	}
}
