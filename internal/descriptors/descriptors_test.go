package descriptors

import (
	"errors"
	"testing"

	"frontcore/internal/names"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

type testFinder struct {
	builtins *BuiltIns
	classes  map[names.ClassId]*ClassDescriptor
}

func (f *testFinder) FindClass(id names.ClassId) *ClassDescriptor {
	if c := f.classes[id]; c != nil {
		return c
	}
	if f.builtins != nil {
		return f.builtins.Class(id)
	}
	return nil
}

func (f *testFinder) FindPackage(names.FqName) *PackageDescriptor { return nil }

type funcSource struct {
	typeParams func(c *ClassDescriptor) []*TypeParameter
	supers     func(c *ClassDescriptor) ([]types.TypeID, error)
	members    func(c *ClassDescriptor) []*CallableDescriptor
}

func (s funcSource) TypeParameters(c *ClassDescriptor) ([]*TypeParameter, error) {
	if s.typeParams == nil {
		return nil, nil
	}
	return s.typeParams(c), nil
}

func (s funcSource) Supertypes(c *ClassDescriptor) ([]types.TypeID, error) {
	if s.supers == nil {
		return []types.TypeID{c.Module().Builtins().AnyType}, nil
	}
	return s.supers(c)
}

func (s funcSource) Members(c *ClassDescriptor) ([]*CallableDescriptor, error) {
	if s.members == nil {
		return nil, nil
	}
	return s.members(c), nil
}

func (funcSource) Constructors(*ClassDescriptor) ([]*CallableDescriptor, error) { return nil, nil }
func (funcSource) NestedClasses(*ClassDescriptor) ([]*ClassDescriptor, error)   { return nil, nil }

type fixture struct {
	nt     *names.Table
	in     *types.Interner
	mod    *ModuleDescriptor
	b      *BuiltIns
	finder *testFinder
	pkg    *PackageDescriptor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	nt := names.NewTable()
	in := types.NewInterner(nt)
	f := &testFinder{classes: make(map[names.ClassId]*ClassDescriptor)}
	mod := NewModule(nt.Intern("test"), in, storage.NewManager(storage.ModeSingleThreaded), f)
	f.builtins = NewBuiltIns(mod)
	pkg := NewPackage(mod, nt.ParseFq("demo"), func(*PackageDescriptor) (Scope, error) { return EmptyScope, nil })
	return &fixture{nt: nt, in: in, mod: mod, b: f.builtins, finder: f, pkg: pkg}
}

func (fx *fixture) class(name string, src ClassSource) *ClassDescriptor {
	id := fx.nt.TopLevel(fx.pkg.FqName(), fx.nt.Intern(name))
	c := NewClass(fx.pkg, ClassSpec{Header: Header{Name: fx.nt.Intern(name), Modality: Open}, ID: id}, src)
	fx.finder.classes[id] = c
	return c
}

func TestBuiltinNumericHierarchy(t *testing.T) {
	fx := newFixture(t)
	bt := fx.b.Types()
	chk := fx.mod.Checker()

	comparableInt := fx.in.Class(bt.Comparable, types.Invariant(bt.IntType))
	if !chk.IsSubtype(bt.IntType, comparableInt) {
		t.Fatalf("Int must be Comparable<Int>")
	}
	if !chk.IsSubtype(bt.IntType, bt.NumberType) || !chk.IsSubtype(bt.IntType, bt.AnyType) {
		t.Fatalf("Int must be a Number and Any")
	}
	if chk.IsSubtype(bt.IntType, bt.LongType) {
		t.Fatalf("Int must not widen to Long")
	}
	if chk.IsSubtype(fx.in.MakeNullable(bt.IntType), bt.AnyType) {
		t.Fatalf("Int? must not be Any")
	}
}

func TestMemberScopeIsMemoized(t *testing.T) {
	fx := newFixture(t)
	intCls := fx.b.Class(fx.b.Types().Int)
	first := intCls.MemberScope()
	if first != intCls.MemberScope() {
		t.Fatalf("member scope recomputed")
	}
	plus := first.Functions(fx.nt.Intern("plus"))
	if len(plus) != 6 {
		t.Fatalf("expected 6 plus overloads, got %d", len(plus))
	}
}

func TestCompareToOverridesComparable(t *testing.T) {
	fx := newFixture(t)
	bt := fx.b.Types()
	intCls := fx.b.Class(bt.Int)
	var compareInt *CallableDescriptor
	for _, f := range intCls.MemberScope().Functions(fx.nt.Intern("compareTo")) {
		if f.ValueParameters()[0].Type() == bt.IntType {
			compareInt = f
		}
	}
	if compareInt == nil {
		t.Fatalf("Int.compareTo(Int) missing")
	}
	over := compareInt.Overridden()
	if len(over) != 1 || over[0].Owner() != fx.b.Class(bt.Comparable) {
		t.Fatalf("compareTo must override Comparable.compareTo, got %d", len(over))
	}
	if compareInt.MemberKind() != MemberDeclaration {
		t.Fatalf("declared member reported as %v", compareInt.MemberKind())
	}
}

func TestFakeOverrideSubstitutesInheritedSignature(t *testing.T) {
	fx := newFixture(t)
	bt := fx.b.Types()
	box := fx.class("Box", funcSource{
		typeParams: func(c *ClassDescriptor) []*TypeParameter {
			return []*TypeParameter{NewTypeParameter(c, 0, Header{Name: fx.nt.Intern("T")}, types.VarInvariant, false, nil)}
		},
		members: func(c *ClassDescriptor) []*CallableDescriptor {
			tp := c.TypeParameters()[0].Type()
			return []*CallableDescriptor{fx.b.function(c, "get", Open, false, nil, tp)}
		},
	})
	intBox := fx.class("IntBox", funcSource{
		supers: func(*ClassDescriptor) ([]types.TypeID, error) {
			return []types.TypeID{fx.in.Class(box.ID(), types.Invariant(bt.IntType))}, nil
		},
	})

	gets := intBox.MemberScope().Functions(fx.nt.Intern("get"))
	if len(gets) != 1 {
		t.Fatalf("expected one inherited get, got %d", len(gets))
	}
	get := gets[0]
	if get.MemberKind() != MemberFakeOverride || get.Owner() != intBox {
		t.Fatalf("inherited get is %v owned by %v", get.MemberKind(), get.Owner())
	}
	if get.ReturnType() != bt.IntType {
		t.Fatalf("return type = %s", fx.in.String(get.ReturnType()))
	}
	if get.Original().Owner() != box {
		t.Fatalf("fake override must point back to Box.get")
	}
	if len(intBox.MemberScope().FakeOverrides()) != 4 {
		t.Fatalf("expected get plus the three Any members, got %d", len(intBox.MemberScope().FakeOverrides()))
	}
}

func TestSupertypeCycleDegradesToAny(t *testing.T) {
	fx := newFixture(t)
	a := fx.class("A", funcSource{
		supers: func(c *ClassDescriptor) ([]types.TypeID, error) {
			// asking for our own supertypes while computing them
			if err := c.SupertypesErr(); err != nil {
				return nil, err
			}
			return []types.TypeID{fx.b.Types().AnyType}, nil
		},
	})
	err := a.SupertypesErr()
	if !errors.Is(err, storage.ErrCyclicComputation) {
		t.Fatalf("expected a cycle, got %v", err)
	}
	var ce *storage.CycleError
	if !errors.As(err, &ce) || ce.Key != a.SupertypesKey() {
		t.Fatalf("cycle key = %v", err)
	}
	st := a.Supertypes()
	if len(st) != 1 || st[0] != fx.b.Types().AnyType {
		t.Fatalf("fallback supertypes = %v", st)
	}
}

func TestErrorClassIsTotal(t *testing.T) {
	fx := newFixture(t)
	id := fx.nt.ParseClassId("demo/Missing")
	c := NewErrorClass(fx.mod, id, "")
	if !c.IsError() || !fx.in.IsError(c.DefaultType()) {
		t.Fatalf("error class must have an error type")
	}
	if len(c.MemberScope().Callables()) != 0 || c.Supertypes() != nil {
		t.Fatalf("error class must be empty")
	}
}

func TestCanonicalMemberOrder(t *testing.T) {
	fx := newFixture(t)
	bt := fx.b.Types()
	c := fx.class("C", funcSource{})
	f2 := fx.b.function(c, "f", Final, false, []paramSpec{{"x", bt.StringType}}, bt.UnitType)
	f1 := fx.b.function(c, "f", Final, false, []paramSpec{{"x", bt.IntType}}, bt.UnitType)
	g := fx.b.function(c, "a", Final, false, nil, bt.UnitType)
	p := fx.b.property(c, "z", bt.IntType)

	ms := []*CallableDescriptor{f2, g, f1, p}
	SortMembers(ms)
	want := []*CallableDescriptor{p, g, f1, f2}
	for i := range want {
		if ms[i] != want[i] {
			t.Fatalf("position %d: got %s", i, Render(ms[i]))
		}
	}
}

func TestRender(t *testing.T) {
	fx := newFixture(t)
	arrayOf := fx.b.Package().MemberScope().Functions(fx.nt.Intern("arrayOf"))
	if len(arrayOf) != 1 {
		t.Fatalf("arrayOf missing")
	}
	if got := Render(arrayOf[0]); got != "fun <T> arrayOf(vararg elements: T): Array<T>" {
		t.Fatalf("render = %q", got)
	}
}

func TestTypeParameterDefaultBound(t *testing.T) {
	fx := newFixture(t)
	c := fx.class("G", funcSource{
		typeParams: func(c *ClassDescriptor) []*TypeParameter {
			return []*TypeParameter{NewTypeParameter(c, 0, Header{Name: fx.nt.Intern("T")}, types.VarOut, false, nil)}
		},
	})
	tp := c.TypeParameters()[0]
	if fx.mod.TypeParameter(tp.ID()) != tp {
		t.Fatalf("type parameter not registered")
	}
	bounds := fx.mod.UpperBounds(tp.ID())
	if len(bounds) != 1 || bounds[0] != fx.b.Types().NullableAnyType {
		t.Fatalf("default bound = %v", bounds)
	}
}
