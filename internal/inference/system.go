package inference

import (
	"fmt"

	"frontcore/internal/types"
)

type constraintKind uint8

const (
	subtypeConstraint constraintKind = iota
	equalConstraint
)

// System infers the type variables of one generic call. Constraints are
// decomposed structurally until every one relates a type variable to a
// proper type; what cannot be decomposed is a type constructor mismatch.
type System struct {
	c    *types.Checker
	in   *types.Interner
	vars []types.TypeParamID // declaration order
	idx  map[types.TypeParamID]int

	bounds         map[types.TypeParamID]*TypeBounds
	errorPositions map[Position]bool
	errorInTypes   bool
}

// NewSystem registers vars as type variables. Each declared upper bound
// becomes a weak upper bound in which references to the variables
// themselves are replaced by the wildcard type.
func NewSystem(c *types.Checker, vars []types.TypeParamID) *System {
	s := newEmpty(c, vars)
	dontCare := make([]types.Projection, len(vars))
	for i := range vars {
		dontCare[i] = types.Invariant(s.in.DontCare())
	}
	constant := types.NewSubstitutor(s.in, vars, dontCare)
	b := s.in.Builtins()
	for i, v := range vars {
		for _, declared := range c.Hierarchy().UpperBounds(v) {
			if declared == b.NullableAnyType {
				continue
			}
			s.bounds[v].add(Bound{Kind: UpperBound, Type: constant.Substitute(declared), Position: TypeBound(i)})
		}
	}
	return s
}

func newEmpty(c *types.Checker, vars []types.TypeParamID) *System {
	s := &System{
		c:              c,
		in:             c.Interner(),
		vars:           vars,
		idx:            make(map[types.TypeParamID]int, len(vars)),
		bounds:         make(map[types.TypeParamID]*TypeBounds, len(vars)),
		errorPositions: make(map[Position]bool),
	}
	for i, v := range vars {
		s.idx[v] = i
		s.bounds[v] = &TypeBounds{Var: v}
	}
	return s
}

// Variables returns the type variables in declaration order.
func (s *System) Variables() []types.TypeParamID { return s.vars }

// TypeBounds returns the bounds collected for v. It panics for types that
// are not variables of this system.
func (s *System) TypeBounds(v types.TypeParamID) *TypeBounds {
	tb, ok := s.bounds[v]
	if !ok {
		panic(fmt.Errorf("inference: type parameter %d is not a variable of this system", v))
	}
	return tb
}

// AddSubtypeConstraint records constraining <: subject.
func (s *System) AddSubtypeConstraint(constraining, subject types.TypeID, pos Position) {
	s.add(subtypeConstraint, constraining, subject, pos)
}

// AddSupertypeConstraint records subject <: constraining. A missing or
// wildcard constraining type imposes nothing.
func (s *System) AddSupertypeConstraint(constraining, subject types.TypeID, pos Position) {
	if constraining == types.NoTypeID || s.isDontCare(constraining) {
		return
	}
	s.add(subtypeConstraint, subject, constraining, pos)
}

// AddEqualityConstraint records a == b.
func (s *System) AddEqualityConstraint(a, b types.TypeID, pos Position) {
	s.add(equalConstraint, a, b, pos)
}

func (s *System) isDontCare(id types.TypeID) bool {
	t, ok := s.in.Lookup(id)
	return ok && t.Kind == types.KindSimple && t.Ctor.Kind == types.CtorDontCare
}

func (s *System) skip(id types.TypeID) bool {
	if id == types.NoTypeID || s.isDontCare(id) {
		return true
	}
	if s.in.IsError(id) {
		s.errorInTypes = true
		return true
	}
	return false
}

func (s *System) variable(id types.TypeID) (types.TypeParamID, bool) {
	t, ok := s.in.Lookup(id)
	if !ok || t.Kind != types.KindSimple || t.Ctor.Kind != types.CtorTypeParam {
		return types.NoTypeParamID, false
	}
	_, mine := s.idx[t.Ctor.Param]
	return t.Ctor.Param, mine
}

func (s *System) containsVariables(id types.TypeID) bool {
	t, ok := s.in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case types.KindFlexible:
		return s.containsVariables(t.Lower) || s.containsVariables(t.Upper)
	case types.KindError:
		return false
	}
	if t.Ctor.Kind == types.CtorTypeParam {
		_, mine := s.idx[t.Ctor.Param]
		return mine
	}
	for _, a := range t.Args {
		if !a.Star && s.containsVariables(a.Type) {
			return true
		}
	}
	return false
}

const maxDecomposeDepth = 32

func (s *System) add(kind constraintKind, sub, super types.TypeID, pos Position) {
	s.decompose(kind, sub, super, pos, 0)
}

func (s *System) decompose(kind constraintKind, sub, super types.TypeID, pos Position, depth int) {
	if s.skip(sub) || s.skip(super) || sub == super {
		return
	}
	if depth > maxDecomposeDepth {
		s.errorPositions[pos] = true
		return
	}
	subVar, subIsVar := s.variable(sub)
	superVar, superIsVar := s.variable(super)
	switch {
	case subIsVar:
		bk := UpperBound
		if kind == equalConstraint {
			bk = ExactBound
		}
		s.bind(subVar, sub, super, bk, pos)
		return
	case superIsVar:
		bk := LowerBound
		if kind == equalConstraint {
			bk = ExactBound
		}
		s.bind(superVar, super, sub, bk, pos)
		return
	}

	st := s.in.MustLookup(sub)
	pt := s.in.MustLookup(super)
	if st.Kind == types.KindFlexible || pt.Kind == types.KindFlexible {
		if kind == equalConstraint {
			s.decompose(kind, s.lowerOf(sub), s.lowerOf(super), pos, depth+1)
			return
		}
		s.decompose(kind, s.lowerOf(sub), s.upperOf(super), pos, depth+1)
		return
	}

	// Nullability mismatches are reported by the argument check after
	// substitution; the system is solved regardless.
	sub = s.in.MakeNotNullable(sub)
	super = s.in.MakeNotNullable(super)
	if !s.containsVariables(sub) && !s.containsVariables(super) {
		ok := s.c.IsSubtype(sub, super)
		if kind == equalConstraint {
			ok = s.c.Equal(sub, super) || (ok && s.c.IsSubtype(super, sub))
		}
		if !ok {
			s.errorPositions[pos] = true
		}
		return
	}
	s.decomposeStructure(kind, sub, super, pos, depth)
}

func (s *System) lowerOf(id types.TypeID) types.TypeID {
	if t := s.in.MustLookup(id); t.Kind == types.KindFlexible {
		return t.Lower
	}
	return id
}

func (s *System) upperOf(id types.TypeID) types.TypeID {
	if t := s.in.MustLookup(id); t.Kind == types.KindFlexible {
		return t.Upper
	}
	return id
}

func (s *System) decomposeStructure(kind constraintKind, sub, super types.TypeID, pos Position, depth int) {
	st := s.in.MustLookup(sub)
	pt := s.in.MustLookup(super)
	b := s.in.Builtins()

	if kind == subtypeConstraint && pt.Ctor.Kind == types.CtorClass && pt.Ctor.Class == b.Any {
		return
	}
	if st.Ctor.Kind == types.CtorTypeParam {
		// a foreign type parameter is decomposed through its first bound
		bounds := s.c.Hierarchy().UpperBounds(st.Ctor.Param)
		if kind == equalConstraint || len(bounds) == 0 {
			s.errorPositions[pos] = true
			return
		}
		s.decompose(kind, bounds[0], super, pos, depth+1)
		return
	}
	if st.Ctor.Kind != types.CtorClass || pt.Ctor.Kind != types.CtorClass {
		s.errorPositions[pos] = true
		return
	}
	if kind == equalConstraint {
		if st.Ctor.Class != pt.Ctor.Class || len(st.Args) != len(pt.Args) {
			s.errorPositions[pos] = true
			return
		}
		for i := range st.Args {
			sa, pa := st.Args[i], pt.Args[i]
			if sa.Star || pa.Star {
				if sa.Star != pa.Star {
					s.errorPositions[pos] = true
				}
				continue
			}
			s.decompose(equalConstraint, sa.Type, pa.Type, pos, depth+1)
		}
		return
	}

	found, ok := s.c.CorrespondingSupertype(sub, pt.Ctor.Class)
	if !ok {
		s.errorPositions[pos] = true
		return
	}
	ft := s.in.MustLookup(found)
	if len(ft.Args) != len(pt.Args) {
		s.errorPositions[pos] = true
		return
	}
	params := s.c.Hierarchy().TypeParameters(pt.Ctor.Class)
	for i, pa := range pt.Args {
		if pa.Star {
			continue
		}
		declared := types.VarInvariant
		if i < len(params) {
			declared = s.in.TypeParam(params[i]).Variance
		}
		v, ok := types.Combine(declared, pa.Variance)
		if !ok {
			continue
		}
		sa := ft.Args[i]
		if sa.Star {
			if v == types.VarOut {
				s.decompose(subtypeConstraint, b.NullableAnyType, pa.Type, pos, depth+1)
				continue
			}
			s.errorPositions[pos] = true
			continue
		}
		switch v {
		case types.VarInvariant:
			s.decompose(equalConstraint, sa.Type, pa.Type, pos, depth+1)
		case types.VarOut:
			s.decompose(subtypeConstraint, sa.Type, pa.Type, pos, depth+1)
		case types.VarIn:
			s.decompose(subtypeConstraint, pa.Type, sa.Type, pos, depth+1)
		}
	}
}

// bind adds a bound on v. A nullable variable occurrence T? against a
// nullable type splits: T? == X? gives T >: X and T <: X?, T? >: X? gives
// T >: X, T? <: X? gives T <: X?.
func (s *System) bind(v types.TypeParamID, varType, constraining types.TypeID, kind BoundKind, pos Position) {
	tb := s.bounds[v]
	if !s.in.IsNullable(varType) || !s.in.IsNullable(constraining) {
		tb.add(Bound{Kind: kind, Type: constraining, Position: pos})
		return
	}
	if kind == ExactBound || kind == LowerBound {
		tb.add(Bound{Kind: LowerBound, Type: s.in.MakeNotNullable(constraining), Position: pos})
	}
	if kind == ExactBound || kind == UpperBound {
		tb.add(Bound{Kind: UpperBound, Type: constraining, Position: pos})
	}
}

// ProcessDeclaredBounds checks every lower and exact bound against the
// declared upper bounds, which may mention other variables of the system.
func (s *System) ProcessDeclaredBounds() {
	for i, v := range s.vars {
		for _, declared := range s.c.Hierarchy().UpperBounds(v) {
			tb := s.bounds[v]
			current := append([]Bound(nil), tb.Bounds...)
			for _, b := range current {
				if b.Kind == LowerBound || b.Kind == ExactBound {
					s.AddSubtypeConstraint(b.Type, declared, b.Position.derived(i))
				}
			}
			if other, ok := s.variable(declared); ok {
				for _, b := range s.bounds[other].Bounds {
					if b.Kind == UpperBound || b.Kind == ExactBound {
						tb.add(Bound{Kind: UpperBound, Type: b.Type, Position: b.Position.derived(i)})
					}
				}
			}
		}
	}
}

// Status summarizes the solvability of the system.
func (s *System) Status() Status {
	st := s.status()
	if !st.IsSuccessful() {
		st.ViolatedUpperBound = s.withoutWeak().status().IsSuccessful()
	}
	return st
}

func (s *System) status() Status {
	st := Status{
		TypeConstructorMismatch: len(s.errorPositions) > 0,
		ErrorInConstrainingType: s.errorInTypes,
	}
	for _, v := range s.vars {
		switch n := len(s.bounds[v].Values(s.c)); {
		case n == 0:
			st.UnknownParameters = true
		case n > 1:
			st.ConflictingConstraints = true
		}
	}
	return st
}

// HasErrorAt reports a type constructor mismatch at pos.
func (s *System) HasErrorAt(pos Position) bool { return s.errorPositions[pos] }

// HasOnlyErrorsFrom reports whether dropping the constraints from pos would
// make the system solvable.
func (s *System) HasOnlyErrorsFrom(pos Position) bool {
	if s.status().IsSuccessful() {
		return false
	}
	if s.FilterOut(pos).status().IsSuccessful() {
		return true
	}
	return len(s.errorPositions) == 1 && s.errorPositions[pos]
}

// FilterOut returns a copy of the system without the constraints from the
// given positions.
func (s *System) FilterOut(positions ...Position) *System {
	drop := make(map[Position]bool, len(positions))
	for _, p := range positions {
		drop[p] = true
	}
	return s.filter(func(p Position) bool {
		if p.Bound > 0 {
			return !drop[p] && !drop[Position{Kind: p.Kind, Index: p.Index}]
		}
		return !drop[p]
	})
}

func (s *System) withoutWeak() *System {
	return s.filter(Position.onlyStrong)
}

// Copy returns an independent copy.
func (s *System) Copy() *System {
	return s.filter(func(Position) bool { return true })
}

func (s *System) filter(keep func(Position) bool) *System {
	out := newEmpty(s.c, s.vars)
	for v, tb := range s.bounds {
		out.bounds[v] = tb.filter(keep)
	}
	for p := range s.errorPositions {
		if keep(p) {
			out.errorPositions[p] = true
		}
	}
	out.errorInTypes = s.errorInTypes
	return out
}

// ResultingSubstitutor maps each variable to its value; variables that could
// not be inferred map to an error type naming them.
func (s *System) ResultingSubstitutor() *types.Substitutor {
	return s.substitutor(func(v types.TypeParamID) types.TypeID {
		name, _ := s.in.Names().Lookup(s.in.TypeParam(v).Name)
		return s.in.Error("uninferred type parameter " + name)
	})
}

// CurrentSubstitutor maps uninferred variables to the wildcard type.
func (s *System) CurrentSubstitutor() *types.Substitutor {
	return s.substitutor(func(types.TypeParamID) types.TypeID { return s.in.DontCare() })
}

func (s *System) substitutor(fallback func(types.TypeParamID) types.TypeID) *types.Substitutor {
	args := make([]types.Projection, len(s.vars))
	for i, v := range s.vars {
		value, ok := s.bounds[v].Value(s.c)
		if !ok {
			value = fallback(v)
		}
		args[i] = types.Invariant(value)
	}
	return types.NewSubstitutor(s.in, s.vars, args)
}
