package types

import "frontcore/internal/names"

// Checker implements the declared subtyping relation.
type Checker struct {
	in *Interner
	h  Hierarchy
}

func NewChecker(in *Interner, h Hierarchy) *Checker {
	return &Checker{in: in, h: h}
}

func (c *Checker) Interner() *Interner  { return c.in }
func (c *Checker) Hierarchy() Hierarchy { return c.h }

// Equal reports type equality. Error types are equal to everything so that a
// single unresolved reference does not cascade.
func (c *Checker) Equal(a, b TypeID) bool {
	if a == b {
		return true
	}
	ta, oka := c.in.Lookup(a)
	tb, okb := c.in.Lookup(b)
	if !oka || !okb {
		return false
	}
	if ta.Kind == KindError || tb.Kind == KindError {
		return true
	}
	if ta.Kind == KindFlexible || tb.Kind == KindFlexible {
		return c.IsSubtype(a, b) && c.IsSubtype(b, a)
	}
	return false
}

// IsSubtype reports sub <: sup. A flexible subtype is checked by its lower
// bound, a flexible supertype by its upper bound.
func (c *Checker) IsSubtype(sub, sup TypeID) bool {
	return c.isSubtype(sub, sup, 0)
}

const maxSubtypeDepth = 64

func (c *Checker) isSubtype(sub, sup TypeID, depth int) bool {
	if sub == sup {
		return true
	}
	if depth > maxSubtypeDepth {
		return false
	}
	st, ok1 := c.in.Lookup(sub)
	pt, ok2 := c.in.Lookup(sup)
	if !ok1 || !ok2 {
		return false
	}
	if st.Kind == KindError || pt.Kind == KindError {
		return true
	}
	if st.Kind == KindFlexible {
		return c.isSubtype(st.Lower, sup, depth+1)
	}
	if pt.Kind == KindFlexible {
		return c.isSubtype(sub, pt.Upper, depth+1)
	}
	if pt.Ctor.Kind == CtorDontCare || st.Ctor.Kind == CtorDontCare {
		return true
	}
	b := c.in.Builtins()

	if st.Ctor.Kind == CtorClass && st.Ctor.Class == b.Nothing {
		return !st.Nullable || c.in.IsNullable(sup)
	}
	if st.Nullable && !pt.Nullable {
		return false
	}
	if st.Nullable && pt.Ctor.Kind != CtorTypeParam {
		// T? <: S? iff T <: S?
		return c.isSubtype(c.in.MakeNotNullable(sub), sup, depth+1)
	}

	switch pt.Ctor.Kind {
	case CtorClass:
		if pt.Ctor.Class == b.Any {
			return true
		}
	case CtorTypeParam:
		if st.Ctor.Kind == CtorTypeParam && st.Ctor.Param == pt.Ctor.Param {
			return !st.Nullable || pt.Nullable
		}
		if st.Nullable && pt.Nullable {
			return c.isSubtype(c.in.MakeNotNullable(sub), c.in.MakeNotNullable(sup), depth+1)
		}
	case CtorCaptured:
		proj := c.in.CapturedProjection(pt.Ctor)
		if proj.Variance == VarIn && !proj.Star {
			return c.isSubtype(sub, proj.Type, depth+1)
		}
	}

	switch st.Ctor.Kind {
	case CtorTypeParam:
		for _, bound := range c.h.UpperBounds(st.Ctor.Param) {
			if st.Nullable {
				bound = c.in.MakeNullable(bound)
			}
			if c.isSubtype(bound, sup, depth+1) {
				return true
			}
		}
		return false
	case CtorCaptured:
		proj := c.in.CapturedProjection(st.Ctor)
		upper := b.NullableAnyType
		if proj.Variance == VarOut && !proj.Star {
			upper = proj.Type
		}
		return c.isSubtype(upper, sup, depth+1)
	}

	if pt.Ctor.Kind != CtorClass {
		return false
	}
	found, ok := c.CorrespondingSupertype(sub, pt.Ctor.Class)
	if !ok {
		return false
	}
	return c.argumentsMatch(c.in.MustLookup(found), pt, depth)
}

func (c *Checker) argumentsMatch(st, pt Type, depth int) bool {
	params := c.h.TypeParameters(pt.Ctor.Class)
	if len(st.Args) != len(pt.Args) {
		return len(pt.Args) == 0 || len(st.Args) == 0
	}
	for i, pa := range pt.Args {
		if pa.Star {
			continue
		}
		declared := VarInvariant
		if i < len(params) {
			declared = c.in.TypeParam(params[i]).Variance
		}
		v, ok := Combine(declared, pa.Variance)
		if !ok {
			continue
		}
		sa := st.Args[i]
		switch v {
		case VarInvariant:
			if sa.Star || (sa.Variance != VarInvariant && declared == VarInvariant) {
				return false
			}
			if !c.equalArgs(sa.Type, pa.Type, depth) {
				return false
			}
		case VarOut:
			if sa.Star {
				if !c.isSubtype(c.in.Builtins().NullableAnyType, pa.Type, depth+1) {
					return false
				}
				continue
			}
			if sa.Variance == VarIn {
				return false
			}
			if !c.isSubtype(sa.Type, pa.Type, depth+1) {
				return false
			}
		case VarIn:
			if sa.Star || sa.Variance == VarOut {
				return false
			}
			if !c.isSubtype(pa.Type, sa.Type, depth+1) {
				return false
			}
		}
	}
	return true
}

func (c *Checker) equalArgs(a, b TypeID, depth int) bool {
	if c.Equal(a, b) {
		return true
	}
	return c.isSubtype(a, b, depth+1) && c.isSubtype(b, a, depth+1)
}

// CorrespondingSupertype walks the declared supertypes of sub breadth first
// and returns the one built on class, with sub's arguments substituted.
func (c *Checker) CorrespondingSupertype(sub TypeID, class names.ClassId) (TypeID, bool) {
	start := c.in.MakeNotNullable(sub)
	queue := []TypeID{start}
	seen := map[TypeID]bool{start: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		t, ok := c.in.Lookup(cur)
		if !ok || t.Kind != KindSimple || t.Ctor.Kind != CtorClass {
			continue
		}
		if t.Ctor.Class == class {
			return cur, true
		}
		subst := NewSubstitutor(c.in, c.h.TypeParameters(t.Ctor.Class), t.Args)
		for _, st := range c.h.Supertypes(t.Ctor.Class) {
			next := c.in.MakeNotNullable(subst.Substitute(st))
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return NoTypeID, false
}

// AllSupertypes returns sub followed by its transitive supertypes in breadth
// first order, arguments substituted.
func (c *Checker) AllSupertypes(sub TypeID) []TypeID {
	start := c.in.MakeNotNullable(sub)
	out := []TypeID{start}
	seen := map[TypeID]bool{start: true}
	for i := 0; i < len(out); i++ {
		t, ok := c.in.Lookup(out[i])
		if !ok || t.Kind != KindSimple || t.Ctor.Kind != CtorClass {
			continue
		}
		subst := NewSubstitutor(c.in, c.h.TypeParameters(t.Ctor.Class), t.Args)
		for _, st := range c.h.Supertypes(t.Ctor.Class) {
			next := c.in.MakeNotNullable(subst.Substitute(st))
			if !seen[next] {
				seen[next] = true
				out = append(out, next)
			}
		}
	}
	return out
}

// CommonSupertype returns the first supertype of the first type, in breadth
// first order, that every type is a subtype of. Nothing is dropped; the result
// is nullable when any input is.
func (c *Checker) CommonSupertype(ids []TypeID) TypeID {
	b := c.in.Builtins()
	nullable := false
	var rest []TypeID
	for _, id := range ids {
		if id == NoTypeID {
			continue
		}
		if c.in.IsNullable(id) {
			nullable = true
		}
		if cls, ok := c.in.ClassOf(id); ok && cls == b.Nothing {
			continue
		}
		if c.in.IsError(id) {
			return id
		}
		rest = append(rest, c.in.MakeNotNullable(id))
	}
	result := b.NothingType
	if len(rest) > 0 {
		result = b.AnyType
		for _, cand := range c.AllSupertypes(rest[0]) {
			all := true
			for _, other := range rest[1:] {
				if !c.IsSubtype(other, cand) {
					all = false
					break
				}
			}
			if all {
				result = cand
				break
			}
		}
	}
	if nullable {
		return c.in.MakeNullable(result)
	}
	return result
}
