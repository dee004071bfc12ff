package inference

import (
	"frontcore/internal/types"
)

// BoundKind is the relation a bound imposes on its type variable.
type BoundKind uint8

const (
	// LowerBound: T >: type.
	LowerBound BoundKind = iota + 1
	// UpperBound: T <: type.
	UpperBound
	// ExactBound: T == type.
	ExactBound
)

func (k BoundKind) String() string {
	switch k {
	case LowerBound:
		return ">:"
	case UpperBound:
		return "<:"
	case ExactBound:
		return "=="
	}
	return "?"
}

// Bound is one constraint on a type variable.
type Bound struct {
	Kind     BoundKind
	Type     types.TypeID
	Position Position
}

// TypeBounds collects the bounds of one type variable.
type TypeBounds struct {
	Var    types.TypeParamID
	Bounds []Bound
}

func (tb *TypeBounds) add(b Bound) {
	for _, existing := range tb.Bounds {
		if existing == b {
			return
		}
	}
	tb.Bounds = append(tb.Bounds, b)
}

func (tb *TypeBounds) filter(keep func(Position) bool) *TypeBounds {
	out := &TypeBounds{Var: tb.Var}
	for _, b := range tb.Bounds {
		if keep(b.Position) {
			out.Bounds = append(out.Bounds, b)
		}
	}
	return out
}

func (tb *TypeBounds) of(kind BoundKind, in *types.Interner) []types.TypeID {
	var out []types.TypeID
	for _, b := range tb.Bounds {
		if b.Kind != kind || in.IsError(b.Type) {
			continue
		}
		out = appendUnique(out, b.Type)
	}
	return out
}

// Values returns the candidate values of the variable. Exactly one value
// means the variable is inferred; none means it is unknown; more than one
// means the bounds conflict.
func (tb *TypeBounds) Values(c *types.Checker) []types.TypeID {
	if len(tb.Bounds) == 0 {
		return nil
	}
	strong := false
	for _, b := range tb.Bounds {
		if b.Position.IsStrong() {
			strong = true
			break
		}
	}
	if !strong {
		return nil
	}
	in := c.Interner()
	var values []types.TypeID

	exact := tb.of(ExactBound, in)
	if len(exact) == 1 && tb.tryAnswer(c, exact[0]) {
		return exact
	}
	values = append(values, exact...)

	if lower := tb.of(LowerBound, in); len(lower) > 0 {
		common := lower[0]
		if len(lower) > 1 {
			common = c.CommonSupertype(lower)
		}
		if tb.tryAnswer(c, common) {
			return []types.TypeID{common}
		}
		values = appendUnique(values, common)
	}

	upper := tb.of(UpperBound, in)
	if answer, ok := intersect(c, upper); ok && tb.tryAnswer(c, answer) {
		return []types.TypeID{answer}
	}
	for _, u := range upper {
		values = appendUnique(values, u)
	}
	return values
}

// Value returns the inferred value, if there is exactly one.
func (tb *TypeBounds) Value(c *types.Checker) (types.TypeID, bool) {
	values := tb.Values(c)
	if len(values) != 1 {
		return types.NoTypeID, false
	}
	return values[0], true
}

func (tb *TypeBounds) tryAnswer(c *types.Checker, answer types.TypeID) bool {
	in := c.Interner()
	if answer == types.NoTypeID || !in.IsDenotable(answer) {
		return false
	}
	for _, b := range tb.Bounds {
		if in.IsError(b.Type) {
			continue
		}
		switch b.Kind {
		case ExactBound:
			if !c.Equal(b.Type, answer) {
				return false
			}
		case LowerBound:
			if !c.IsSubtype(b.Type, answer) {
				return false
			}
		case UpperBound:
			if !c.IsSubtype(answer, b.Type) {
				return false
			}
		}
	}
	return true
}

// intersect returns the upper bound that is a subtype of every other one.
func intersect(c *types.Checker, upper []types.TypeID) (types.TypeID, bool) {
	for _, cand := range upper {
		all := true
		for _, other := range upper {
			if !c.IsSubtype(cand, other) {
				all = false
				break
			}
		}
		if all {
			return cand, true
		}
	}
	return types.NoTypeID, false
}

func appendUnique(ts []types.TypeID, t types.TypeID) []types.TypeID {
	for _, e := range ts {
		if e == t {
			return ts
		}
	}
	return append(ts, t)
}
