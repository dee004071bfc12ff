package types

// Bounds is a lower/upper approximation of a type.
type Bounds struct {
	Lower TypeID
	Upper TypeID
}

// Approximate replaces captured types by denotable bounds. Types without
// captured constructors approximate to themselves.
func (c *Checker) Approximate(id TypeID) Bounds {
	if !c.containsCaptured(id) {
		return Bounds{Lower: id, Upper: id}
	}
	return c.approximate(id)
}

func (c *Checker) containsCaptured(id TypeID) bool {
	t, ok := c.in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindFlexible:
		return c.containsCaptured(t.Lower) || c.containsCaptured(t.Upper)
	case KindError:
		return false
	}
	if t.Ctor.Kind == CtorCaptured {
		return true
	}
	for _, a := range t.Args {
		if !a.Star && c.containsCaptured(a.Type) {
			return true
		}
	}
	return false
}

// enhancedProjection is a type argument expressed as an [in, out] interval.
type enhancedProjection struct {
	param TypeParamID
	in    TypeID
	out   TypeID
}

func (c *Checker) approximate(id TypeID) Bounds {
	b := c.in.Builtins()
	t := c.in.MustLookup(id)
	if t.Kind == KindFlexible {
		lower := c.approximate(t.Lower)
		upper := c.approximate(t.Upper)
		return Bounds{Lower: lower.Lower, Upper: upper.Upper}
	}
	if t.Ctor.Kind == CtorCaptured {
		proj := c.in.CapturedProjection(t.Ctor)
		var out Bounds
		switch {
		case proj.Star:
			out = Bounds{Lower: b.NothingType, Upper: b.NullableAnyType}
		case proj.Variance == VarIn:
			out = Bounds{Lower: proj.Type, Upper: b.NullableAnyType}
		default:
			out = Bounds{Lower: b.NothingType, Upper: proj.Type}
		}
		if t.Nullable {
			out.Lower = c.in.MakeNullable(out.Lower)
			out.Upper = c.in.MakeNullable(out.Upper)
		}
		return out
	}
	if len(t.Args) == 0 {
		return Bounds{Lower: id, Upper: id}
	}
	params := c.h.TypeParameters(t.Ctor.Class)
	lowerArgs := make([]Projection, len(t.Args))
	upperArgs := make([]Projection, len(t.Args))
	lowerTrivial := false
	for i, a := range t.Args {
		var p TypeParamID
		if i < len(params) {
			p = params[i]
		}
		e := c.enhance(a, p)
		inB := c.Approximate(e.in)
		outB := c.Approximate(e.out)
		lo := enhancedProjection{param: p, in: inB.Upper, out: outB.Lower}
		hi := enhancedProjection{param: p, in: inB.Lower, out: outB.Upper}
		if !c.IsSubtype(lo.in, lo.out) {
			lowerTrivial = true
		} else {
			lowerArgs[i] = c.toProjection(lo)
		}
		upperArgs[i] = c.toProjection(hi)
	}
	upper := c.in.ReplaceArgs(id, upperArgs)
	lower := b.NothingType
	if !lowerTrivial {
		lower = c.in.ReplaceArgs(id, lowerArgs)
	}
	return Bounds{Lower: lower, Upper: upper}
}

func (c *Checker) enhance(a Projection, p TypeParamID) enhancedProjection {
	b := c.in.Builtins()
	if a.Star {
		return enhancedProjection{param: p, in: b.NothingType, out: b.NullableAnyType}
	}
	declared := VarInvariant
	if p != NoTypeParamID {
		declared = c.in.TypeParam(p).Variance
	}
	v, ok := Combine(declared, a.Variance)
	if !ok {
		return enhancedProjection{param: p, in: b.NothingType, out: b.NullableAnyType}
	}
	switch v {
	case VarIn:
		return enhancedProjection{param: p, in: a.Type, out: b.NullableAnyType}
	case VarOut:
		return enhancedProjection{param: p, in: b.NothingType, out: a.Type}
	}
	return enhancedProjection{param: p, in: a.Type, out: a.Type}
}

func (c *Checker) toProjection(e enhancedProjection) Projection {
	b := c.in.Builtins()
	simplify := func(v Variance) Variance {
		if e.param != NoTypeParamID && c.in.TypeParam(e.param).Variance == v {
			return VarInvariant
		}
		return v
	}
	switch {
	case e.in == e.out:
		return Invariant(e.in)
	case e.in == b.NothingType:
		return Projection{Variance: simplify(VarOut), Type: e.out}
	case e.out == b.NullableAnyType:
		return Projection{Variance: simplify(VarIn), Type: e.in}
	}
	return Projection{Star: true}
}
