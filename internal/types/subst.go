package types

// Substitutor replaces type parameters by projections.
type Substitutor struct {
	in  *Interner
	Map map[TypeParamID]Projection
}

// NewSubstitutor builds a substitutor from parallel parameter and argument
// lists; extra entries on either side are ignored.
func NewSubstitutor(in *Interner, params []TypeParamID, args []Projection) *Substitutor {
	m := make(map[TypeParamID]Projection, len(params))
	for i, p := range params {
		if i >= len(args) {
			break
		}
		m[p] = args[i]
	}
	return &Substitutor{in: in, Map: m}
}

// EmptySubstitutor substitutes nothing.
func EmptySubstitutor(in *Interner) *Substitutor {
	return &Substitutor{in: in}
}

func (s *Substitutor) IsEmpty() bool { return s == nil || len(s.Map) == 0 }

// Substitute rewrites id. A parameter mapped to a projection whose variance
// conflicts with the position is approximated: out-projections by their type,
// in-projections and stars by the nullable top type.
func (s *Substitutor) Substitute(id TypeID) TypeID {
	if s.IsEmpty() || id == NoTypeID {
		return id
	}
	t, ok := s.in.Lookup(id)
	if !ok {
		return id
	}
	switch t.Kind {
	case KindFlexible:
		lower := s.Substitute(t.Lower)
		upper := s.Substitute(t.Upper)
		lt, ut := s.in.MustLookup(lower), s.in.MustLookup(upper)
		if lt.Kind != KindSimple || ut.Kind != KindSimple {
			return lower
		}
		return s.in.Flexible(lower, upper, t.Capability)
	case KindError:
		return id
	}
	if t.Ctor.Kind == CtorTypeParam {
		proj, ok := s.Map[t.Ctor.Param]
		if !ok {
			return id
		}
		out := s.projectionType(proj)
		if t.Nullable {
			out = s.in.MakeNullable(out)
		}
		return out
	}
	if len(t.Args) == 0 {
		return id
	}
	args := make([]Projection, len(t.Args))
	changed := false
	for i, a := range t.Args {
		args[i] = s.SubstituteProjection(a)
		changed = changed || args[i] != a
	}
	if !changed {
		return id
	}
	return s.in.ReplaceArgs(id, args)
}

// SubstituteProjection rewrites a type argument, merging variances.
func (s *Substitutor) SubstituteProjection(p Projection) Projection {
	if p.Star {
		return p
	}
	t, ok := s.in.Lookup(p.Type)
	if ok && t.Kind == KindSimple && t.Ctor.Kind == CtorTypeParam {
		if repl, ok := s.Map[t.Ctor.Param]; ok {
			if repl.Star {
				return repl
			}
			v, ok := Combine(repl.Variance, p.Variance)
			if !ok {
				return Projection{Star: true}
			}
			typ := repl.Type
			if t.Nullable {
				typ = s.in.MakeNullable(typ)
			}
			return Projection{Variance: v, Type: typ}
		}
	}
	return Projection{Variance: p.Variance, Type: s.Substitute(p.Type)}
}

func (s *Substitutor) projectionType(p Projection) TypeID {
	b := s.in.Builtins()
	switch {
	case p.Star, p.Variance == VarIn:
		return b.NullableAnyType
	}
	return p.Type
}

// With returns a copy of s that also maps params to args. s must not be nil.
func (s *Substitutor) With(params []TypeParamID, args []Projection) *Substitutor {
	m := make(map[TypeParamID]Projection, len(s.Map)+len(params))
	for k, v := range s.Map {
		m[k] = v
	}
	for i, p := range params {
		if i >= len(args) {
			break
		}
		m[p] = args[i]
	}
	return &Substitutor{in: s.in, Map: m}
}
