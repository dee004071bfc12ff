package calls

// mostSpecific returns the maximal candidates under the specificity order.
// More than one result means the call is ambiguous.
func (r *Resolver) mostSpecific(calls []*ResolvedCall) []*ResolvedCall {
	if len(calls) < 2 {
		return calls
	}
	var out []*ResolvedCall
	for i, a := range calls {
		maximal := true
		for j, b := range calls {
			if i != j && r.beats(b, a) {
				maximal = false
				break
			}
		}
		if maximal {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return calls
	}
	return out
}

// beats reports whether a is strictly preferred over b. Equally specific
// candidates are ordered by preferring non-generic over generic and then
// fixed arity over vararg.
func (r *Resolver) beats(a, b *ResolvedCall) bool {
	if !r.asSpecific(a, b) {
		return false
	}
	if !r.asSpecific(b, a) {
		return true
	}
	if a.IsGeneric() != b.IsGeneric() {
		return !a.IsGeneric()
	}
	if a.UsesVararg != b.UsesVararg {
		return !a.UsesVararg
	}
	return false
}

// asSpecific reports whether every argument of a is checked against a type
// that is a subtype of the one b checks it against. Extension receivers
// compare the same way.
func (r *Resolver) asSpecific(a, b *ResolvedCall) bool {
	for i := range a.ExpectedArgTypes {
		if i >= len(b.ExpectedArgTypes) {
			break
		}
		ta, tb := a.ExpectedArgTypes[i], b.ExpectedArgTypes[i]
		if ta == 0 || tb == 0 {
			continue
		}
		if !r.checker.IsSubtype(ta, tb) {
			return false
		}
	}
	ca, cb := a.Callable(), b.Callable()
	if ca != nil && cb != nil && ca.IsExtension() && cb.IsExtension() {
		ea := a.Substitutor.Substitute(ca.ExtensionReceiver())
		eb := b.Substitutor.Substitute(cb.ExtensionReceiver())
		if !r.checker.IsSubtype(ea, eb) {
			return false
		}
	}
	return true
}
