package descriptors

import (
	"frontcore/internal/types"
)

// inherited is one signature inherited from the supertypes, possibly through
// several paths.
type inherited struct {
	member *CallableDescriptor
	subst  *types.Substitutor
	from   []*CallableDescriptor
}

// computeMemberScope merges declared members with fake overrides of every
// visible inherited member that is not redeclared.
func (c *ClassDescriptor) computeMemberScope() (*MemberScope, error) {
	ms := newMemberScope(c)
	declared := c.DeclaredMembers()
	for _, d := range declared {
		ms.addCallable(d)
	}
	for _, n := range c.NestedClasses() {
		ms.Add(n)
	}

	in := c.module.types
	var groups []*inherited
	for _, st := range c.Supertypes() {
		sc := c.module.ClassOfType(st)
		if sc == nil || sc == c {
			continue
		}
		t := in.MustLookup(in.MakeNotNullable(st))
		subst := types.NewSubstitutor(in, sc.TypeParamIDs(), t.Args)
		for _, m := range sc.MemberScope().Callables() {
			if m.Visibility() == Private {
				continue
			}
			if d := findOverride(declared, m, subst); d != nil {
				ms.overridden[d] = append(ms.overridden[d], m)
				continue
			}
			if g := findGroup(groups, m, subst); g != nil {
				g.from = append(g.from, m)
				continue
			}
			groups = append(groups, &inherited{member: m, subst: subst, from: []*CallableDescriptor{m}})
		}
	}
	for _, g := range groups {
		fo := g.member.Substitute(c, g.subst, MemberFakeOverride)
		ms.addCallable(fo)
		ms.overridden[fo] = g.from
	}
	return ms, nil
}

func findOverride(declared []*CallableDescriptor, m *CallableDescriptor, subst *types.Substitutor) *CallableDescriptor {
	for _, d := range declared {
		if SameSignature(d, nil, m, subst) {
			return d
		}
	}
	return nil
}

func findGroup(groups []*inherited, m *CallableDescriptor, subst *types.Substitutor) *inherited {
	for _, g := range groups {
		if SameSignature(g.member, g.subst, m, subst) {
			return g
		}
	}
	return nil
}

// SameSignature reports whether a (seen through sa) and b (through sb) would
// clash as members of one class: same kind, name, receiver and parameter
// types. Type parameters of b are renamed to those of a before comparing.
func SameSignature(a *CallableDescriptor, sa *types.Substitutor, b *CallableDescriptor, sb *types.Substitutor) bool {
	if a.CallableKind() != b.CallableKind() || a.Name() != b.Name() {
		return false
	}
	if a.IsExtension() != b.IsExtension() {
		return false
	}
	if len(a.TypeParameters()) != len(b.TypeParameters()) {
		return false
	}
	in := a.module.types
	if sa == nil {
		sa = types.EmptySubstitutor(in)
	}
	if sb == nil {
		sb = types.EmptySubstitutor(in)
	}
	if len(b.TypeParameters()) > 0 {
		params := make([]types.TypeParamID, len(b.TypeParameters()))
		args := make([]types.Projection, len(b.TypeParameters()))
		for i, tp := range b.TypeParameters() {
			params[i] = tp.ID()
			args[i] = types.Invariant(a.TypeParameters()[i].Type())
		}
		sb = sb.With(params, args)
	}
	if a.IsExtension() && sa.Substitute(a.ExtensionReceiver()) != sb.Substitute(b.ExtensionReceiver()) {
		return false
	}
	if a.CallableKind() == CallableProperty {
		return true
	}
	ap, bp := a.ValueParameters(), b.ValueParameters()
	if len(ap) != len(bp) {
		return false
	}
	for i := range ap {
		if sa.Substitute(ap[i].Type()) != sb.Substitute(bp[i].Type()) {
			return false
		}
	}
	return true
}
