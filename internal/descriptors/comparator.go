package descriptors

import (
	"cmp"
	"slices"
	"strings"

	"frontcore/internal/types"
)

func memberRank(d Descriptor) int {
	switch d.Kind() {
	case KindConstructor:
		return 0
	case KindProperty:
		return 1
	case KindFunction:
		return 2
	case KindClass:
		return 3
	}
	return 4
}

// CompareMembers is the canonical member order used wherever output must be
// reproducible: kind, name, receiver type, then parameter types.
func CompareMembers(a, b Descriptor) int {
	if c := cmp.Compare(memberRank(a), memberRank(b)); c != 0 {
		return c
	}
	mod := ModuleOf(a)
	nt := mod.names
	if c := strings.Compare(nt.MustLookup(a.Name()), nt.MustLookup(b.Name())); c != 0 {
		return c
	}
	ca, okA := a.(*CallableDescriptor)
	cb, okB := b.(*CallableDescriptor)
	if !okA || !okB {
		return 0
	}
	in := mod.types
	render := func(id types.TypeID) string {
		if id == types.NoTypeID {
			return ""
		}
		return in.String(id)
	}
	if c := strings.Compare(render(ca.ExtensionReceiver()), render(cb.ExtensionReceiver())); c != 0 {
		return c
	}
	pa, pb := ca.ValueParameters(), cb.ValueParameters()
	if c := cmp.Compare(len(pa), len(pb)); c != 0 {
		return c
	}
	for i := range pa {
		if c := strings.Compare(render(pa[i].Type()), render(pb[i].Type())); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(ca.TypeParameters()), len(cb.TypeParameters())); c != 0 {
		return c
	}
	return cmp.Compare(ca.MemberKind(), cb.MemberKind())
}

// SortMembers sorts callables in canonical member order.
func SortMembers(ms []*CallableDescriptor) {
	slices.SortStableFunc(ms, func(a, b *CallableDescriptor) int { return CompareMembers(a, b) })
}
