package metadata

import (
	"frontcore/internal/descriptors"
)

// Flags packs the boolean and small enum attributes of a declaration.
type Flags uint32

type flagField struct {
	offset uint8
	width  uint8
}

func (f flagField) mask() Flags { return (1<<f.width - 1) << f.offset }

func (f flagField) get(flags Flags) uint32 { return uint32(flags&f.mask()) >> f.offset }

func (f flagField) set(flags Flags, v uint32) Flags {
	return flags&^f.mask() | (Flags(v)<<f.offset)&f.mask()
}

func (f flagField) is(flags Flags) bool { return f.get(flags) != 0 }

func (f flagField) with(flags Flags, on bool) Flags {
	if on {
		return f.set(flags, 1)
	}
	return f.set(flags, 0)
}

// Common to every declaration.
var (
	flagHasAnnotations = flagField{0, 1}
	flagVisibility     = flagField{1, 3}
	flagModality       = flagField{4, 2}
)

// Classes.
var (
	flagClassKind = flagField{6, 3}
	flagInner     = flagField{9, 1}
	flagCompanion = flagField{10, 1}
)

// Callables.
var (
	flagCallableKind = flagField{6, 2}
	flagMemberKind   = flagField{8, 2}
	flagVar          = flagField{10, 1}
	flagOperator     = flagField{11, 1}
	flagHasBody      = flagField{12, 1}
	flagPrimary      = flagField{13, 1}
)

// Accessors. A zero accessor flag word means the accessor is absent.
var (
	flagAccessorPresent = flagField{6, 1}
	flagNotDefault      = flagField{7, 1}
)

// Value parameters.
var flagDeclaresDefault = flagField{1, 1}

func declarationFlags(d descriptors.Descriptor) Flags {
	var f Flags
	f = flagHasAnnotations.with(f, len(d.Annotations()) > 0)
	f = flagVisibility.set(f, uint32(d.Visibility()))
	return flagModality.set(f, uint32(d.Modality()))
}

func classFlags(c *descriptors.ClassDescriptor) Flags {
	f := declarationFlags(c)
	f = flagClassKind.set(f, uint32(c.ClassKind()))
	f = flagInner.with(f, c.IsInner())
	return flagCompanion.with(f, c.IsCompanion())
}

func callableFlags(c *descriptors.CallableDescriptor) Flags {
	f := declarationFlags(c)
	f = flagCallableKind.set(f, uint32(c.CallableKind()))
	f = flagMemberKind.set(f, uint32(c.MemberKind()))
	f = flagVar.with(f, c.IsVar())
	f = flagOperator.with(f, c.IsOperator())
	f = flagHasBody.with(f, c.HasBody())
	return flagPrimary.with(f, c.IsPrimary())
}

func accessorFlags(a *descriptors.PropertyAccessor) Flags {
	if a == nil {
		return 0
	}
	f := declarationFlags(a)
	f = flagAccessorPresent.set(f, 1)
	return flagNotDefault.with(f, !a.IsDefault())
}

func valueParameterFlags(p *descriptors.ValueParameter) Flags {
	f := flagHasAnnotations.with(0, len(p.Annotations()) > 0)
	return flagDeclaresDefault.with(f, p.HasDefault())
}

func visibilityOf(f Flags) descriptors.Visibility {
	return descriptors.Visibility(flagVisibility.get(f))
}

func modalityOf(f Flags) descriptors.Modality {
	return descriptors.Modality(flagModality.get(f))
}
