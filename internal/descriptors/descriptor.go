package descriptors

import (
	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

// Kind tags the concrete descriptor variant.
type Kind uint8

const (
	KindModule Kind = iota + 1
	KindPackage
	KindClass
	KindConstructor
	KindFunction
	KindProperty
	KindGetter
	KindSetter
	KindValueParameter
	KindTypeParameter
	KindLocalVariable
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	case KindConstructor:
		return "constructor"
	case KindFunction:
		return "function"
	case KindProperty:
		return "property"
	case KindGetter:
		return "getter"
	case KindSetter:
		return "setter"
	case KindValueParameter:
		return "value parameter"
	case KindTypeParameter:
		return "type parameter"
	case KindLocalVariable:
		return "local variable"
	}
	return "unknown"
}

type Visibility uint8

const (
	Public Visibility = iota
	Internal
	Protected
	Private
	Local
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Internal:
		return "internal"
	case Protected:
		return "protected"
	case Private:
		return "private"
	case Local:
		return "local"
	}
	return "unknown"
}

type Modality uint8

const (
	Final Modality = iota
	Open
	Abstract
	Sealed
)

func (m Modality) String() string {
	switch m {
	case Final:
		return "final"
	case Open:
		return "open"
	case Abstract:
		return "abstract"
	case Sealed:
		return "sealed"
	}
	return "unknown"
}

// MemberKind tells how a callable came to exist. Only declarations and
// delegations are checked for overrides and serialized.
type MemberKind uint8

const (
	MemberDeclaration MemberKind = iota
	MemberFakeOverride
	MemberDelegation
	MemberSynthesized
)

func (k MemberKind) String() string {
	switch k {
	case MemberDeclaration:
		return "declaration"
	case MemberFakeOverride:
		return "fake override"
	case MemberDelegation:
		return "delegation"
	case MemberSynthesized:
		return "synthesized"
	}
	return "unknown"
}

type ClassKind uint8

const (
	ClassPlain ClassKind = iota
	ClassInterface
	ClassEnum
	ClassEnumEntry
	ClassObject
	ClassAnnotation
)

func (k ClassKind) String() string {
	switch k {
	case ClassPlain:
		return "class"
	case ClassInterface:
		return "interface"
	case ClassEnum:
		return "enum class"
	case ClassEnumEntry:
		return "enum entry"
	case ClassObject:
		return "object"
	case ClassAnnotation:
		return "annotation class"
	}
	return "unknown"
}

// IsSingleton reports kinds that have exactly one instance.
func (k ClassKind) IsSingleton() bool {
	return k == ClassObject || k == ClassEnumEntry
}

// Descriptor is a node of the resolved symbol graph.
type Descriptor interface {
	Kind() Kind
	Name() names.Name
	// Owner is nil only for modules.
	Owner() Descriptor
	Visibility() Visibility
	Modality() Modality
	Annotations() []Annotation
	Source() source.Span
}

// TypeParameterized is implemented by classes and callables.
type TypeParameterized interface {
	Descriptor
	TypeParameters() []*TypeParameter
}

// ValueParameterized is implemented by callables and accessors.
type ValueParameterized interface {
	Descriptor
	ValueParameters() []*ValueParameter
}

// Callable is the shared shape of functions, properties, constructors and
// accessors.
type Callable interface {
	TypeParameterized
	ValueParameterized
	ExtensionReceiver() types.TypeID
	DispatchReceiver() types.TypeID
	ReturnType() types.TypeID
	MemberKind() MemberKind
}

// Variable is anything that can be read by name: properties, parameters and
// locals.
type Variable interface {
	Descriptor
	Type() types.TypeID
	IsVar() bool
}

// Header carries the attributes common to every descriptor.
type Header struct {
	Name       names.Name
	Visibility Visibility
	Modality   Modality
	Source     source.Span
	// Annotations is resolved lazily; nil means none.
	Annotations func() ([]Annotation, error)
}

type header struct {
	name  names.Name
	owner Descriptor
	vis   Visibility
	mod   Modality
	src   source.Span
	annos *storage.LazyValue[[]Annotation]
}

func newHeader(m *storage.Manager, owner Descriptor, h Header) header {
	out := header{name: h.Name, owner: owner, vis: h.Visibility, mod: h.Modality, src: h.Source}
	if h.Annotations != nil {
		out.annos = storage.NewLazyValue(m, h.Annotations, storage.Named("annotations"))
	}
	return out
}

func (h *header) Name() names.Name       { return h.name }
func (h *header) Owner() Descriptor      { return h.owner }
func (h *header) Visibility() Visibility { return h.vis }
func (h *header) Modality() Modality     { return h.mod }
func (h *header) Source() source.Span    { return h.src }

// Annotations returns the resolved annotations; resolution failures yield none.
func (h *header) Annotations() []Annotation {
	if h.annos == nil {
		return nil
	}
	out, err := h.annos.Get()
	if err != nil {
		return nil
	}
	return out
}

// ModuleOf walks the owner chain up to the module.
func ModuleOf(d Descriptor) *ModuleDescriptor {
	for d != nil {
		if m, ok := d.(*ModuleDescriptor); ok {
			return m
		}
		d = d.Owner()
	}
	return nil
}

// ContainingClass returns the closest class owning d, or nil.
func ContainingClass(d Descriptor) *ClassDescriptor {
	for d != nil {
		d = d.Owner()
		if c, ok := d.(*ClassDescriptor); ok {
			return c
		}
	}
	return nil
}

// PackageOf returns the package d is declared in, or nil.
func PackageOf(d Descriptor) *PackageDescriptor {
	for d != nil {
		if p, ok := d.(*PackageDescriptor); ok {
			return p
		}
		d = d.Owner()
	}
	return nil
}
