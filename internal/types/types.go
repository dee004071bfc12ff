package types

import (
	"fmt"

	"frontcore/internal/names"
)

// TypeID uniquely identifies an interned type.
type TypeID uint32

// NoTypeID marks the absence of a type (no expected type, unknown).
const NoTypeID TypeID = 0

// TypeParamID identifies a type parameter declared somewhere in the session.
type TypeParamID uint32

const NoTypeParamID TypeParamID = 0

// Kind enumerates the shapes of a type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSimple
	// KindFlexible is a (Lower..Upper) pair for values of unknown nullability.
	KindFlexible
	// KindError stands in for unresolved types so operations stay total.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindFlexible:
		return "flexible"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// CtorKind tells what a simple type's constructor refers to.
type CtorKind uint8

const (
	CtorClass CtorKind = iota + 1
	CtorTypeParam
	// CtorCaptured wraps a projection during inference; never denotable.
	CtorCaptured
	// CtorDontCare is the wildcard expected type; never denotable.
	CtorDontCare
)

// Constructor is the head of a simple type.
type Constructor struct {
	Kind     CtorKind
	Class    names.ClassId
	Param    TypeParamID
	Captured uint32 // index into the interner's captured projections
}

// IsDenotable reports whether the constructor can be written in source.
func (c Constructor) IsDenotable() bool {
	return c.Kind == CtorClass || c.Kind == CtorTypeParam
}

// Projection is a type argument with its use-site variance. Star projections
// carry no type.
type Projection struct {
	Variance Variance
	Type     TypeID
	Star     bool
}

// Invariant wraps id as an invariant projection.
func Invariant(id TypeID) Projection {
	return Projection{Variance: VarInvariant, Type: id}
}

// Type is an interned type value. Args must not be mutated after interning.
type Type struct {
	Kind     Kind
	Ctor     Constructor
	Args     []Projection
	Nullable bool

	// flexible types only
	Lower      TypeID
	Upper      TypeID
	Capability string

	// error types only
	Message string
}
