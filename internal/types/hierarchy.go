package types

import "frontcore/internal/names"

// Hierarchy exposes the declared class graph to the type layer without
// importing descriptors.
type Hierarchy interface {
	// Supertypes returns the declared supertypes of a class, written in terms
	// of its own type parameters.
	Supertypes(id names.ClassId) []TypeID
	// TypeParameters returns the class's type parameters in declaration order.
	TypeParameters(id names.ClassId) []TypeParamID
	// UpperBounds returns the declared upper bounds of p (Any? when none).
	UpperBounds(p TypeParamID) []TypeID
}
