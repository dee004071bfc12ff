package binding

import (
	"frontcore/internal/ast"
	"frontcore/internal/descriptors"
	"frontcore/internal/types"
)

// Facts shared by every analysis phase. Call resolution and condition
// analysis declare their own slices next to their value types.
var (
	// ExpressionType is the type an expression was given. Smart casts
	// applied by its consumer are recorded in SmartCast.
	ExpressionType = NewSlice[ast.ExprID, types.TypeID]("EXPRESSION_TYPE")
	// ExpectedType is the type an expression was checked against.
	ExpectedType = NewSlice[ast.ExprID, types.TypeID]("EXPECTED_EXPRESSION_TYPE")
	// SmartCast records an implicit narrowing applied to an expression.
	SmartCast = NewSlice[ast.ExprID, types.TypeID]("SMARTCAST")
	// Reference maps a name or member expression to what it denotes.
	Reference = NewSlice[ast.ExprID, descriptors.Descriptor]("REFERENCE_TARGET")
	// Declaration maps a source declaration to its descriptor.
	Declaration = NewSlice[ast.DeclID, descriptors.Descriptor]("DECLARATION_TO_DESCRIPTOR")
	// Variable maps a local val/var statement to its descriptor.
	Variable = NewSlice[ast.StmtID, descriptors.Variable]("VARIABLE")
)
