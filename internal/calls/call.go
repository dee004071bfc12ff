package calls

import (
	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/trace"
	"frontcore/internal/types"
)

// CallKind distinguishes invocations from plain name reads.
type CallKind uint8

const (
	// CallFunction is name(args): functions, constructors and variables
	// holding a function value.
	CallFunction CallKind = iota
	// CallVariable is a bare name or member read.
	CallVariable
)

// Receiver is an explicit or implicit receiver value.
type Receiver struct {
	// Expr is the receiver expression; NoExprID for implicit receivers.
	Expr  ast.ExprID
	Type  types.TypeID
	Value dataflow.Value
	// Owner is the class or extension callable whose this the receiver is.
	Owner descriptors.Descriptor
}

// IsImplicit reports whether the receiver comes from an enclosing this.
func (r *Receiver) IsImplicit() bool { return r != nil && r.Expr == ast.NoExprID }

// Argument is a typed value argument of a call site.
type Argument struct {
	Name   names.Name // NoName for positional arguments
	Expr   ast.ExprID
	Span   source.Span
	Spread bool
	Type   types.TypeID
	Value  dataflow.Value
}

// Call is one call site.
type Call struct {
	Kind     CallKind
	Expr     ast.ExprID
	Span     source.Span
	Name     names.Name
	Receiver *Receiver // explicit receiver or nil
	Safe     bool      // ?.
	TypeArgs []types.TypeID
	Args     []Argument
}

// Context carries what a call site sees.
type Context struct {
	Trace    *binding.Trace
	Reporter diag.Reporter
	DataFlow *dataflow.Info
	// Expected is the type the call result is checked against, or NoTypeID.
	Expected types.TypeID

	// Locals are the lexical block scopes, innermost first.
	Locals []descriptors.Scope
	// Implicit are the implicit receivers, innermost first.
	Implicit []*Receiver
	// TopLevel are the file level scopes in priority order: explicit
	// imports, the current package, default imports.
	TopLevel []descriptors.Scope

	Tracer trace.Tracer
	Parent uint64
}
