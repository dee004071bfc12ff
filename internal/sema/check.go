// Package sema types declaration bodies: expressions, local declarations and
// control flow, with smart casts derived from conditions.
package sema

import (
	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/calls"
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/trace"
	"frontcore/internal/types"
)

// Options configure a Checker.
type Options struct {
	Module   *descriptors.ModuleDescriptor
	Builder  *ast.Builder
	Trace    *binding.Trace
	Reporter diag.Reporter
	// Values hands out data flow identities; one factory per session.
	Values *dataflow.Factory
	// Calls resolves call sites; NewChecker creates one when nil.
	Calls  *calls.Resolver
	Tracer trace.Tracer
}

// Env is the lexical environment of one body.
type Env struct {
	// Owner owns the locals declared in the body.
	Owner descriptors.Descriptor
	// Locals are scopes enclosing the body, innermost first: value
	// parameters, then those of enclosing declarations.
	Locals []descriptors.Scope
	// Implicit are the implicit receivers, innermost first.
	Implicit []*calls.Receiver
	// TopLevel are the file level scopes.
	TopLevel []descriptors.Scope
	// ResolveType resolves type references written in the body.
	ResolveType func(ast.TypeRefID) types.TypeID
	// ReturnType is the declared result type; NoTypeID when it is inferred.
	ReturnType types.TypeID
	// AllowReturn is false for initializers and expression bodies.
	AllowReturn bool
	// DataFlow is known at entry; nil means nothing.
	DataFlow *dataflow.Info
	// Parent is the trace span the body is checked under.
	Parent uint64
}

// Context is what one expression is checked in.
type Context struct {
	DataFlow *dataflow.Info
	// Expected is NoTypeID when no type is imposed.
	Expected types.TypeID
}

// TypeInfo is the result of typing an expression: its type and what is
// known after evaluating it.
type TypeInfo struct {
	Type     types.TypeID
	DataFlow *dataflow.Info
}

// Checker types bodies against the descriptors of one module. It is safe to
// share across bodies but not across goroutines checking the same body.
type Checker struct {
	module   *descriptors.ModuleDescriptor
	builder  *ast.Builder
	in       *types.Interner
	types    *types.Checker
	builtins *types.Builtins
	trace    *binding.Trace
	reporter diag.Reporter
	values   *dataflow.Factory
	calls    *calls.Resolver
	tracer   trace.Tracer
}

func NewChecker(opts Options) *Checker {
	c := &Checker{
		module:   opts.Module,
		builder:  opts.Builder,
		in:       opts.Module.Types(),
		types:    opts.Module.Checker(),
		builtins: opts.Module.Builtins(),
		trace:    opts.Trace,
		reporter: opts.Reporter,
		values:   opts.Values,
		calls:    opts.Calls,
		tracer:   opts.Tracer,
	}
	if c.values == nil {
		c.values = dataflow.NewFactory(c.in)
	}
	if c.calls == nil {
		c.calls = calls.NewResolver(opts.Module)
	}
	if c.reporter == nil {
		c.reporter = diag.NopReporter{}
	}
	return c
}

// Values returns the data flow identity factory of the checker.
func (c *Checker) Values() *dataflow.Factory { return c.values }

// CheckBlockBody types a block body. A missing return in a body with a
// non-Unit declared result is reported.
func (c *Checker) CheckBlockBody(env *Env, body ast.StmtID) {
	f := c.newFrame(env)
	var span *trace.Span
	if c.tracer != nil && c.tracer.Level() >= trace.LevelDebug {
		span = trace.Begin(c.tracer, trace.ScopeDeclaration, "check_body", env.Parent)
		f.parent = span.ID()
	}
	f.push()
	_, status := c.typeStmt(f, body, f.entry())
	f.pop()
	if status == returnOpen && env.ReturnType != types.NoTypeID && !c.isUnit(env.ReturnType) && !c.in.IsError(env.ReturnType) {
		if st := c.builder.Stmts.Get(body); st != nil {
			diag.ReportError(c.reporter, diag.TypNoReturnInBlockBody, st.Span,
				"a 'return' expression is required in a function with a block body").Emit()
		}
	}
	if span != nil {
		span.End("")
	}
}

// CheckExpression types an expression body, initializer or default value
// against expected and returns its type.
func (c *Checker) CheckExpression(env *Env, expr ast.ExprID, expected types.TypeID) types.TypeID {
	f := c.newFrame(env)
	var span *trace.Span
	if c.tracer != nil && c.tracer.Level() >= trace.LevelDebug {
		span = trace.Begin(c.tracer, trace.ScopeDeclaration, "check_expression", env.Parent)
		f.parent = span.ID()
	}
	f.push()
	info := c.typeExpr(f, expr, Context{DataFlow: f.entry(), Expected: expected})
	f.pop()
	if span != nil {
		span.End(c.in.String(info.Type))
	}
	return info.Type
}

func (c *Checker) isUnit(t types.TypeID) bool {
	return t == c.builtins.UnitType
}

func (c *Checker) errorType(msg string) types.TypeID {
	return c.in.Error(msg)
}
