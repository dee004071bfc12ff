package sema

import (
	"fmt"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/dataflow"
	"frontcore/internal/diag"
	"frontcore/internal/trace"
	"frontcore/internal/types"
)

// Expression kinds that pass the expected type down to their parts instead
// of being checked against it as a whole.
func checksItself(kind ast.ExprKind) bool {
	switch kind {
	case ast.ExprIf, ast.ExprParen, ast.ExprBlock:
		return false
	}
	return true
}

// typeExpr types id once; later requests return the recorded type.
func (c *Checker) typeExpr(f *frame, id ast.ExprID, ctx Context) TypeInfo {
	if !id.IsValid() {
		return TypeInfo{Type: types.NoTypeID, DataFlow: ctx.DataFlow}
	}
	if t, ok := binding.Get(c.trace, binding.ExpressionType, id); ok {
		return TypeInfo{Type: t, DataFlow: ctx.DataFlow}
	}
	expr := c.builder.Exprs.Get(id)
	if expr == nil {
		return TypeInfo{Type: types.NoTypeID, DataFlow: ctx.DataFlow}
	}

	var span *trace.Span
	if c.tracer != nil && c.tracer.Level() >= trace.LevelDebug {
		span = trace.Begin(c.tracer, trace.ScopeNode, "type_expr", f.parent)
		span.WithExtra("kind", fmt.Sprintf("%d", expr.Kind))
	}

	var info TypeInfo
	switch expr.Kind {
	case ast.ExprName:
		info = c.typeName(f, id, expr, ctx)
	case ast.ExprLiteral:
		info = c.typeLiteral(id, expr, ctx)
	case ast.ExprCall:
		info = c.typeCall(f, id, expr, ctx)
	case ast.ExprMember:
		info = c.typeMember(f, id, expr, ctx)
	case ast.ExprBinary:
		info = c.typeBinary(f, id, expr, ctx)
	case ast.ExprUnary:
		info = c.typeUnary(f, id, expr, ctx)
	case ast.ExprIs:
		info = c.typeIs(f, id, ctx)
	case ast.ExprAs:
		info = c.typeAs(f, id, ctx)
	case ast.ExprParen:
		data, _ := c.builder.Exprs.Paren(id)
		info = c.typeExpr(f, data.Inner, ctx)
		if v, ok := binding.Get(c.trace, DataFlowValue, data.Inner); ok {
			binding.Record(c.trace, DataFlowValue, id, v)
		}
	case ast.ExprIf:
		info = c.typeIf(f, id, ctx)
	case ast.ExprBlock:
		info = c.typeBlock(f, id, ctx)
	case ast.ExprThis:
		info = c.typeThis(f, id, expr, ctx)
	default:
		info = TypeInfo{Type: c.errorType("unknown expression")}
	}
	if info.DataFlow == nil {
		info.DataFlow = ctx.DataFlow
	}
	if info.Type == types.NoTypeID {
		info.Type = c.errorType("unresolved expression")
	}
	binding.Record(c.trace, binding.ExpressionType, id, info.Type)
	if checksItself(expr.Kind) {
		info.Type = c.CheckType(info.Type, id, Context{DataFlow: info.DataFlow, Expected: ctx.Expected})
	}
	if span != nil {
		span.End(c.in.String(info.Type))
	}
	return info
}

func (c *Checker) typeLiteral(id ast.ExprID, expr *ast.Expr, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.Literal(id)
	b := c.builtins
	var t types.TypeID
	switch data.Kind {
	case ast.LitInt, ast.LitLong:
		lt, ok := c.integerLiteralType(literal{kind: data.Kind, text: data.Text}, ctx.Expected)
		if !ok {
			diag.ReportError(c.reporter, diag.TypIntLiteralOutOfRange, expr.Span,
				"the value is out of range for Long").Emit()
			lt = c.errorType("integer literal out of range")
		}
		t = lt
	case ast.LitDouble:
		t = b.DoubleType
	case ast.LitFloat:
		t = b.FloatType
	case ast.LitChar:
		t = b.CharType
	case ast.LitString:
		t = b.StringType
	case ast.LitBool:
		t = b.BooleanType
	case ast.LitNull:
		t = b.NullableNothingType
	}
	return TypeInfo{Type: t}
}

func (c *Checker) typeThis(f *frame, id ast.ExprID, expr *ast.Expr, ctx Context) TypeInfo {
	recv := f.thisReceiver()
	if recv == nil {
		diag.ReportError(c.reporter, diag.TypThisNotAvailable, expr.Span,
			"'this' is not defined in this context").Emit()
		return TypeInfo{Type: c.errorType("no this")}
	}
	binding.Record(c.trace, DataFlowValue, id, recv.Value)
	binding.Record(c.trace, binding.Reference, id, recv.Owner)
	return TypeInfo{Type: recv.Type}
}

func (c *Checker) typeIf(f *frame, id ast.ExprID, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.If(id)
	cond := c.typeCondition(f, data.Cond, ctx.DataFlow)
	thenFlow := c.ExtractDataFlowInfoFromCondition(data.Cond, true, Context{DataFlow: cond.DataFlow})
	elseFlow := c.ExtractDataFlowInfoFromCondition(data.Cond, false, Context{DataFlow: cond.DataFlow})

	then := c.typeBranch(f, data.Then, Context{DataFlow: thenFlow, Expected: ctx.Expected})
	els := TypeInfo{Type: c.builtins.UnitType, DataFlow: elseFlow}
	if data.Else.IsValid() {
		els = c.typeBranch(f, data.Else, Context{DataFlow: elseFlow, Expected: ctx.Expected})
	}
	// A branch that jumps contributes nothing to what holds afterwards.
	flow := then.DataFlow.Or(els.DataFlow)
	switch {
	case c.jumps(then.Type) && !c.jumps(els.Type):
		flow = els.DataFlow
	case c.jumps(els.Type) && !c.jumps(then.Type):
		flow = then.DataFlow
	}
	if !data.Else.IsValid() {
		return TypeInfo{Type: c.builtins.UnitType, DataFlow: flow}
	}
	t := c.types.CommonSupertype([]types.TypeID{then.Type, els.Type})
	return TypeInfo{Type: t, DataFlow: flow}
}

func (c *Checker) jumps(t types.TypeID) bool {
	return t == c.builtins.NothingType
}

// typeBranch types one branch of a conditional in its own block scope.
func (c *Checker) typeBranch(f *frame, id ast.ExprID, ctx Context) TypeInfo {
	f.push()
	defer f.pop()
	return c.typeExpr(f, id, ctx)
}

// typeCondition types a condition that must be Boolean.
func (c *Checker) typeCondition(f *frame, id ast.ExprID, flow *dataflow.Info) TypeInfo {
	info := c.typeExpr(f, id, Context{DataFlow: flow})
	if !c.in.IsError(info.Type) && !c.types.IsSubtype(info.Type, c.builtins.BooleanType) {
		if e := c.builder.Exprs.Get(id); e != nil {
			diag.ReportError(c.reporter, diag.TypConditionTypeMismatch, e.Span,
				fmt.Sprintf("condition must be of type Boolean, but is of type %s", c.in.String(info.Type))).Emit()
		}
	}
	return info
}

func (c *Checker) typeBlock(f *frame, id ast.ExprID, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.Block(id)
	f.push()
	defer f.pop()
	flow := ctx.DataFlow
	result := TypeInfo{Type: c.builtins.UnitType, DataFlow: flow}
	for i, st := range data.Stmts {
		last := i == len(data.Stmts)-1
		if stmt := c.builder.Stmts.Get(st); last && stmt != nil && stmt.Kind == ast.StmtExpr && result.Type != c.builtins.NothingType {
			return c.typeExpr(f, stmt.Expr, Context{DataFlow: flow, Expected: ctx.Expected})
		}
		var status returnStatus
		flow, status = c.typeStmt(f, st, flow)
		result.DataFlow = flow
		if status == returnClosed {
			result.Type = c.builtins.NothingType
		}
	}
	return result
}
