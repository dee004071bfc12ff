package sema

import (
	"fmt"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/calls"
	"frontcore/internal/dataflow"
	"frontcore/internal/diag"
	"frontcore/internal/types"
)

var binaryOperatorNames = map[ast.BinaryOp]string{
	ast.OpAdd: "plus",
	ast.OpSub: "minus",
	ast.OpMul: "times",
	ast.OpDiv: "div",
	ast.OpRem: "rem",
	ast.OpLt:  "compareTo",
	ast.OpLe:  "compareTo",
	ast.OpGt:  "compareTo",
	ast.OpGe:  "compareTo",
}

func (c *Checker) typeBinary(f *frame, id ast.ExprID, expr *ast.Expr, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.Binary(id)
	boolean := c.builtins.BooleanType
	switch data.Op {
	case ast.OpAnd, ast.OpOr:
		left := c.typeCondition(f, data.Left, ctx.DataFlow)
		rightFlow := c.ExtractDataFlowInfoFromCondition(data.Left, data.Op == ast.OpAnd, Context{DataFlow: left.DataFlow})
		c.typeCondition(f, data.Right, rightFlow)
		return TypeInfo{Type: boolean, DataFlow: left.DataFlow}
	case ast.OpEq, ast.OpNotEq, ast.OpIdentity, ast.OpNotIdentity:
		left := c.typeExpr(f, data.Left, Context{DataFlow: ctx.DataFlow})
		right := c.typeExpr(f, data.Right, Context{DataFlow: left.DataFlow})
		c.checkSenselessComparison(expr, data, left.Type, right.Type, right.DataFlow)
		return TypeInfo{Type: boolean, DataFlow: right.DataFlow}
	case ast.OpElvis:
		left := c.typeExpr(f, data.Left, Context{DataFlow: ctx.DataFlow})
		whenNull := left.DataFlow.Equate(c.valueOf(data.Left, left.Type), c.values.Null())
		right := c.typeExpr(f, data.Right, Context{DataFlow: whenNull})
		t := c.types.CommonSupertype([]types.TypeID{c.in.MakeNotNullable(left.Type), right.Type})
		if c.jumps(right.Type) {
			return TypeInfo{Type: t, DataFlow: left.DataFlow.Disequate(c.valueOf(data.Left, left.Type), c.values.Null())}
		}
		return TypeInfo{Type: t, DataFlow: left.DataFlow}
	}
	name, ok := binaryOperatorNames[data.Op]
	if !ok {
		return TypeInfo{Type: c.errorType("unknown operator " + data.Op.String())}
	}
	recv, flow := c.receiver(f, data.Left, ctx.DataFlow)
	args, flow := c.arguments(f, []ast.Arg{{Value: data.Right}}, flow)
	call := &calls.Call{
		Kind:     calls.CallFunction,
		Expr:     id,
		Span:     expr.Span,
		Name:     c.builder.Names.Intern(name),
		Receiver: recv,
		Args:     args,
	}
	res := c.calls.ResolveCall(c.callContext(f, flow, types.NoTypeID), call)
	t := res.ResultType()
	if name == "compareTo" && t != types.NoTypeID {
		t = boolean
	}
	return TypeInfo{Type: t, DataFlow: flow}
}

// checkSenselessComparison warns about comparing a value whose type cannot
// be null, and which is not known to be null, against the null literal.
func (c *Checker) checkSenselessComparison(expr *ast.Expr, data *ast.BinaryData, lt, rt types.TypeID, flow *dataflow.Info) {
	value, t := data.Left, lt
	if !c.isNullLiteral(data.Right) {
		if !c.isNullLiteral(data.Left) {
			return
		}
		value, t = data.Right, rt
	}
	if t == types.NoTypeID || c.in.IsError(t) || c.in.IsNullable(t) {
		return
	}
	if flow.Nullability(c.valueOf(value, t)) != dataflow.NotNull {
		return
	}
	always := "false"
	if data.Op == ast.OpNotEq || data.Op == ast.OpNotIdentity {
		always = "true"
	}
	diag.ReportWarning(c.reporter, diag.TypSenselessComparison, expr.Span,
		fmt.Sprintf("condition is always %s: %s cannot be null", always, c.in.String(t))).Emit()
}

func (c *Checker) isNullLiteral(id ast.ExprID) bool {
	lit, ok := c.builder.Exprs.Literal(c.deparenthesize(id))
	return ok && lit.Kind == ast.LitNull
}

var unaryOperatorNames = map[ast.UnaryOp]string{
	ast.OpMinus: "unaryMinus",
	ast.OpPlus:  "unaryPlus",
}

func (c *Checker) typeUnary(f *frame, id ast.ExprID, expr *ast.Expr, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.Unary(id)
	switch data.Op {
	case ast.OpNot:
		operand := c.typeCondition(f, data.Operand, ctx.DataFlow)
		return TypeInfo{Type: c.builtins.BooleanType, DataFlow: operand.DataFlow}
	case ast.OpNotNull:
		operand := c.typeExpr(f, data.Operand, Context{DataFlow: ctx.DataFlow})
		flow := operand.DataFlow.Disequate(c.valueOf(data.Operand, operand.Type), c.values.Null())
		return TypeInfo{Type: c.in.MakeNotNullable(operand.Type), DataFlow: flow}
	}
	if lit, ok := c.constant(id); ok && data.Op == ast.OpMinus {
		c.typeExpr(f, data.Operand, Context{DataFlow: ctx.DataFlow})
		return c.negativeLiteral(lit, expr, ctx)
	}
	recv, flow := c.receiver(f, data.Operand, ctx.DataFlow)
	call := &calls.Call{
		Kind:     calls.CallFunction,
		Expr:     id,
		Span:     expr.Span,
		Name:     c.builder.Names.Intern(unaryOperatorNames[data.Op]),
		Receiver: recv,
	}
	res := c.calls.ResolveCall(c.callContext(f, flow, types.NoTypeID), call)
	return TypeInfo{Type: res.ResultType(), DataFlow: flow}
}

// negativeLiteral types -literal as a constant so that the minimum value of
// each integral type fits it.
func (c *Checker) negativeLiteral(lit literal, expr *ast.Expr, ctx Context) TypeInfo {
	switch lit.kind {
	case ast.LitDouble:
		return TypeInfo{Type: c.builtins.DoubleType}
	case ast.LitFloat:
		return TypeInfo{Type: c.builtins.FloatType}
	}
	t, ok := c.integerLiteralType(lit, ctx.Expected)
	if !ok {
		diag.ReportError(c.reporter, diag.TypIntLiteralOutOfRange, expr.Span,
			"the value is out of range for Long").Emit()
		return TypeInfo{Type: c.errorType("integer literal out of range")}
	}
	return TypeInfo{Type: t}
}

func (c *Checker) typeIs(f *frame, id ast.ExprID, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.IsCheck(id)
	value := c.typeExpr(f, data.Value, Context{DataFlow: ctx.DataFlow})
	target := c.resolveType(f, data.Type)
	after := value.DataFlow.EstablishSubtyping(c.valueOf(data.Value, value.Type), target)
	binding.Record(c.trace, DataFlowAfterCondition, id, after)
	return TypeInfo{Type: c.builtins.BooleanType, DataFlow: value.DataFlow}
}

func (c *Checker) typeAs(f *frame, id ast.ExprID, ctx Context) TypeInfo {
	data, _ := c.builder.Exprs.Cast(id)
	value := c.typeExpr(f, data.Value, Context{DataFlow: ctx.DataFlow})
	target := c.resolveType(f, data.Type)
	if data.Safe {
		return TypeInfo{Type: c.in.MakeNullable(target), DataFlow: value.DataFlow}
	}
	flow := value.DataFlow.EstablishSubtyping(c.valueOf(data.Value, value.Type), target)
	return TypeInfo{Type: target, DataFlow: flow}
}
