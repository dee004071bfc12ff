package sema

import (
	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/dataflow"
	"frontcore/internal/types"
)

var (
	// DataFlowAfterCondition holds, per is-check, what is known when the
	// check succeeds.
	DataFlowAfterCondition = binding.NewSlice[ast.ExprID, *dataflow.Info]("DATAFLOW_INFO_AFTER_CONDITION")
	// DataFlowValue holds the data flow identity of names, member reads
	// and this expressions.
	DataFlowValue = binding.NewSlice[ast.ExprID, dataflow.Value]("DATAFLOW_VALUE")
)

// ExtractDataFlowInfoFromCondition returns what is known when cond has
// been typed and evaluated to value. Conditions of unknown shape add
// nothing to ctx.DataFlow.
func (c *Checker) ExtractDataFlowInfoFromCondition(cond ast.ExprID, value bool, ctx Context) *dataflow.Info {
	if ctx.DataFlow == nil {
		ctx.DataFlow = dataflow.Empty(c.in)
	}
	if !cond.IsValid() {
		return ctx.DataFlow
	}
	result := c.extract(cond, value, ctx)
	if result == nil {
		return ctx.DataFlow
	}
	return ctx.DataFlow.And(result)
}

func (c *Checker) extract(cond ast.ExprID, value bool, ctx Context) *dataflow.Info {
	expr := c.builder.Exprs.Get(cond)
	if expr == nil {
		return nil
	}
	switch expr.Kind {
	case ast.ExprIs:
		data, _ := c.builder.Exprs.IsCheck(cond)
		if value != data.Negated {
			info, _ := binding.Get(c.trace, DataFlowAfterCondition, cond)
			return info
		}
	case ast.ExprBinary:
		data, _ := c.builder.Exprs.Binary(cond)
		switch data.Op {
		case ast.OpAnd, ast.OpOr:
			left := c.ExtractDataFlowInfoFromCondition(data.Left, value, ctx)
			right := c.ExtractDataFlowInfoFromCondition(data.Right, value, ctx)
			if (data.Op == ast.OpAnd) == value {
				return left.And(right)
			}
			return left.Or(right)
		case ast.OpEq, ast.OpIdentity, ast.OpNotEq, ast.OpNotIdentity:
			lt, ok := binding.Get(c.trace, binding.ExpressionType, data.Left)
			if !ok {
				return nil
			}
			rt, ok := binding.Get(c.trace, binding.ExpressionType, data.Right)
			if !ok {
				return nil
			}
			lv, rv := c.valueOf(data.Left, lt), c.valueOf(data.Right, rt)
			equals := data.Op == ast.OpEq || data.Op == ast.OpIdentity
			if equals == value {
				return ctx.DataFlow.Equate(lv, rv)
			}
			return ctx.DataFlow.Disequate(lv, rv)
		}
	case ast.ExprUnary:
		data, _ := c.builder.Exprs.Unary(cond)
		if data.Op == ast.OpNot {
			return c.ExtractDataFlowInfoFromCondition(data.Operand, !value, ctx)
		}
	case ast.ExprParen:
		data, _ := c.builder.Exprs.Paren(cond)
		return c.extract(data.Inner, value, ctx)
	}
	return nil
}

// valueOf returns the data flow identity recorded for expr, or an
// anonymous value of type t.
func (c *Checker) valueOf(expr ast.ExprID, t types.TypeID) dataflow.Value {
	expr = c.deparenthesize(expr)
	if v, ok := binding.Get(c.trace, DataFlowValue, expr); ok {
		return v
	}
	if lit, ok := c.builder.Exprs.Literal(expr); ok && lit.Kind == ast.LitNull {
		return c.values.Null()
	}
	return c.values.ForExpression(expr, t)
}

func (c *Checker) deparenthesize(expr ast.ExprID) ast.ExprID {
	for {
		p, ok := c.builder.Exprs.Paren(expr)
		if !ok {
			return expr
		}
		expr = p.Inner
	}
}
