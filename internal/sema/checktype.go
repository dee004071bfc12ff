package sema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/types"
)

// CheckType checks that expr, typed as actual, conforms to ctx.Expected.
// A narrowed type from ctx.DataFlow that conforms is recorded as a smart
// cast and returned. Literals that do not conform get a constant specific
// diagnostic instead of a plain mismatch.
func (c *Checker) CheckType(actual types.TypeID, expr ast.ExprID, ctx Context) types.TypeID {
	expr = c.deparenthesize(expr)
	expected := ctx.Expected
	if expected != types.NoTypeID {
		binding.Record(c.trace, binding.ExpectedType, expr, expected)
	}
	if actual == types.NoTypeID {
		return actual
	}
	if expected == types.NoTypeID || !c.in.IsDenotable(expected) || c.types.IsSubtype(actual, expected) {
		return actual
	}
	e := c.builder.Exprs.Get(expr)
	if lit, ok := c.constant(expr); ok {
		c.checkConstant(lit, e.Span, expected)
		return actual
	}
	if ctx.DataFlow != nil {
		v := c.valueOf(expr, actual)
		for _, pt := range ctx.DataFlow.PossibleTypes(v) {
			if !c.types.IsSubtype(pt, expected) {
				continue
			}
			if v.IsStable() {
				binding.Record(c.trace, binding.SmartCast, expr, pt)
			} else {
				diag.ReportError(c.reporter, diag.TypSmartCastImpossible, e.Span,
					fmt.Sprintf("smart cast to %s is impossible because the value could have changed", c.in.String(pt))).Emit()
			}
			return pt
		}
	}
	diag.ReportError(c.reporter, diag.TypMismatch, e.Span,
		fmt.Sprintf("type mismatch: inferred type is %s but %s was expected", c.in.String(actual), c.in.String(expected))).Emit()
	return actual
}

// literal is a constant expression: a literal, possibly negated.
type literal struct {
	kind     ast.LitKind
	text     string
	negative bool
}

func (c *Checker) constant(expr ast.ExprID) (literal, bool) {
	if u, ok := c.builder.Exprs.Unary(expr); ok && u.Op == ast.OpMinus {
		lit, ok := c.constant(c.deparenthesize(u.Operand))
		if !ok || lit.negative {
			return literal{}, false
		}
		switch lit.kind {
		case ast.LitInt, ast.LitLong, ast.LitDouble, ast.LitFloat:
			lit.negative = true
			return lit, true
		}
		return literal{}, false
	}
	if l, ok := c.builder.Exprs.Literal(expr); ok {
		return literal{kind: l.Kind, text: l.Text}, true
	}
	return literal{}, false
}

func (c *Checker) checkConstant(lit literal, span source.Span, expected types.TypeID) {
	switch lit.kind {
	case ast.LitInt, ast.LitLong:
		if id, ok := c.in.ClassOf(c.in.MakeNotNullable(expected)); ok && c.isIntegral(id) {
			if lit.kind == ast.LitInt || id == c.builtins.Long {
				diag.ReportError(c.reporter, diag.TypIntLiteralOutOfRange, span,
					fmt.Sprintf("the value is out of range for %s", c.in.String(expected))).Emit()
				return
			}
		}
		diag.ReportError(c.reporter, diag.TypConstantExpectedTypeMismatch, span,
			fmt.Sprintf("the integer literal does not conform to the expected type %s", c.in.String(expected))).Emit()
	case ast.LitNull:
		diag.ReportError(c.reporter, diag.TypConstantExpectedTypeMismatch, span,
			fmt.Sprintf("null can not be a value of a non-null type %s", c.in.String(expected))).Emit()
	default:
		diag.ReportError(c.reporter, diag.TypConstantExpectedTypeMismatch, span,
			fmt.Sprintf("the %s literal does not conform to the expected type %s", literalKindName(lit.kind), c.in.String(expected))).Emit()
	}
}

func literalKindName(k ast.LitKind) string {
	switch k {
	case ast.LitDouble, ast.LitFloat:
		return "floating-point"
	case ast.LitChar:
		return "character"
	case ast.LitString:
		return "string"
	case ast.LitBool:
		return "boolean"
	}
	return "integer"
}

func (c *Checker) isIntegral(id names.ClassId) bool {
	b := c.builtins
	return id == b.Byte || id == b.Short || id == b.Int || id == b.Long
}

// integerRange is the inclusive value range of an integral built-in.
func (c *Checker) integerRange(id names.ClassId) (int64, int64) {
	b := c.builtins
	switch id {
	case b.Byte:
		return math.MinInt8, math.MaxInt8
	case b.Short:
		return math.MinInt16, math.MaxInt16
	case b.Int:
		return math.MinInt32, math.MaxInt32
	}
	return math.MinInt64, math.MaxInt64
}

// parseInteger reads an integer literal; ok is false when it does not fit
// in 64 bits.
func parseInteger(lit literal) (int64, bool) {
	text := strings.ReplaceAll(lit.text, "_", "")
	if lit.negative {
		text = "-" + text
	}
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// integerLiteralType picks the type of an integer literal: the expected
// integral type when the value fits it, otherwise Int or Long.
func (c *Checker) integerLiteralType(lit literal, expected types.TypeID) (types.TypeID, bool) {
	v, ok := parseInteger(lit)
	if !ok {
		return types.NoTypeID, false
	}
	if lit.kind == ast.LitLong {
		return c.builtins.LongType, true
	}
	if expected != types.NoTypeID {
		if id, ok := c.in.ClassOf(c.in.MakeNotNullable(expected)); ok && c.isIntegral(id) {
			lo, hi := c.integerRange(id)
			if v >= lo && v <= hi {
				return c.in.Class(id), true
			}
		}
	}
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return c.builtins.IntType, true
	}
	return c.builtins.LongType, true
}
