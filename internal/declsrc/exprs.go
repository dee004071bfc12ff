package declsrc

import (
	"strings"

	"gopkg.in/yaml.v3"

	"frontcore/internal/ast"
	"frontcore/internal/diag"
)

var unaryOps = map[string]ast.UnaryOp{"!": ast.OpNot, "-": ast.OpMinus, "+": ast.OpPlus, "!!": ast.OpNotNull}

// exprKinds lists the keys that select an expression kind.
func exprKinds(r *rawExpr) []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(r.Name != "", "name")
	add(r.Int != nil, "int")
	add(r.Long != nil, "long")
	add(r.Double != nil, "double")
	add(r.Float != nil, "float")
	add(r.Char != nil, "char")
	add(r.String != nil, "string")
	add(r.Bool != nil, "bool")
	add(r.This, "this")
	add(r.Call != "" || r.Callee != nil, "call")
	add(r.Member != "", "member")
	add(r.Binary != "", "binary")
	add(r.Unary != "", "unary")
	add(r.Is != nil, "is")
	add(r.As != nil, "as")
	add(r.Paren != nil, "paren")
	add(r.If != nil, "if")
	add(r.Block != nil, "block")
	return out
}

func (l *Loader) expr(r *rawExpr) ast.ExprID {
	if r == nil {
		return ast.NoExprID
	}
	sp := l.span(r.pos)
	ex := l.b.Exprs
	if r.scalar != nil {
		return l.scalar(r)
	}
	kinds := exprKinds(r)
	if len(kinds) != 1 {
		if len(kinds) == 0 {
			l.errorf(r.pos, diag.SrcUnknownNode, "expression has no kind")
		} else {
			l.errorf(r.pos, diag.SrcUnknownNode, "expression has several kinds: %s", strings.Join(kinds, ", "))
		}
		return ast.NoExprID
	}
	switch kinds[0] {
	case "name":
		return ex.NewName(sp, l.intern(r.Name))
	case "int":
		return ex.NewLiteral(sp, ast.LitInt, *r.Int)
	case "long":
		return ex.NewLiteral(sp, ast.LitLong, *r.Long)
	case "double":
		return ex.NewLiteral(sp, ast.LitDouble, *r.Double)
	case "float":
		return ex.NewLiteral(sp, ast.LitFloat, *r.Float)
	case "char":
		return ex.NewLiteral(sp, ast.LitChar, *r.Char)
	case "string":
		return ex.NewLiteral(sp, ast.LitString, *r.String)
	case "bool":
		if *r.Bool {
			return ex.NewLiteral(sp, ast.LitBool, "true")
		}
		return ex.NewLiteral(sp, ast.LitBool, "false")
	case "this":
		return ex.NewThis(sp)
	case "call":
		data := ast.CallData{
			Receiver: l.expr(r.Receiver),
			Safe:     r.Safe,
			TypeArgs: l.typeRefs(r.TypeArgs),
			Args:     l.args(r.Args),
		}
		if r.Callee != nil {
			data.Callee = l.expr(r.Callee)
		} else {
			data.Name = l.intern(r.Call)
		}
		return ex.NewCall(sp, data)
	case "member":
		if r.Receiver == nil {
			l.errorf(r.pos, diag.SrcInvalidDecl, "member %q has no receiver", r.Member)
			return ast.NoExprID
		}
		return ex.NewMember(sp, l.expr(r.Receiver), r.Safe, l.intern(r.Member))
	case "binary":
		op, ok := ast.ParseBinaryOp(r.Binary)
		if !ok {
			l.errorf(r.pos, diag.SrcUnknownNode, "unknown operator %q", r.Binary)
			return ast.NoExprID
		}
		return ex.NewBinary(sp, op, l.expr(r.Left), l.expr(r.Right))
	case "unary":
		op, ok := unaryOps[r.Unary]
		if !ok {
			l.errorf(r.pos, diag.SrcUnknownNode, "unknown operator %q", r.Unary)
			return ast.NoExprID
		}
		return ex.NewUnary(sp, op, l.expr(r.Operand))
	case "is":
		return ex.NewIs(sp, l.expr(r.Value), l.typeRef(r.Is), r.Negated)
	case "as":
		return ex.NewAs(sp, l.expr(r.Value), l.typeRef(r.As), r.Safe)
	case "paren":
		return ex.NewParen(sp, l.expr(r.Paren))
	case "if":
		return ex.NewIf(sp, l.expr(r.If), l.expr(r.Then), l.expr(r.Else))
	case "block":
		return ex.NewBlock(sp, l.stmts(r.Block))
	}
	return ast.NoExprID
}

// scalar lowers the shorthands: names, numbers, booleans and null.
func (l *Loader) scalar(r *rawExpr) ast.ExprID {
	n := r.scalar
	sp := l.span(r.pos)
	ex := l.b.Exprs
	switch n.ShortTag() {
	case "!!int":
		return ex.NewLiteral(sp, ast.LitInt, n.Value)
	case "!!float":
		return ex.NewLiteral(sp, ast.LitDouble, n.Value)
	case "!!bool":
		return ex.NewLiteral(sp, ast.LitBool, strings.ToLower(n.Value))
	case "!!null":
		return ex.NewLiteral(sp, ast.LitNull, "null")
	case "!!str":
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			return ex.NewLiteral(sp, ast.LitString, n.Value)
		}
		if n.Value == "this" {
			return ex.NewThis(sp)
		}
		return ex.NewName(sp, l.intern(n.Value))
	}
	l.errorf(r.pos, diag.SrcUnknownNode, "unsupported scalar %s", n.ShortTag())
	return ast.NoExprID
}

func (l *Loader) args(rs []rawArg) []ast.Arg {
	var out []ast.Arg
	for i := range rs {
		r := &rs[i]
		arg := ast.Arg{Value: l.expr(r.Value), Spread: r.Spread}
		if r.Named != "" {
			arg.Name = l.intern(r.Named)
		}
		out = append(out, arg)
	}
	return out
}

func (l *Loader) stmts(rs []rawStmt) []ast.StmtID {
	var out []ast.StmtID
	for i := range rs {
		if id := l.stmt(&rs[i]); id.IsValid() {
			out = append(out, id)
		}
	}
	return out
}

func (l *Loader) stmt(r *rawStmt) ast.StmtID {
	sp := l.span(r.pos)
	st := l.b.Stmts
	decode := func(v any) bool {
		if err := r.value.Decode(v); err != nil {
			l.errorf(r.pos, diag.SrcSyntax, "%s: %v", r.kind, err)
			return false
		}
		return true
	}
	switch r.kind {
	case "expr":
		var e rawExpr
		if !decode(&e) {
			return ast.NoStmtID
		}
		return st.NewExpr(sp, l.expr(&e))
	case "return":
		if r.value.ShortTag() == "!!null" && r.value.Value != "null" {
			return st.NewReturn(sp, ast.NoExprID)
		}
		var e rawExpr
		if !decode(&e) {
			return ast.NoStmtID
		}
		return st.NewReturn(sp, l.expr(&e))
	case "val", "var":
		var local rawLocal
		if !decode(&local) {
			return ast.NoStmtID
		}
		if local.Name == "" {
			l.errorf(r.pos, diag.SrcInvalidDecl, "%s without a name", r.kind)
			return ast.NoStmtID
		}
		return st.NewVal(sp, l.intern(local.Name), r.kind == "var", l.typeRef(local.Type), l.expr(local.Init))
	case "assign":
		var a rawAssign
		if !decode(&a) {
			return ast.NoStmtID
		}
		return st.NewAssign(sp, l.expr(a.Target), l.expr(a.Value))
	case "while":
		var w rawWhile
		if !decode(&w) {
			return ast.NoStmtID
		}
		return st.NewWhile(sp, l.expr(w.Cond), st.NewBlock(sp, l.stmts(w.Body)))
	case "block":
		var body []rawStmt
		if !decode(&body) {
			return ast.NoStmtID
		}
		return st.NewBlock(sp, l.stmts(body))
	}
	l.errorf(r.pos, diag.SrcUnknownNode, "unknown statement %q", r.kind)
	return ast.NoStmtID
}
