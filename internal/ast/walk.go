package ast

// WalkExpr calls visit for id and every expression nested in it, parents
// first. Returning false from visit skips the children.
func (b *Builder) WalkExpr(id ExprID, visit func(ExprID, *Expr) bool) {
	expr := b.Exprs.Get(id)
	if expr == nil || !visit(id, expr) {
		return
	}
	switch expr.Kind {
	case ExprCall:
		call, _ := b.Exprs.Call(id)
		b.WalkExpr(call.Receiver, visit)
		b.WalkExpr(call.Callee, visit)
		for _, a := range call.Args {
			b.WalkExpr(a.Value, visit)
		}
	case ExprMember:
		m, _ := b.Exprs.Member(id)
		b.WalkExpr(m.Receiver, visit)
	case ExprBinary:
		bin, _ := b.Exprs.Binary(id)
		b.WalkExpr(bin.Left, visit)
		b.WalkExpr(bin.Right, visit)
	case ExprUnary:
		u, _ := b.Exprs.Unary(id)
		b.WalkExpr(u.Operand, visit)
	case ExprIs:
		is, _ := b.Exprs.IsCheck(id)
		b.WalkExpr(is.Value, visit)
	case ExprAs:
		as, _ := b.Exprs.Cast(id)
		b.WalkExpr(as.Value, visit)
	case ExprParen:
		p, _ := b.Exprs.Paren(id)
		b.WalkExpr(p.Inner, visit)
	case ExprIf:
		n, _ := b.Exprs.If(id)
		b.WalkExpr(n.Cond, visit)
		b.WalkExpr(n.Then, visit)
		b.WalkExpr(n.Else, visit)
	case ExprBlock:
		blk, _ := b.Exprs.Block(id)
		for _, s := range blk.Stmts {
			b.WalkStmt(s, visit)
		}
	}
}

// WalkStmt visits every expression reachable from the statement.
func (b *Builder) WalkStmt(id StmtID, visit func(ExprID, *Expr) bool) {
	st := b.Stmts.Get(id)
	if st == nil {
		return
	}
	switch st.Kind {
	case StmtExpr, StmtReturn:
		b.WalkExpr(st.Expr, visit)
	case StmtVal:
		b.WalkExpr(st.Init, visit)
	case StmtAssign:
		b.WalkExpr(st.Target, visit)
		b.WalkExpr(st.Expr, visit)
	case StmtWhile:
		b.WalkExpr(st.Cond, visit)
		b.WalkStmt(st.Body, visit)
	case StmtBlock:
		for _, s := range st.Stmts {
			b.WalkStmt(s, visit)
		}
	}
}
