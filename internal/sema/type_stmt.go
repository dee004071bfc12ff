package sema

import (
	"fmt"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/types"
)

// returnStatus tells whether control can leave a statement normally.
type returnStatus uint8

const (
	returnOpen returnStatus = iota
	returnClosed
)

func (c *Checker) statusOf(t types.TypeID) returnStatus {
	if t == c.builtins.NothingType {
		return returnClosed
	}
	return returnOpen
}

// typeStmt types st under flow and returns what is known after it.
func (c *Checker) typeStmt(f *frame, id ast.StmtID, flow *dataflow.Info) (*dataflow.Info, returnStatus) {
	st := c.builder.Stmts.Get(id)
	if st == nil {
		return flow, returnOpen
	}
	switch st.Kind {
	case ast.StmtExpr:
		info := c.typeExpr(f, st.Expr, Context{DataFlow: flow})
		return info.DataFlow, c.statusOf(info.Type)
	case ast.StmtVal:
		return c.typeVal(f, id, st, flow), returnOpen
	case ast.StmtAssign:
		return c.typeAssign(f, st, flow), returnOpen
	case ast.StmtReturn:
		return c.typeReturn(f, st, flow), returnClosed
	case ast.StmtWhile:
		return c.typeWhile(f, st, flow), returnOpen
	case ast.StmtBlock:
		f.push()
		defer f.pop()
		status := returnOpen
		for _, s := range st.Stmts {
			var next returnStatus
			flow, next = c.typeStmt(f, s, flow)
			if next == returnClosed {
				status = returnClosed
			}
		}
		return flow, status
	}
	return flow, returnOpen
}

func (c *Checker) typeVal(f *frame, id ast.StmtID, st *ast.Stmt, flow *dataflow.Info) *dataflow.Info {
	declared := types.NoTypeID
	if st.Type.IsValid() {
		declared = c.resolveType(f, st.Type)
	}
	t := declared
	if st.Init.IsValid() {
		info := c.typeExpr(f, st.Init, Context{DataFlow: flow, Expected: declared})
		flow = info.DataFlow
		if declared == types.NoTypeID {
			t = info.Type
		}
	}
	if t == types.NoTypeID {
		diag.ReportError(c.reporter, diag.TypNoTypeNoInitializer, st.Span,
			"this variable must either have a type annotation or be initialized").Emit()
		t = c.errorType("no type and no initializer")
	}
	name := c.builder.Names.MustLookup(st.Name)
	scope := f.innermost()
	if len(scope.Variables(st.Name)) > 0 {
		diag.ReportError(c.reporter, diag.ResRedeclaration, st.Span,
			fmt.Sprintf("conflicting declarations: %s", name)).Emit()
	}
	v := descriptors.NewLocalVariable(f.env.Owner, st.Name, t, st.Mutable, st.Span)
	scope.Add(v)
	binding.Record(c.trace, binding.Variable, id, descriptors.Variable(v))
	return flow
}

func (c *Checker) typeAssign(f *frame, st *ast.Stmt, flow *dataflow.Info) *dataflow.Info {
	target := c.typeExpr(f, st.Target, Context{DataFlow: flow})
	flow = target.DataFlow
	expected := target.Type
	targetExpr := c.deparenthesize(st.Target)
	ref, _ := binding.Get(c.trace, binding.Reference, targetExpr)
	v, isVar := ref.(descriptors.Variable)
	switch {
	case isVar && !v.IsVar():
		diag.ReportError(c.reporter, diag.TypValReassignment, st.Span,
			fmt.Sprintf("val cannot be reassigned: %s", c.builder.Names.MustLookup(v.Name()))).Emit()
	case !isVar && !c.in.IsError(target.Type):
		diag.ReportError(c.reporter, diag.TypVariableExpected, st.Span,
			"variable expected").Emit()
		expected = types.NoTypeID
	}
	value := c.typeExpr(f, st.Expr, Context{DataFlow: flow, Expected: expected})
	flow = value.DataFlow
	dv, ok := binding.Get(c.trace, DataFlowValue, targetExpr)
	if !ok || !isVar {
		return flow
	}
	flow = flow.ClearValue(dv)
	switch {
	case c.isNullLiteral(st.Expr):
		flow = flow.Equate(dv, c.values.Null())
	case !c.in.IsError(value.Type):
		flow = flow.EstablishSubtyping(dv, value.Type)
	}
	return flow
}

func (c *Checker) typeReturn(f *frame, st *ast.Stmt, flow *dataflow.Info) *dataflow.Info {
	if !f.env.AllowReturn {
		diag.ReportError(c.reporter, diag.TypReturnNotAllowed, st.Span,
			"'return' is not allowed here").Emit()
		if st.Expr.IsValid() {
			return c.typeExpr(f, st.Expr, Context{DataFlow: flow}).DataFlow
		}
		return flow
	}
	ret := f.env.ReturnType
	if ret == types.NoTypeID {
		ret = c.builtins.UnitType
	}
	if !st.Expr.IsValid() {
		if !c.isUnit(ret) && !c.in.IsError(ret) {
			diag.ReportError(c.reporter, diag.TypMismatch, st.Span,
				fmt.Sprintf("this function must return a value of type %s", c.in.String(ret))).Emit()
		}
		return flow
	}
	return c.typeExpr(f, st.Expr, Context{DataFlow: flow, Expected: ret}).DataFlow
}

// typeWhile checks the condition under what holds at loop entry, with every
// local assigned in the body forgotten.
func (c *Checker) typeWhile(f *frame, st *ast.Stmt, flow *dataflow.Info) *dataflow.Info {
	for _, v := range c.assignedLocals(f, st.Body) {
		flow = flow.ClearValue(c.values.ForVariable(v, nil, v.Type()))
	}
	cond := c.typeCondition(f, st.Cond, flow)
	body := c.ExtractDataFlowInfoFromCondition(st.Cond, true, Context{DataFlow: cond.DataFlow})
	f.push()
	c.typeStmt(f, st.Body, body)
	f.pop()
	return c.ExtractDataFlowInfoFromCondition(st.Cond, false, Context{DataFlow: cond.DataFlow})
}

// assignedLocals returns the visible locals assigned anywhere in st.
func (c *Checker) assignedLocals(f *frame, st ast.StmtID) []descriptors.Variable {
	var out []descriptors.Variable
	seen := make(map[descriptors.Variable]bool)
	var visitStmt func(ast.StmtID)
	visitExpr := func(id ast.ExprID) {
		c.builder.WalkExpr(id, func(eid ast.ExprID, _ *ast.Expr) bool {
			blk, ok := c.builder.Exprs.Block(eid)
			if !ok {
				return true
			}
			for _, inner := range blk.Stmts {
				visitStmt(inner)
			}
			return false
		})
	}
	visitStmt = func(id ast.StmtID) {
		s := c.builder.Stmts.Get(id)
		if s == nil {
			return
		}
		switch s.Kind {
		case ast.StmtAssign:
			if n, ok := c.builder.Exprs.Name(c.deparenthesize(s.Target)); ok {
				if v := f.lookupLocal(n.Name); v != nil && !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
			visitExpr(s.Expr)
		case ast.StmtWhile:
			visitExpr(s.Cond)
			visitStmt(s.Body)
		case ast.StmtBlock:
			for _, inner := range s.Stmts {
				visitStmt(inner)
			}
		case ast.StmtVal:
			visitExpr(s.Init)
		default:
			visitExpr(s.Expr)
		}
	}
	visitStmt(st)
	return out
}
