package ast

import (
	"frontcore/internal/names"
	"frontcore/internal/source"
)

type StmtKind uint8

const (
	StmtExpr StmtKind = iota + 1
	StmtVal
	StmtAssign
	StmtReturn
	StmtWhile
	StmtBlock
)

// Stmt carries every statement shape in one struct; unused fields stay zero.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	// StmtExpr, StmtReturn (optional), StmtAssign (value)
	Expr ExprID

	// StmtVal
	Name    names.Name
	Mutable bool
	Type    TypeRefID
	Init    ExprID

	// StmtAssign
	Target ExprID

	// StmtWhile
	Cond ExprID
	Body StmtID

	// StmtBlock
	Stmts []StmtID
}

type Stmts struct {
	Arena *Arena[StmtID, Stmt]
}

func NewStmts(capHint uint) *Stmts {
	return &Stmts{Arena: NewArena[StmtID, Stmt](capHint)}
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(id)
}

func (s *Stmts) NewExpr(sp source.Span, expr ExprID) StmtID {
	return s.Arena.Add(Stmt{Kind: StmtExpr, Span: sp, Expr: expr})
}

func (s *Stmts) NewVal(sp source.Span, name names.Name, mutable bool, typ TypeRefID, init ExprID) StmtID {
	return s.Arena.Add(Stmt{Kind: StmtVal, Span: sp, Name: name, Mutable: mutable, Type: typ, Init: init})
}

func (s *Stmts) NewAssign(sp source.Span, target, value ExprID) StmtID {
	return s.Arena.Add(Stmt{Kind: StmtAssign, Span: sp, Target: target, Expr: value})
}

func (s *Stmts) NewReturn(sp source.Span, value ExprID) StmtID {
	return s.Arena.Add(Stmt{Kind: StmtReturn, Span: sp, Expr: value})
}

func (s *Stmts) NewWhile(sp source.Span, cond ExprID, body StmtID) StmtID {
	return s.Arena.Add(Stmt{Kind: StmtWhile, Span: sp, Cond: cond, Body: body})
}

func (s *Stmts) NewBlock(sp source.Span, stmts []StmtID) StmtID {
	return s.Arena.Add(Stmt{Kind: StmtBlock, Span: sp, Stmts: append([]StmtID(nil), stmts...)})
}
