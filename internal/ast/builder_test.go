package ast

import (
	"testing"

	"frontcore/internal/names"
	"frontcore/internal/source"
)

func TestArenaReservesZero(t *testing.T) {
	a := NewArena[StmtID, int](0)
	if a.Get(NoStmtID) != nil {
		t.Fatalf("id 0 must be empty")
	}
	id := a.Add(7)
	if id != 1 || *a.Get(id) != 7 {
		t.Fatalf("unexpected allocation %d", id)
	}
	if a.Get(2) != nil {
		t.Fatalf("out of range id must be nil")
	}
	a.Add(8)
	var ids []StmtID
	for id := range a.IDs() {
		ids = append(ids, id)
	}
	if len(ids) != 2 || ids[1] != 2 || a.Len() != 2 {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestDeclPayloadsAreKindChecked(t *testing.T) {
	nt := names.NewTable()
	b := NewBuilder(nt, Hints{})
	fn := b.Decls.NewFunction(Decl{Name: nt.Intern("f")}, FunctionData{})
	cls := b.Decls.NewClass(Decl{Name: nt.Intern("C")}, ClassData{Kind: ClassInterface})

	if _, ok := b.Decls.Class(fn); ok {
		t.Fatalf("function must not expose class payload")
	}
	data, ok := b.Decls.Class(cls)
	if !ok || data.Kind != ClassInterface {
		t.Fatalf("class payload lost: %+v", data)
	}
	if got := b.Decls.Get(fn).Kind; got != DeclFunction {
		t.Fatalf("kind = %v", got)
	}
}

func TestWalkVisitsNestedExpressions(t *testing.T) {
	nt := names.NewTable()
	b := NewBuilder(nt, Hints{})
	sp := source.Span{}
	x := b.Exprs.NewName(sp, nt.Intern("x"))
	one := b.Exprs.NewLiteral(sp, LitInt, "1")
	sum := b.Exprs.NewBinary(sp, OpAdd, x, one)
	call := b.Exprs.NewCall(sp, CallData{Name: nt.Intern("f"), Args: []Arg{{Value: sum}}})
	ret := b.Stmts.NewReturn(sp, call)

	var kinds []ExprKind
	b.WalkStmt(ret, func(_ ExprID, e *Expr) bool {
		kinds = append(kinds, e.Kind)
		return true
	})
	want := []ExprKind{ExprCall, ExprBinary, ExprName, ExprLiteral}
	if len(kinds) != len(want) {
		t.Fatalf("visited %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("visit %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestParseBinaryOp(t *testing.T) {
	op, ok := ParseBinaryOp("&&")
	if !ok || op != OpAnd {
		t.Fatalf("got %v %v", op, ok)
	}
	if _, ok := ParseBinaryOp("<=>"); ok {
		t.Fatalf("unknown operator accepted")
	}
}
