package ast

import (
	"frontcore/internal/names"
	"frontcore/internal/source"
)

type ExprKind uint8

const (
	ExprName ExprKind = iota + 1
	ExprLiteral
	ExprCall
	ExprMember
	ExprBinary
	ExprUnary
	ExprIs
	ExprAs
	ExprParen
	ExprIf
	ExprBlock
	ExprThis
)

type LitKind uint8

const (
	LitInt LitKind = iota + 1
	LitLong
	LitDouble
	LitFloat
	LitChar
	LitString
	LitBool
	LitNull
)

type BinaryOp uint8

const (
	OpAdd BinaryOp = iota + 1
	OpSub
	OpMul
	OpDiv
	OpRem
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNotEq
	OpIdentity
	OpNotIdentity
	OpAnd
	OpOr
	OpElvis
)

var binaryOpText = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpEq: "==", OpNotEq: "!=", OpIdentity: "===", OpNotIdentity: "!==",
	OpAnd: "&&", OpOr: "||", OpElvis: "?:",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) && binaryOpText[op] != "" {
		return binaryOpText[op]
	}
	return "?"
}

// ParseBinaryOp maps operator text to its BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op, text := range binaryOpText {
		if text != "" && text == s {
			return BinaryOp(op), true
		}
	}
	return 0, false
}

type UnaryOp uint8

const (
	OpNot UnaryOp = iota + 1
	OpMinus
	OpPlus
	OpNotNull
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpMinus:
		return "-"
	case OpPlus:
		return "+"
	case OpNotNull:
		return "!!"
	}
	return "?"
}

// Expr is the header of an expression; kind specific data lives in the
// payload arenas of Exprs.
type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

type NameData struct {
	Name names.Name
}

type LiteralData struct {
	Kind LitKind
	// Text is the literal as written, without quotes or suffix.
	Text string
}

// Arg is one call argument, possibly named or spread ("*xs").
type Arg struct {
	Name   names.Name
	Value  ExprID
	Spread bool
}

type CallData struct {
	Receiver ExprID // absent for unqualified calls
	Safe     bool   // ?.
	Name     names.Name
	// Callee is set instead of Name when a non-name expression is invoked.
	Callee   ExprID
	TypeArgs []TypeRefID
	Args     []Arg
}

type MemberData struct {
	Receiver ExprID
	Safe     bool
	Name     names.Name
}

type BinaryData struct {
	Op    BinaryOp
	Left  ExprID
	Right ExprID
}

type UnaryData struct {
	Op      UnaryOp
	Operand ExprID
}

type IsData struct {
	Value   ExprID
	Type    TypeRefID
	Negated bool
}

type AsData struct {
	Value ExprID
	Type  TypeRefID
	Safe  bool
}

type ParenData struct {
	Inner ExprID
}

type IfData struct {
	Cond ExprID
	Then ExprID
	Else ExprID
}

type BlockData struct {
	Stmts []StmtID
}

// Exprs manages allocation of expressions.
type Exprs struct {
	Arena    *Arena[ExprID, Expr]
	Names    *Arena[PayloadID, NameData]
	Literals *Arena[PayloadID, LiteralData]
	Calls    *Arena[PayloadID, CallData]
	Members  *Arena[PayloadID, MemberData]
	Binaries *Arena[PayloadID, BinaryData]
	Unaries  *Arena[PayloadID, UnaryData]
	Is       *Arena[PayloadID, IsData]
	As       *Arena[PayloadID, AsData]
	Parens   *Arena[PayloadID, ParenData]
	Ifs      *Arena[PayloadID, IfData]
	Blocks   *Arena[PayloadID, BlockData]
}

func NewExprs(capHint uint) *Exprs {
	return &Exprs{
		Arena:    NewArena[ExprID, Expr](capHint),
		Names:    NewArena[PayloadID, NameData](capHint),
		Literals: NewArena[PayloadID, LiteralData](capHint),
		Calls:    NewArena[PayloadID, CallData](capHint),
		Members:  NewArena[PayloadID, MemberData](capHint),
		Binaries: NewArena[PayloadID, BinaryData](capHint),
		Unaries:  NewArena[PayloadID, UnaryData](capHint),
		Is:       NewArena[PayloadID, IsData](capHint),
		As:       NewArena[PayloadID, AsData](capHint),
		Parens:   NewArena[PayloadID, ParenData](capHint),
		Ifs:      NewArena[PayloadID, IfData](capHint),
		Blocks:   NewArena[PayloadID, BlockData](capHint),
	}
}

func (e *Exprs) new(kind ExprKind, sp source.Span, payload PayloadID) ExprID {
	return e.Arena.Add(Expr{Kind: kind, Span: sp, Payload: payload})
}

func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(id)
}

// payloadOf returns the payload of id from arena when id is an expression
// of kind.
func payloadOf[T any](e *Exprs, id ExprID, kind ExprKind, arena *Arena[PayloadID, T]) (*T, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != kind {
		return nil, false
	}
	return arena.Get(expr.Payload), true
}

func (e *Exprs) NewName(sp source.Span, name names.Name) ExprID {
	return e.new(ExprName, sp, e.Names.Add(NameData{Name: name}))
}

func (e *Exprs) NewLiteral(sp source.Span, kind LitKind, text string) ExprID {
	return e.new(ExprLiteral, sp, e.Literals.Add(LiteralData{Kind: kind, Text: text}))
}

func (e *Exprs) NewCall(sp source.Span, data CallData) ExprID {
	data.TypeArgs = append([]TypeRefID(nil), data.TypeArgs...)
	data.Args = append([]Arg(nil), data.Args...)
	return e.new(ExprCall, sp, e.Calls.Add(data))
}

func (e *Exprs) NewMember(sp source.Span, receiver ExprID, safe bool, name names.Name) ExprID {
	return e.new(ExprMember, sp, e.Members.Add(MemberData{Receiver: receiver, Safe: safe, Name: name}))
}

func (e *Exprs) NewBinary(sp source.Span, op BinaryOp, left, right ExprID) ExprID {
	return e.new(ExprBinary, sp, e.Binaries.Add(BinaryData{Op: op, Left: left, Right: right}))
}

func (e *Exprs) NewUnary(sp source.Span, op UnaryOp, operand ExprID) ExprID {
	return e.new(ExprUnary, sp, e.Unaries.Add(UnaryData{Op: op, Operand: operand}))
}

func (e *Exprs) NewIs(sp source.Span, value ExprID, typ TypeRefID, negated bool) ExprID {
	return e.new(ExprIs, sp, e.Is.Add(IsData{Value: value, Type: typ, Negated: negated}))
}

func (e *Exprs) NewAs(sp source.Span, value ExprID, typ TypeRefID, safe bool) ExprID {
	return e.new(ExprAs, sp, e.As.Add(AsData{Value: value, Type: typ, Safe: safe}))
}

func (e *Exprs) NewParen(sp source.Span, inner ExprID) ExprID {
	return e.new(ExprParen, sp, e.Parens.Add(ParenData{Inner: inner}))
}

func (e *Exprs) NewIf(sp source.Span, cond, then, els ExprID) ExprID {
	return e.new(ExprIf, sp, e.Ifs.Add(IfData{Cond: cond, Then: then, Else: els}))
}

func (e *Exprs) NewBlock(sp source.Span, stmts []StmtID) ExprID {
	return e.new(ExprBlock, sp, e.Blocks.Add(BlockData{Stmts: append([]StmtID(nil), stmts...)}))
}

func (e *Exprs) NewThis(sp source.Span) ExprID {
	return e.new(ExprThis, sp, 0)
}

func (e *Exprs) Name(id ExprID) (*NameData, bool) {
	return payloadOf(e, id, ExprName, e.Names)
}

func (e *Exprs) Literal(id ExprID) (*LiteralData, bool) {
	return payloadOf(e, id, ExprLiteral, e.Literals)
}

func (e *Exprs) Call(id ExprID) (*CallData, bool) {
	return payloadOf(e, id, ExprCall, e.Calls)
}

func (e *Exprs) Member(id ExprID) (*MemberData, bool) {
	return payloadOf(e, id, ExprMember, e.Members)
}

func (e *Exprs) Binary(id ExprID) (*BinaryData, bool) {
	return payloadOf(e, id, ExprBinary, e.Binaries)
}

func (e *Exprs) Unary(id ExprID) (*UnaryData, bool) {
	return payloadOf(e, id, ExprUnary, e.Unaries)
}

func (e *Exprs) IsCheck(id ExprID) (*IsData, bool) {
	return payloadOf(e, id, ExprIs, e.Is)
}

func (e *Exprs) Cast(id ExprID) (*AsData, bool) {
	return payloadOf(e, id, ExprAs, e.As)
}

func (e *Exprs) Paren(id ExprID) (*ParenData, bool) {
	return payloadOf(e, id, ExprParen, e.Parens)
}

func (e *Exprs) If(id ExprID) (*IfData, bool) {
	return payloadOf(e, id, ExprIf, e.Ifs)
}

func (e *Exprs) Block(id ExprID) (*BlockData, bool) {
	return payloadOf(e, id, ExprBlock, e.Blocks)
}
