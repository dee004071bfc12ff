package ast

import (
	"frontcore/internal/names"
	"frontcore/internal/source"
)

type TypeRefKind uint8

const (
	TypeRefNamed TypeRefKind = iota + 1
	TypeRefFunction
)

// TypeArg is a type argument of a named type reference.
type TypeArg struct {
	Variance Variance
	Type     TypeRefID
	Star     bool
}

// TypeRef is a type as written in source: "a.b.Box<out T>?" or "(Int) -> String".
type TypeRef struct {
	Kind     TypeRefKind
	Span     source.Span
	Nullable bool
	// Platform marks "T!", a type of unknown nullability.
	Platform bool
	// named
	Path []names.Name
	Args []TypeArg
	// function
	Receiver TypeRefID
	Params   []TypeRefID
	Return   TypeRefID
}

type TypeRefs struct {
	Arena *Arena[TypeRefID, TypeRef]
}

func NewTypeRefs(capHint uint) *TypeRefs {
	return &TypeRefs{Arena: NewArena[TypeRefID, TypeRef](capHint)}
}

func (t *TypeRefs) NewNamed(sp source.Span, path []names.Name, args []TypeArg, nullable bool) TypeRefID {
	return t.Arena.Add(TypeRef{
		Kind:     TypeRefNamed,
		Span:     sp,
		Path:     append([]names.Name(nil), path...),
		Args:     append([]TypeArg(nil), args...),
		Nullable: nullable,
	})
}

func (t *TypeRefs) NewFunction(sp source.Span, receiver TypeRefID, params []TypeRefID, ret TypeRefID, nullable bool) TypeRefID {
	return t.Arena.Add(TypeRef{
		Kind:     TypeRefFunction,
		Span:     sp,
		Receiver: receiver,
		Params:   append([]TypeRefID(nil), params...),
		Return:   ret,
		Nullable: nullable,
	})
}

func (t *TypeRefs) Get(id TypeRefID) *TypeRef {
	return t.Arena.Get(id)
}
