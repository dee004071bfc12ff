package ast

import (
	"frontcore/internal/names"
	"frontcore/internal/source"
)

type DeclKind uint8

const (
	DeclClass DeclKind = iota + 1
	DeclFunction
	DeclProperty
)

func (k DeclKind) String() string {
	switch k {
	case DeclClass:
		return "class"
	case DeclFunction:
		return "function"
	case DeclProperty:
		return "property"
	}
	return "unknown"
}

// ClassKind distinguishes class-like declarations.
type ClassKind uint8

const (
	ClassPlain ClassKind = iota
	ClassInterface
	ClassEnum
	ClassEnumEntry
	ClassObject
	ClassAnnotation
)

// Annotation is a use of an annotation class with optional arguments.
type Annotation struct {
	Span source.Span
	Type TypeRefID
	Args []Arg
}

// TypeParam declares a type parameter.
type TypeParam struct {
	Span     source.Span
	Name     names.Name
	Variance Variance
	Reified  bool
	Bounds   []TypeRefID
}

// Param declares a value parameter.
type Param struct {
	Span        source.Span
	Name        names.Name
	Type        TypeRefID
	Default     ExprID
	Vararg      bool
	Annotations []Annotation
	// constructor parameters declared with val/var also declare a property
	Property bool
	Mutable  bool
}

// Decl is the common header of every declaration.
type Decl struct {
	Kind        DeclKind
	Span        source.Span
	Name        names.Name
	Visibility  Visibility
	Modality    Modality
	Annotations []Annotation
	Payload     PayloadID
}

// PrimaryCtor is the constructor declared in a class header.
type PrimaryCtor struct {
	Span       source.Span
	Visibility Visibility
	Params     []Param
}

type ClassData struct {
	Kind        ClassKind
	TypeParams  []TypeParam
	Supertypes  []TypeRefID
	Ctor        *PrimaryCtor // nil means the implicit default constructor
	Members     []DeclID
	Companion   bool // object declared as the class's companion
	Inner       bool
	EnumEntries []DeclID
}

type FunctionData struct {
	TypeParams []TypeParam
	Receiver   TypeRefID
	Params     []Param
	Return     TypeRefID // absent means Unit for block bodies, inferred for expression bodies
	Body       StmtID    // block body
	ExprBody   ExprID
	Operator   bool
}

// Accessor is a custom getter or setter.
type Accessor struct {
	Span       source.Span
	Visibility Visibility
	Body       ExprID
}

type PropertyData struct {
	TypeParams []TypeParam
	Receiver   TypeRefID
	Type       TypeRefID
	Mutable    bool
	Init       ExprID
	Getter     *Accessor
	Setter     *Accessor
}

// Decls manages allocation of declarations.
type Decls struct {
	Arena     *Arena[DeclID, Decl]
	Classes   *Arena[PayloadID, ClassData]
	Functions *Arena[PayloadID, FunctionData]
	Props     *Arena[PayloadID, PropertyData]
}

func NewDecls(capHint uint) *Decls {
	return &Decls{
		Arena:     NewArena[DeclID, Decl](capHint),
		Classes:   NewArena[PayloadID, ClassData](capHint),
		Functions: NewArena[PayloadID, FunctionData](capHint),
		Props:     NewArena[PayloadID, PropertyData](capHint),
	}
}

func (d *Decls) Get(id DeclID) *Decl {
	return d.Arena.Get(id)
}

func (d *Decls) NewClass(hdr Decl, data ClassData) DeclID {
	hdr.Kind = DeclClass
	hdr.Payload = d.Classes.Add(data)
	return d.Arena.Add(hdr)
}

func (d *Decls) Class(id DeclID) (*ClassData, bool) {
	decl := d.Get(id)
	if decl == nil || decl.Kind != DeclClass {
		return nil, false
	}
	return d.Classes.Get(decl.Payload), true
}

func (d *Decls) NewFunction(hdr Decl, data FunctionData) DeclID {
	hdr.Kind = DeclFunction
	hdr.Payload = d.Functions.Add(data)
	return d.Arena.Add(hdr)
}

func (d *Decls) Function(id DeclID) (*FunctionData, bool) {
	decl := d.Get(id)
	if decl == nil || decl.Kind != DeclFunction {
		return nil, false
	}
	return d.Functions.Get(decl.Payload), true
}

func (d *Decls) NewProperty(hdr Decl, data PropertyData) DeclID {
	hdr.Kind = DeclProperty
	hdr.Payload = d.Props.Add(data)
	return d.Arena.Add(hdr)
}

func (d *Decls) Property(id DeclID) (*PropertyData, bool) {
	decl := d.Get(id)
	if decl == nil || decl.Kind != DeclProperty {
		return nil, false
	}
	return d.Props.Get(decl.Payload), true
}
