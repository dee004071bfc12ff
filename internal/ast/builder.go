package ast

import (
	"slices"

	"frontcore/internal/names"
)

// Hints sizes the arenas of a Builder.
type Hints struct{ Files, Decls, TypeRefs, Exprs, Stmts uint }

// Builder owns every arena of one set of syntax trees. Producers (the YAML
// loader, tests) populate it; the resolver only reads.
type Builder struct {
	Names    *names.Table
	Files    *Files
	Decls    *Decls
	TypeRefs *TypeRefs
	Exprs    *Exprs
	Stmts    *Stmts
}

func NewBuilder(nt *names.Table, hints Hints) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 3
	}
	if hints.Decls == 0 {
		hints.Decls = 1 << 6
	}
	if hints.TypeRefs == 0 {
		hints.TypeRefs = 1 << 7
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 7
	}
	return &Builder{
		Names:    nt,
		Files:    NewFiles(hints.Files),
		Decls:    NewDecls(hints.Decls),
		TypeRefs: NewTypeRefs(hints.TypeRefs),
		Exprs:    NewExprs(hints.Exprs),
		Stmts:    NewStmts(hints.Stmts),
	}
}

// PushDecl appends decl to the top-level declarations of file.
func (b *Builder) PushDecl(file FileID, decl DeclID) {
	if f := b.Files.Get(file); f != nil {
		f.Decls = append(f.Decls, decl)
	}
}

// PushImport appends imp to file.
func (b *Builder) PushImport(file FileID, imp Import) {
	if f := b.Files.Get(file); f != nil {
		f.Imports = append(f.Imports, imp)
	}
}

// AllFiles returns the ids of every file in allocation order.
func (b *Builder) AllFiles() []FileID {
	return slices.Collect(b.Files.Arena.IDs())
}
