package resolve

import (
	"slices"
	"strings"

	"frontcore/internal/ast"
	"frontcore/internal/descriptors"
	"frontcore/internal/names"
)

// Declaration locates one source declaration.
type Declaration struct {
	File ast.FileID
	Decl ast.DeclID
}

// DeclarationProvider indexes source declarations by package and class.
type DeclarationProvider interface {
	// ClassDeclaration finds top-level and nested classes.
	ClassDeclaration(id names.ClassId) (Declaration, bool)
	// PackageDeclarations returns the top-level declarations of fq in
	// source order.
	PackageDeclarations(fq names.FqName) []Declaration
	Packages() []names.FqName
	// Files returns every file declaring fq.
	Files(fq names.FqName) []ast.FileID
}

// Library supplies descriptors that have no source, such as persisted
// metadata. Descriptors are created in the session module.
type Library interface {
	Packages() []names.FqName
	HasClass(id names.ClassId) bool
	// Classes returns the top-level classes of fq.
	Classes(fq names.FqName) []names.ClassId
	// LoadClass builds the top-level class id owned by pkg.
	LoadClass(pkg *descriptors.PackageDescriptor, id names.ClassId) (*descriptors.ClassDescriptor, error)
	// LoadMembers builds the top-level functions and properties of pkg.
	LoadMembers(pkg *descriptors.PackageDescriptor) ([]*descriptors.CallableDescriptor, error)
}

// SourceProvider indexes the files of an ast.Builder.
type SourceProvider struct {
	b        *ast.Builder
	packages []names.FqName
	files    map[names.FqName][]ast.FileID
	decls    map[names.FqName][]Declaration
	classes  map[names.ClassId]Declaration
}

// NewSourceProvider indexes every file of b. When two classes share a
// ClassId the first one wins; the session reports the redeclaration.
func NewSourceProvider(b *ast.Builder) *SourceProvider {
	p := &SourceProvider{
		b:       b,
		files:   make(map[names.FqName][]ast.FileID),
		decls:   make(map[names.FqName][]Declaration),
		classes: make(map[names.ClassId]Declaration),
	}
	for _, fid := range b.AllFiles() {
		f := b.Files.Get(fid)
		if _, ok := p.files[f.Package]; !ok {
			p.packages = append(p.packages, f.Package)
		}
		p.files[f.Package] = append(p.files[f.Package], fid)
		for _, did := range f.Decls {
			d := Declaration{File: fid, Decl: did}
			p.decls[f.Package] = append(p.decls[f.Package], d)
			if decl := b.Decls.Get(did); decl != nil && decl.Kind == ast.DeclClass {
				p.indexClass(b.Names.TopLevel(f.Package, decl.Name), d)
			}
		}
	}
	slices.SortFunc(p.packages, func(a, c names.FqName) int {
		return strings.Compare(b.Names.FqString(a), b.Names.FqString(c))
	})
	return p
}

func (p *SourceProvider) indexClass(id names.ClassId, d Declaration) {
	if _, dup := p.classes[id]; !dup {
		p.classes[id] = d
	}
	data, ok := p.b.Decls.Class(d.Decl)
	if !ok {
		return
	}
	nested := append(slices.Clone(data.Members), data.EnumEntries...)
	for _, m := range nested {
		if decl := p.b.Decls.Get(m); decl != nil && decl.Kind == ast.DeclClass {
			p.indexClass(p.b.Names.Nested(id, decl.Name), Declaration{File: d.File, Decl: m})
		}
	}
}

func (p *SourceProvider) ClassDeclaration(id names.ClassId) (Declaration, bool) {
	d, ok := p.classes[id]
	return d, ok
}

func (p *SourceProvider) PackageDeclarations(fq names.FqName) []Declaration { return p.decls[fq] }
func (p *SourceProvider) Packages() []names.FqName                          { return p.packages }
func (p *SourceProvider) Files(fq names.FqName) []ast.FileID                { return p.files[fq] }
