package ast

import (
	"frontcore/internal/names"
	"frontcore/internal/source"
)

// Import is "import a.b.C", "import a.b.*" or "import a.b.C as D".
type Import struct {
	Span  source.Span
	Path  names.FqName
	Alias names.Name
	All   bool
}

type File struct {
	Span    source.Span
	Source  source.FileID
	Package names.FqName
	Imports []Import
	Decls   []DeclID
}

type Files struct {
	Arena *Arena[FileID, File]
}

func NewFiles(capHint uint) *Files {
	return &Files{Arena: NewArena[FileID, File](capHint)}
}

func (f *Files) New(src source.FileID, sp source.Span, pkg names.FqName) FileID {
	return f.Arena.Add(File{Span: sp, Source: src, Package: pkg})
}

func (f *Files) Get(id FileID) *File {
	return f.Arena.Get(id)
}
