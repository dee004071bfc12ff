package names

import "strings"

// ClassId identifies a class across modules: its package, its path relative
// to the package (Outer.Inner) and whether it is local to a function body.
type ClassId struct {
	Package  FqName
	Relative FqName
	Local    bool
}

// NoClassId is the zero ClassId.
var NoClassId = ClassId{}

// TopLevel builds the ClassId of a top-level class.
func (t *Table) TopLevel(pkg FqName, name Name) ClassId {
	return ClassId{Package: pkg, Relative: t.Child(RootFqName, name)}
}

// ParseClassId accepts "pkg.sub/Outer.Inner"; without a slash the last
// segment is the class and the rest is the package.
func (t *Table) ParseClassId(s string) ClassId {
	if pkg, rel, ok := strings.Cut(s, "/"); ok {
		return ClassId{Package: t.ParseFq(pkg), Relative: t.ParseFq(rel)}
	}
	fq := t.ParseFq(s)
	return ClassId{Package: t.Parent(fq), Relative: t.Child(RootFqName, t.ShortName(fq))}
}

func (id ClassId) IsZero() bool { return id.Relative == RootFqName }

// Nested returns the ClassId of a class nested in id.
func (t *Table) Nested(id ClassId, name Name) ClassId {
	return ClassId{Package: id.Package, Relative: t.Child(id.Relative, name), Local: id.Local}
}

// Outer returns the enclosing class; ok is false for top-level classes.
func (t *Table) Outer(id ClassId) (ClassId, bool) {
	parent := t.Parent(id.Relative)
	if parent == RootFqName {
		return NoClassId, false
	}
	return ClassId{Package: id.Package, Relative: parent, Local: id.Local}, true
}

// IsNested reports whether id has an enclosing class.
func (t *Table) IsNested(id ClassId) bool {
	return t.Parent(id.Relative) != RootFqName
}

// ClassName returns the simple name of the class.
func (t *Table) ClassName(id ClassId) Name {
	return t.ShortName(id.Relative)
}

// AsFqName flattens id into one qualified name.
func (t *Table) AsFqName(id ClassId) FqName {
	return t.Join(id.Package, id.Relative)
}

// ClassString renders "pkg.sub/Outer.Inner".
func (t *Table) ClassString(id ClassId) string {
	return t.FqString(id.Package) + "/" + t.FqString(id.Relative)
}
