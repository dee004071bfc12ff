package names

import (
	"fmt"

	"fortio.org/safecast"
)

// QualifiedKind tags entries of a serialized NameTable.
type QualifiedKind uint8

const (
	QualifiedPackage QualifiedKind = iota
	QualifiedClass
	QualifiedLocal
)

// QualifiedEntry is one serialized qualified name. Parent is -1 for names
// directly below the root.
type QualifiedEntry struct {
	_msgpack struct{}      `msgpack:",as_array"`
	Parent   int32         `msgpack:"parent"`
	Short    int32         `msgpack:"short"`
	Kind     QualifiedKind `msgpack:"kind"`
}

// NameTable is the serialized form of every name a metadata message refers
// to. Indices are assigned in first-use order, so the same traversal always
// produces the same table.
type NameTable struct {
	_msgpack  struct{}         `msgpack:",as_array"`
	Simple    []string         `msgpack:"simple"`
	Qualified []QualifiedEntry `msgpack:"qualified"`
	Strings   []string         `msgpack:"strings"`
}

// NameTableBuilder assigns NameTable indices for a Table.
type NameTableBuilder struct {
	names   *Table
	out     NameTable
	simple  map[Name]int32
	qual    map[qualKey]int32
	strings map[string]int32
}

type qualKey struct {
	fq   FqName
	kind QualifiedKind
}

func NewNameTableBuilder(t *Table) *NameTableBuilder {
	return &NameTableBuilder{
		names:   t,
		simple:  make(map[Name]int32),
		qual:    make(map[qualKey]int32),
		strings: make(map[string]int32),
	}
}

// Simple returns the index of a simple name.
func (b *NameTableBuilder) Simple(n Name) int32 {
	if idx, ok := b.simple[n]; ok {
		return idx
	}
	idx := index(len(b.out.Simple))
	b.out.Simple = append(b.out.Simple, b.names.MustLookup(n))
	b.simple[n] = idx
	return idx
}

// Qualified returns the index of fq with the given kind; parents are
// interned first as packages.
func (b *NameTableBuilder) Qualified(fq FqName, kind QualifiedKind) int32 {
	if fq == RootFqName {
		return -1
	}
	key := qualKey{fq: fq, kind: kind}
	if idx, ok := b.qual[key]; ok {
		return idx
	}
	parent := b.Qualified(b.names.Parent(fq), QualifiedPackage)
	short := b.Simple(b.names.ShortName(fq))
	idx := index(len(b.out.Qualified))
	b.out.Qualified = append(b.out.Qualified, QualifiedEntry{Parent: parent, Short: short, Kind: kind})
	b.qual[key] = idx
	return idx
}

// ClassIndex interns a ClassId: package segments as packages, relative
// segments as classes.
func (b *NameTableBuilder) ClassIndex(id ClassId) int32 {
	kind := QualifiedClass
	if id.Local {
		kind = QualifiedLocal
	}
	idx := b.Qualified(id.Package, QualifiedPackage)
	flat := id.Package
	for _, seg := range b.names.Segments(id.Relative) {
		flat = b.names.Child(flat, seg)
		key := qualKey{fq: flat, kind: kind}
		if existing, ok := b.qual[key]; ok {
			idx = existing
			continue
		}
		next := index(len(b.out.Qualified))
		b.out.Qualified = append(b.out.Qualified, QualifiedEntry{Parent: idx, Short: b.Simple(seg), Kind: kind})
		b.qual[key] = next
		idx = next
	}
	return idx
}

// String returns the index of an arbitrary string (capability ids, constants).
func (b *NameTableBuilder) String(s string) int32 {
	if idx, ok := b.strings[s]; ok {
		return idx
	}
	idx := index(len(b.out.Strings))
	b.out.Strings = append(b.out.Strings, s)
	b.strings[s] = idx
	return idx
}

// Table returns the accumulated NameTable.
func (b *NameTableBuilder) Table() NameTable {
	return b.out
}

func index(n int) int32 {
	idx, err := safecast.Conv[int32](n)
	if err != nil {
		panic(fmt.Errorf("name table index overflow: %w", err))
	}
	return idx
}

// NameResolver reads a NameTable back into a Table.
type NameResolver struct {
	names *Table
	tab   NameTable
}

func NewNameResolver(t *Table, tab NameTable) *NameResolver {
	return &NameResolver{names: t, tab: tab}
}

// Simple resolves a simple-name index.
func (r *NameResolver) Simple(idx int32) (Name, error) {
	if idx < 0 || int(idx) >= len(r.tab.Simple) {
		return NoName, fmt.Errorf("simple name index %d out of range [0,%d)", idx, len(r.tab.Simple))
	}
	return r.names.Intern(r.tab.Simple[idx]), nil
}

// String resolves a string index.
func (r *NameResolver) String(idx int32) (string, error) {
	if idx < 0 || int(idx) >= len(r.tab.Strings) {
		return "", fmt.Errorf("string index %d out of range [0,%d)", idx, len(r.tab.Strings))
	}
	return r.tab.Strings[idx], nil
}

// Qualified resolves a qualified-name index into a flat FqName.
func (r *NameResolver) Qualified(idx int32) (FqName, error) {
	fq, _, err := r.split(idx, 0)
	if err != nil {
		return RootFqName, err
	}
	return fq, nil
}

// ClassId resolves a class index, splitting package and class segments.
func (r *NameResolver) ClassId(idx int32) (ClassId, error) {
	if idx < 0 || int(idx) >= len(r.tab.Qualified) {
		return NoClassId, fmt.Errorf("class index %d out of range [0,%d)", idx, len(r.tab.Qualified))
	}
	var rel []Name
	local := false
	cur := idx
	for cur >= 0 {
		e := r.tab.Qualified[cur]
		if e.Kind == QualifiedPackage {
			break
		}
		if e.Kind == QualifiedLocal {
			local = true
		}
		n, err := r.Simple(e.Short)
		if err != nil {
			return NoClassId, err
		}
		rel = append(rel, n)
		if e.Parent >= cur {
			return NoClassId, fmt.Errorf("qualified name %d has forward parent %d", cur, e.Parent)
		}
		cur = e.Parent
	}
	if len(rel) == 0 {
		return NoClassId, fmt.Errorf("qualified name %d is a package, not a class", idx)
	}
	pkg := RootFqName
	if cur >= 0 {
		var err error
		if pkg, err = r.Qualified(cur); err != nil {
			return NoClassId, err
		}
	}
	relFq := RootFqName
	for i := len(rel) - 1; i >= 0; i-- {
		relFq = r.names.Child(relFq, rel[i])
	}
	return ClassId{Package: pkg, Relative: relFq, Local: local}, nil
}

func (r *NameResolver) split(idx int32, depth int) (FqName, QualifiedKind, error) {
	if idx < 0 {
		return RootFqName, QualifiedPackage, nil
	}
	if int(idx) >= len(r.tab.Qualified) {
		return RootFqName, 0, fmt.Errorf("qualified name index %d out of range [0,%d)", idx, len(r.tab.Qualified))
	}
	if depth > len(r.tab.Qualified) {
		return RootFqName, 0, fmt.Errorf("qualified name %d has a parent cycle", idx)
	}
	e := r.tab.Qualified[idx]
	parent, _, err := r.split(e.Parent, depth+1)
	if err != nil {
		return RootFqName, 0, err
	}
	short, err := r.Simple(e.Short)
	if err != nil {
		return RootFqName, 0, err
	}
	return r.names.Child(parent, short), e.Kind, nil
}
