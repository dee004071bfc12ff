package names

import (
	"fmt"
	"strings"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// Name is an interned simple identifier.
type Name uint32

// FqName is an interned dot-separated qualified name.
type FqName uint32

const (
	NoName Name = 0
	// RootFqName is the empty qualified name (the root package).
	RootFqName FqName = 0
)

// Names interned by every Table at fixed handles.
const (
	Init Name = iota + 1
	Companion
	Invoke
	NoNameProvided
	Anonymous
)

var specialNames = []string{"", "<init>", "Companion", "invoke", "<no name provided>", "<anonymous>"}

type fqEntry struct {
	parent FqName
	short  Name
}

// Table owns every interned name of one analysis session. It is safe for
// concurrent use.
type Table struct {
	mu      sync.RWMutex
	names   []string
	nameIdx map[string]Name
	fqs     []fqEntry
	fqIdx   map[fqEntry]FqName
}

// NewTable returns a table with the special names pre-interned.
func NewTable() *Table {
	t := &Table{
		names:   make([]string, 0, 256),
		nameIdx: make(map[string]Name, 256),
		fqs:     []fqEntry{{}},
		fqIdx:   make(map[fqEntry]FqName, 64),
	}
	for _, s := range specialNames {
		t.internLocked(s)
	}
	return t
}

// Intern returns the handle of s, interning it on first use.
func (t *Table) Intern(s string) Name {
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	t.mu.RLock()
	id, ok := t.nameIdx[s]
	t.mu.RUnlock()
	if ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.internLocked(s)
}

func (t *Table) internLocked(s string) Name {
	if id, ok := t.nameIdx[s]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(t.names))
	if err != nil {
		panic(fmt.Errorf("name table overflow: %w", err))
	}
	cpy := strings.Clone(s)
	id := Name(n)
	t.names = append(t.names, cpy)
	t.nameIdx[cpy] = id
	return id
}

// Lookup returns the string for id.
func (t *Table) Lookup(id Name) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// MustLookup panics on an unknown handle.
func (t *Table) MustLookup(id Name) string {
	s, ok := t.Lookup(id)
	if !ok {
		panic(fmt.Errorf("names: invalid Name %d", id))
	}
	return s
}

// IsSpecial reports names like "<init>" that cannot be written in source.
func (t *Table) IsSpecial(id Name) bool {
	s, ok := t.Lookup(id)
	return ok && strings.HasPrefix(s, "<")
}

// Child returns the qualified name parent.short.
func (t *Table) Child(parent FqName, short Name) FqName {
	key := fqEntry{parent: parent, short: short}
	t.mu.RLock()
	id, ok := t.fqIdx[key]
	t.mu.RUnlock()
	if ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.fqIdx[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(t.fqs))
	if err != nil {
		panic(fmt.Errorf("qualified name table overflow: %w", err))
	}
	id = FqName(n)
	t.fqs = append(t.fqs, key)
	t.fqIdx[key] = id
	return id
}

// ParseFq interns a dot-separated path; "" yields RootFqName.
func (t *Table) ParseFq(path string) FqName {
	fq := RootFqName
	if path == "" {
		return fq
	}
	for _, seg := range strings.Split(path, ".") {
		fq = t.Child(fq, t.Intern(seg))
	}
	return fq
}

// Parent returns the enclosing qualified name; the root is its own parent.
func (t *Table) Parent(fq FqName) FqName {
	return t.entry(fq).parent
}

// ShortName returns the last segment, or NoName for the root.
func (t *Table) ShortName(fq FqName) Name {
	return t.entry(fq).short
}

// Segments returns the path from the root.
func (t *Table) Segments(fq FqName) []Name {
	var out []Name
	for fq != RootFqName {
		e := t.entry(fq)
		out = append(out, e.short)
		fq = e.parent
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Join appends every segment of rel to base.
func (t *Table) Join(base, rel FqName) FqName {
	for _, seg := range t.Segments(rel) {
		base = t.Child(base, seg)
	}
	return base
}

// FqString renders fq with dots.
func (t *Table) FqString(fq FqName) string {
	segs := t.Segments(fq)
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = t.MustLookup(s)
	}
	return strings.Join(parts, ".")
}

func (t *Table) entry(fq FqName) fqEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(fq) >= len(t.fqs) {
		panic(fmt.Errorf("names: invalid FqName %d", fq))
	}
	return t.fqs[fq]
}
