package names

import (
	"sync"
	"testing"
)

func TestInternIdentity(t *testing.T) {
	tab := NewTable()
	a := tab.Intern("foo")
	b := tab.Intern(string([]byte{'f', 'o', 'o'}))
	if a != b {
		t.Fatalf("equal strings interned to %d and %d", a, b)
	}
	if tab.Intern("bar") == a {
		t.Fatalf("different strings share a handle")
	}
	if tab.MustLookup(Init) != "<init>" || !tab.IsSpecial(Init) {
		t.Fatalf("special names not pre-interned")
	}
}

func TestInternNormalizesNFC(t *testing.T) {
	tab := NewTable()
	composed := tab.Intern("caf\u00e9")
	decomposed := tab.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("NFC-equivalent names differ: %d vs %d", composed, decomposed)
	}
}

func TestInternConcurrent(t *testing.T) {
	tab := NewTable()
	var wg sync.WaitGroup
	ids := make([]Name, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = tab.Intern("shared")
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("concurrent interning produced %v", ids)
		}
	}
}

func TestFqNames(t *testing.T) {
	tab := NewTable()
	fq := tab.ParseFq("app.core.util")
	if tab.FqString(fq) != "app.core.util" {
		t.Fatalf("round trip: %q", tab.FqString(fq))
	}
	if tab.ParseFq("app.core.util") != fq {
		t.Fatalf("qualified names must intern")
	}
	if tab.FqString(tab.Parent(fq)) != "app.core" {
		t.Fatalf("parent: %q", tab.FqString(tab.Parent(fq)))
	}
	if tab.MustLookup(tab.ShortName(fq)) != "util" {
		t.Fatalf("short name")
	}
	if tab.ParseFq("") != RootFqName || tab.Parent(RootFqName) != RootFqName {
		t.Fatalf("root handling")
	}
}

func TestClassIds(t *testing.T) {
	tab := NewTable()
	outer := tab.ParseClassId("app.core/Outer")
	inner := tab.Nested(outer, tab.Intern("Inner"))
	if tab.ClassString(inner) != "app.core/Outer.Inner" {
		t.Fatalf("got %q", tab.ClassString(inner))
	}
	if !tab.IsNested(inner) || tab.IsNested(outer) {
		t.Fatalf("nesting flags wrong")
	}
	got, ok := tab.Outer(inner)
	if !ok || got != outer {
		t.Fatalf("outer of inner = %v", got)
	}
	if tab.FqString(tab.AsFqName(inner)) != "app.core.Outer.Inner" {
		t.Fatalf("flat name %q", tab.FqString(tab.AsFqName(inner)))
	}
	if tab.ParseClassId("app.core.Outer") != outer {
		t.Fatalf("dotted form must agree with slash form")
	}
}

func TestNameTableRoundTrip(t *testing.T) {
	src := NewTable()
	b := NewNameTableBuilder(src)
	inner := src.Nested(src.ParseClassId("app.core/Outer"), src.Intern("Inner"))
	local := ClassId{Package: src.ParseFq("app"), Relative: src.ParseFq("Helper"), Local: true}
	innerIdx := b.ClassIndex(inner)
	localIdx := b.ClassIndex(local)
	pkgIdx := b.Qualified(src.ParseFq("app.core"), QualifiedPackage)
	strIdx := b.String("capability")
	if again := b.ClassIndex(inner); again != innerIdx {
		t.Fatalf("class index not stable: %d vs %d", again, innerIdx)
	}

	dst := NewTable()
	r := NewNameResolver(dst, b.Table())
	gotInner, err := r.ClassId(innerIdx)
	if err != nil {
		t.Fatal(err)
	}
	if dst.ClassString(gotInner) != "app.core/Outer.Inner" || gotInner.Local {
		t.Fatalf("inner resolved to %s", dst.ClassString(gotInner))
	}
	gotLocal, err := r.ClassId(localIdx)
	if err != nil || !gotLocal.Local {
		t.Fatalf("local class lost its flag: %v %v", gotLocal, err)
	}
	pkg, err := r.Qualified(pkgIdx)
	if err != nil || dst.FqString(pkg) != "app.core" {
		t.Fatalf("package resolved to %q (%v)", dst.FqString(pkg), err)
	}
	if _, err := r.ClassId(pkgIdx); err == nil {
		t.Fatalf("package index must not resolve as a class")
	}
	if s, _ := r.String(strIdx); s != "capability" {
		t.Fatalf("string %q", s)
	}
	if _, err := r.Simple(99); err == nil {
		t.Fatalf("out of range index must fail")
	}
}
