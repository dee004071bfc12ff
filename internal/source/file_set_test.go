package source

import "testing"

func TestFileSetReservesZeroID(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.yaml", []byte("x"))
	if id == NoFileID {
		t.Fatalf("first file must not get NoFileID")
	}
	if fs.Get(NoFileID) != nil {
		t.Fatalf("NoFileID must not resolve")
	}
	if fs.Len() != 1 {
		t.Fatalf("expected 1 file, got %d", fs.Len())
	}
}

func TestResolveAndOffsetAgree(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.yaml", []byte("ab\ncde\n\nf"))
	f := fs.Get(id)

	cases := []LineCol{{1, 1}, {1, 2}, {2, 1}, {2, 3}, {4, 1}}
	for _, pos := range cases {
		off := f.Offset(pos)
		got, _ := fs.Resolve(Span{File: id, Start: off, End: off})
		if got != pos {
			t.Fatalf("round trip of %+v: offset %d resolved to %+v", pos, off, got)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("a.yaml", []byte("first\nsecond\nthird")))
	if got := f.GetLine(2); got != "second" {
		t.Fatalf("line 2 = %q", got)
	}
	if got := f.GetLine(3); got != "third" {
		t.Fatalf("line 3 = %q", got)
	}
	if got := f.GetLine(9); got != "" {
		t.Fatalf("line 9 = %q", got)
	}
}

func TestAddNormalizes(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("dir/../b.yaml", []byte("\xEF\xBB\xBFa\r\nb\rc"))
	f := fs.Get(id)
	if string(f.Content) != "a\nb\rc" {
		t.Fatalf("content = %q", f.Content)
	}
	if f.Flags != FileVirtual|FileHadBOM|FileNormalizedCRLF {
		t.Fatalf("flags = %b", f.Flags)
	}
	if got, ok := fs.Lookup("b.yaml"); !ok || got != id {
		t.Fatalf("lookup by clean path failed")
	}
	if pos := f.Position(2); pos != (LineCol{Line: 2, Col: 1}) {
		t.Fatalf("position of b = %+v", pos)
	}
}

func TestSpanContainsAndCover(t *testing.T) {
	outer := Span{File: 1, Start: 2, End: 10}
	if !outer.Contains(Span{File: 1, Start: 2, End: 10}) || outer.Contains(Span{File: 1, Start: 1, End: 3}) {
		t.Fatalf("unexpected containment")
	}
	if outer.Contains(Span{File: 2, Start: 3, End: 4}) {
		t.Fatalf("spans of another file are never contained")
	}
	if got := outer.Cover(Span{File: 1, Start: 8, End: 14}); got != (Span{File: 1, Start: 2, End: 14}) {
		t.Fatalf("cover = %v", got)
	}
	if got := outer.Cover(Span{File: 3, End: 40}); got != outer {
		t.Fatalf("cover across files = %v", got)
	}
}

func TestSpanLen(t *testing.T) {
	if got := (Span{File: 1, Start: 4, End: 9}).Len(); got != 5 {
		t.Fatalf("len = %d, want 5", got)
	}
	if got := (Span{File: 1, Start: 9, End: 4}).Len(); got != 0 {
		t.Fatalf("inverted span len = %d, want 0", got)
	}
}
