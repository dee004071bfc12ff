package diag

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"

	"frontcore/internal/source"
)

func TestFormatShortOrdersAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("app/main.yaml", []byte("line one\nline two\n"))
	diags := []Diagnostic{
		NewError(TypMismatch, source.Span{File: id, Start: 9, End: 13}, "type   mismatch"),
		NewError(TypOverloadResolutionAmbiguity, source.Span{File: id, Start: 0, End: 4}, "ambiguous").
			WithNote(source.Span{File: id, Start: 5, End: 8}, "candidate"),
	}
	got := FormatShort(diags, fs, true)
	want := strings.Join([]string{
		"error TYP2005 app/main.yaml:1:1 ambiguous",
		"note TYP2005 app/main.yaml:1:6 candidate",
		"error TYP2001 app/main.yaml:2:1 type mismatch",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestOnceForwardsFirstReport(t *testing.T) {
	bag := NewBag(0)
	r := &Once{Next: BagReporter{Bag: bag}}
	sp := source.Span{File: 1, Start: 2, End: 3}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ReportError(r, ResCyclicInheritance, sp, "cycle").Emit()
		}()
	}
	wg.Wait()
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
	ReportWarning(r, ResCyclicInheritance, sp, "cycle").Emit()
	if bag.Len() != 2 {
		t.Fatalf("a different severity is a different diagnostic")
	}
}

func TestPendingEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	p := ReportError(BagReporter{Bag: bag}, TypMismatch, source.NoSpan, "mismatch").
		WithNote(source.NoSpan, "here")
	p.Emit()
	p.Emit()
	if bag.Len() != 1 || len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("unexpected bag: %+v", bag.Items())
	}
	var nilPending *Pending
	nilPending.WithNote(source.NoSpan, "x").Emit()
	if SevError.String() != "error" || Severity(7).String() != "unknown" {
		t.Fatalf("unexpected severity labels")
	}
}

func TestBagLimitAndSort(t *testing.T) {
	bag := NewBag(2)
	bag.Add(NewError(TypMismatch, source.Span{File: 1, Start: 5}, "b"))
	bag.Add(NewError(TypMismatch, source.Span{File: 1, Start: 1}, "a"))
	if bag.Add(NewError(TypMismatch, source.Span{File: 1}, "c")) {
		t.Fatalf("limit must reject third diagnostic")
	}
	bag.Sort()
	if items := bag.Items(); items[0].Message != "a" {
		t.Fatalf("sort failed: %+v", items)
	}
	if bag.Count(TypMismatch) != 2 || !bag.HasErrors() {
		t.Fatalf("unexpected counts")
	}
}

func TestPrettyWithoutColor(t *testing.T) {
	color.NoColor = true
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.yaml", []byte("call: f(1)\n"))
	var buf bytes.Buffer
	err := Pretty(&buf, []Diagnostic{NewError(TypNoneApplicable, source.Span{File: id, Start: 6, End: 10}, "none applicable")}, fs)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "error[TYP2004]: none applicable") || !strings.Contains(buf.String(), "| call: f(1)") {
		t.Fatalf("unexpected pretty output:\n%s", buf.String())
	}
}

func TestCodeIDs(t *testing.T) {
	if ResCyclicInheritance.ID() != "RES1002" || MetCorruptLibrary.ID() != "MET3001" {
		t.Fatalf("unexpected ids")
	}
	if Code(9999).Title() != "Unknown error" {
		t.Fatalf("unknown title")
	}
}
