package trace

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLevelScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopePackage, false},
		{LevelDetail, ScopeDeclaration, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
		{LevelError, ScopeDriver, false},
		{LevelOff, ScopeDriver, false},
	}
	for _, c := range cases {
		if got := c.level.ShouldEmit(c.scope); got != c.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", c.level, c.scope, got, c.want)
		}
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if l, err := ParseLevel(" Detail "); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if m, err := ParseMode(""); err != nil || m != ModeStream {
		t.Fatalf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode(both) = %v, %v", m, err)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRingKeepsLastEvents(t *testing.T) {
	r := NewRing(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Begin(r, ScopePass, name, 0)
	}
	got := r.Snapshot()
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "> b\n") {
		t.Fatalf("unexpected dump: %q", buf.String())
	}
}

func TestSpanWithContextParent(t *testing.T) {
	r := NewRing(16, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	root := Begin(FromContext(ctx), ScopeDriver, "analyze", 0)
	ctx = WithSpan(ctx, root)
	child := Begin(FromContext(ctx), ScopePackage, "resolve:app", CurrentSpan(ctx))
	child.WithExtra("classes", "3").End("ok")
	root.End("")

	events := r.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].ParentID != root.ID() {
		t.Fatalf("child parent = %d, want %d", events[1].ParentID, root.ID())
	}
	end := events[2]
	if end.Kind != KindSpanEnd || end.SpanID != child.ID() || end.Extra["classes"] != "3" || end.Detail != "ok" {
		t.Fatalf("unexpected end event: %+v", end)
	}
}

func TestFilteredSpanIsInert(t *testing.T) {
	r := NewRing(4, LevelPhase)
	sp := Begin(r, ScopeNode, "call", 0)
	if sp.ID() != 0 || sp.WithExtra("k", "v").End("") != 0 {
		t.Fatalf("filtered span should record nothing")
	}
	if len(r.Snapshot()) != 0 {
		t.Fatalf("filtered span reached the ring")
	}
	if FromContext(context.Background()) != Nop || CurrentSpan(context.Background()) != 0 {
		t.Fatalf("empty context should give Nop and no span")
	}
}

func TestWriterFormats(t *testing.T) {
	var buf bytes.Buffer
	tr := NewWriter(&buf, LevelPhase, FormatNDJSON)
	Begin(tr, ScopePass, "resolve", 0).End("")
	Begin(tr, ScopeNode, "call", 0).End("")
	if buf.Len() != 0 {
		t.Fatalf("writer should buffer until flush")
	}
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"name":"resolve"`) || !strings.Contains(lines[1], `"kind":"end"`) {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestTextLine(t *testing.T) {
	ev := Event{Seq: 7, Kind: KindPoint, Scope: ScopeDriver, ParentID: 1, Name: "cache", Detail: "miss",
		Extra: map[string]string{"b": "2", "a": "1"}}
	got := string(ev.Append(nil, FormatText))
	want := "[     7] driver        * cache (miss) {a=1, b=2}\n"
	if got != want {
		t.Fatalf("text line\n got %q\nwant %q", got, want)
	}
}

func TestNewModes(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("off tracer must be a disabled Nop: %v", err)
	}
	tr, err = New(Config{Level: LevelPhase, Mode: ModeRing, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*Ring); !ok {
		t.Fatalf("ring mode gave %T", tr)
	}
	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopeDriver, "start", "", 0)
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "start") {
		t.Fatalf("both mode did not write the stream: %q", buf.String())
	}
	if _, err := New(Config{Level: LevelPhase, Mode: Mode(9)}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestHeartbeat(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("disabled tracer should not beat")
	}
	r := NewRing(8, LevelError)
	h := StartHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	got := r.Snapshot()
	if len(got) == 0 || got[0].Kind != KindHeartbeat || !strings.HasPrefix(got[0].Detail, "#") {
		t.Fatalf("unexpected heartbeat events: %+v", got)
	}
}

func TestGoroutineIDDistinct(t *testing.T) {
	main := GoroutineID()
	if main == 0 {
		t.Fatalf("goroutine id not parsed")
	}
	var other uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = GoroutineID()
	}()
	wg.Wait()
	if other == main || other == 0 {
		t.Fatalf("expected distinct ids, got %d and %d", main, other)
	}
}
