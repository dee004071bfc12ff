package trace

import (
	"runtime"
	"sync/atomic"
	"time"
)

var seq, spanIDs atomic.Uint64

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// GoroutineID parses the id of the calling goroutine from its stack header
// "goroutine N [...". It returns 0 when the header is not recognized.
func GoroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	const header = "goroutine "
	if len(b) <= len(header) || string(b[:len(header)]) != header {
		return 0
	}
	var id uint64
	for _, c := range b[len(header):] {
		if c == ' ' {
			return id
		}
		if c < '0' || c > '9' {
			return 0
		}
		id = id*10 + uint64(c-'0')
	}
	return 0
}

// Span is an open begin event waiting for its end. The zero Span, and any
// span begun on a tracer that filtered it out, records nothing.
type Span struct {
	tracer Tracer
	begin  Event
	extra  map[string]string
}

func live(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}

// Begin opens a span under parent, which is 0 for a root.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !live(t, scope) {
		return &Span{}
	}
	sp := &Span{tracer: t, begin: Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   spanIDs.Add(1),
		ParentID: parent,
		GID:      GoroutineID(),
		Name:     name,
	}}
	ev := sp.begin
	t.Emit(&ev)
	return sp
}

// Point records an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if !live(t, scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		GID:      GoroutineID(),
		Name:     name,
		Detail:   detail,
	})
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	if s.extra == nil {
		s.extra = map[string]string{}
	}
	s.extra[key] = value
	return s
}

// End closes the span and returns how long it was open.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	ev := s.begin
	ev.Time = time.Now()
	ev.Seq = NextSeq()
	ev.Kind = KindSpanEnd
	ev.Detail = detail
	ev.Extra = s.extra
	s.tracer.Emit(&ev)
	return ev.Time.Sub(s.begin.Time)
}

// ID is the span id, or 0 for a span that records nothing.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.SpanID
}
