package diag

import (
	"sync"

	"frontcore/internal/source"
)

// Reporter receives the diagnostics a phase emits.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// Pending is a diagnostic that collects notes until Emit hands it to its
// Reporter. A nil *Pending ignores every call.
type Pending struct {
	to   Reporter
	d    Diagnostic
	sent bool
}

// ReportError starts an error diagnostic for r.
func ReportError(r Reporter, code Code, primary source.Span, msg string) *Pending {
	return &Pending{to: r, d: New(SevError, code, primary, msg)}
}

// ReportWarning starts a warning diagnostic for r.
func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *Pending {
	return &Pending{to: r, d: New(SevWarning, code, primary, msg)}
}

func (p *Pending) WithNote(sp source.Span, msg string) *Pending {
	if p != nil {
		p.d = p.d.WithNote(sp, msg)
	}
	return p
}

// Emit reports the diagnostic; later calls do nothing.
func (p *Pending) Emit() {
	if p == nil || p.sent {
		return
	}
	p.sent = true
	if p.to != nil {
		p.to.Report(p.d.Code, p.d.Severity, p.d.Primary, p.d.Message, p.d.Notes)
	}
}

func (p *Pending) Diagnostic() Diagnostic {
	if p == nil {
		return Diagnostic{}
	}
	return p.d
}

// BagReporter adds to Bag; a nil Bag drops everything.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag != nil {
		r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes})
	}
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, source.Span, string, []Note) {}

// Once forwards a diagnostic to Next only the first time its code,
// severity, primary span and message are seen, so a pass that is re-run
// over memoized state adds nothing new.
type Once struct {
	Next Reporter

	mu   sync.Mutex
	seen map[onceKey]bool
}

type onceKey struct {
	code Code
	sev  Severity
	span source.Span
	msg  string
}

func (o *Once) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	key := onceKey{code: code, sev: sev, span: primary, msg: msg}
	o.mu.Lock()
	dup := o.seen[key]
	if !dup {
		if o.seen == nil {
			o.seen = make(map[onceKey]bool)
		}
		o.seen[key] = true
	}
	o.mu.Unlock()
	if !dup && o.Next != nil {
		o.Next.Report(code, sev, primary, msg, notes)
	}
}
