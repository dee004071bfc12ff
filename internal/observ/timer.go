// Package observ measures the phases of an analysis run for --timings.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one measured span of work. Depth counts the phases that were
// open when it began.
type Phase struct {
	Name  string
	Depth int
	Start time.Time
	Dur   time.Duration
	Note  string
	Done  bool
}

// Timer records phases in the order they begin. It is safe for use by
// several goroutines; nesting follows Begin/End order.
type Timer struct {
	mu     sync.Mutex
	now    func() time.Time
	phases []Phase
	open   []int
}

func NewTimer() *Timer { return &Timer{now: time.Now} }

// Begin opens a phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Depth: len(t.open), Start: t.now()})
	idx := len(t.phases) - 1
	t.open = append(t.open, idx)
	return idx
}

// End closes the phase idx along with any phase opened after it and
// still running.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) || t.phases[idx].Done {
		return
	}
	now := t.now()
	for len(t.open) > 0 {
		top := t.open[len(t.open)-1]
		t.open = t.open[:len(t.open)-1]
		p := &t.phases[top]
		p.Dur = now.Sub(p.Start)
		p.Done = true
		if top == idx {
			p.Note = note
			return
		}
	}
}

// Track begins a phase and returns the function that ends it.
func (t *Timer) Track(name string) func(note string) {
	idx := t.Begin(name)
	return func(note string) { t.End(idx, note) }
}

// PhaseReport is the serializable form of a Phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	Depth      int     `json:"depth,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

type Report struct {
	// TotalMS sums the top-level phases.
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report lists finished phases; running ones are left out.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var r Report
	var total time.Duration
	for _, p := range t.phases {
		if !p.Done {
			continue
		}
		if p.Depth == 0 {
			total += p.Dur
		}
		r.Phases = append(r.Phases, PhaseReport{Name: p.Name, Depth: p.Depth, DurationMS: millis(p.Dur), Note: p.Note})
	}
	r.TotalMS = millis(total)
	return r
}

// Summary renders the report as an indented table.
func (t *Timer) Summary() string {
	r := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range r.Phases {
		name := strings.Repeat("  ", p.Depth) + p.Name
		fmt.Fprintf(&b, "  %-24s %9.2f ms", name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  (" + p.Note + ")")
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-24s %9.2f ms\n", "total", r.TotalMS)
	return b.String()
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
