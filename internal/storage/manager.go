package storage

import (
	"fmt"
	"sync/atomic"

	"frontcore/internal/trace"
)

// Mode selects the concurrency discipline of a Manager.
type Mode uint8

const (
	ModeSingleThreaded Mode = iota
	ModeLocking
)

func (m Mode) String() string {
	switch m {
	case ModeSingleThreaded:
		return "single"
	case ModeLocking:
		return "locking"
	}
	return "unknown"
}

// ParseMode converts "single" or "locking" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "single", "":
		return ModeSingleThreaded, nil
	case "locking":
		return ModeLocking, nil
	}
	return ModeSingleThreaded, fmt.Errorf("invalid storage mode %q (expected: single|locking)", s)
}

// Stats counts computations performed through a Manager.
type Stats struct {
	Computations int64
	Failures     int64
	Cycles       int64
}

// Manager creates and guards lazy cells.
type Manager struct {
	mode   Mode
	lock   *reentrantMutex
	tracer trace.Tracer

	computations atomic.Int64
	failures     atomic.Int64
	cycles       atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithTracer emits a ScopeNode span for every computation.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// NewManager constructs a Manager in the given mode.
func NewManager(mode Mode, opts ...Option) *Manager {
	m := &Manager{mode: mode, tracer: trace.Nop}
	if mode == ModeLocking {
		m.lock = newReentrantMutex()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Mode() Mode { return m.mode }

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Computations: m.computations.Load(),
		Failures:     m.failures.Load(),
		Cycles:       m.cycles.Load(),
	}
}

// enter acquires the manager lock in locking mode and returns the caller
// identity used for in-progress checks.
func (m *Manager) enter() uint64 {
	if m.lock == nil {
		return 0
	}
	gid := identity()
	m.lock.lock(gid)
	return gid
}

func (m *Manager) leave() {
	if m.lock != nil {
		m.lock.unlock()
	}
}

// Locked runs fn under the manager lock. Collections shared with cells must
// be touched this way in locking mode.
func (m *Manager) Locked(fn func()) {
	m.enter()
	defer m.leave()
	fn()
}

func (m *Manager) span(label func() string) *trace.Span {
	if !m.tracer.Enabled() || !m.tracer.Level().ShouldEmit(trace.ScopeNode) {
		return nil
	}
	return trace.Begin(m.tracer, trace.ScopeNode, "compute:"+label(), 0)
}
