// Package binding is the write-once fact store produced by analysis: one
// value per (slice, key), read by backends and tooling.
package binding

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var nextSliceID atomic.Uint32

// Slice names one kind of fact keyed by K.
type Slice[K comparable, V any] struct {
	id    uint32
	name  string
	equal func(a, b V) bool
}

// NewSlice declares a slice whose values compare with ==.
func NewSlice[K comparable, V comparable](name string) *Slice[K, V] {
	return NewSliceFunc[K, V](name, func(a, b V) bool { return a == b })
}

// NewSliceFunc declares a slice with a custom equality used to tell a
// harmless repeated write from a rewrite.
func NewSliceFunc[K comparable, V any](name string, equal func(a, b V) bool) *Slice[K, V] {
	return &Slice[K, V]{id: nextSliceID.Add(1), name: name, equal: equal}
}

func (s *Slice[K, V]) Name() string { return s.name }

// RewriteError is the panic value raised when a key is written twice with
// different values.
type RewriteError struct {
	Slice string
	Key   any
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("binding: %s already recorded for %v", e.Slice, e.Key)
}

// Context is the read-only view of a Trace.
type Context interface {
	lookup(slice uint32, key any) (any, bool)
	keys(slice uint32) []any
}

type entry struct {
	value any
	equal func(a, b any) bool
	name  string
}

// Trace records facts. It is safe for concurrent use.
type Trace struct {
	mu     sync.RWMutex
	parent *Trace
	slices map[uint32]map[any]entry
	order  map[uint32][]any
}

func NewTrace() *Trace {
	return &Trace{
		slices: make(map[uint32]map[any]entry),
		order:  make(map[uint32][]any),
	}
}

// Temporary returns a trace that reads through to t and writes only to
// itself until Commit. Call resolution tries candidates in temporary traces.
func (t *Trace) Temporary() *Trace {
	tmp := NewTrace()
	tmp.parent = t
	return tmp
}

// Commit copies every fact of a temporary trace into its parent.
func (t *Trace) Commit() {
	if t.parent == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, keys := range t.order {
		m := t.slices[id]
		for _, k := range keys {
			e := m[k]
			t.parent.put(id, k, e)
		}
	}
}

func (t *Trace) put(id uint32, key any, e entry) {
	if old, ok := t.lookupEntry(id, key); ok {
		if !old.equal(old.value, e.value) {
			panic(&RewriteError{Slice: e.name, Key: key})
		}
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.slices[id]
	if m == nil {
		m = make(map[any]entry)
		t.slices[id] = m
	}
	if old, ok := m[key]; ok {
		if !old.equal(old.value, e.value) {
			panic(&RewriteError{Slice: e.name, Key: key})
		}
		return
	}
	m[key] = e
	t.order[id] = append(t.order[id], key)
}

func (t *Trace) lookupEntry(id uint32, key any) (entry, bool) {
	t.mu.RLock()
	e, ok := t.slices[id][key]
	t.mu.RUnlock()
	if ok {
		return e, true
	}
	if t.parent != nil {
		return t.parent.lookupEntry(id, key)
	}
	return entry{}, false
}

func (t *Trace) lookup(id uint32, key any) (any, bool) {
	e, ok := t.lookupEntry(id, key)
	return e.value, ok
}

func (t *Trace) keys(id uint32) []any {
	var out []any
	if t.parent != nil {
		out = t.parent.keys(id)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append(out, t.order[id]...)
}

// Record stores value under key. Writing an equal value again is a no-op;
// writing a different one panics with *RewriteError.
func Record[K comparable, V any](t *Trace, s *Slice[K, V], key K, value V) {
	t.put(s.id, key, entry{
		value: value,
		equal: func(a, b any) bool { return s.equal(a.(V), b.(V)) },
		name:  s.name,
	})
}

// Get returns the value recorded for key.
func Get[K comparable, V any](c Context, s *Slice[K, V], key K) (V, bool) {
	v, ok := c.lookup(s.id, key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Has reports whether key has a value in s.
func Has[K comparable, V any](c Context, s *Slice[K, V], key K) bool {
	_, ok := c.lookup(s.id, key)
	return ok
}

// Keys returns the keys of s in recording order.
func Keys[K comparable, V any](c Context, s *Slice[K, V]) []K {
	raw := c.keys(s.id)
	out := make([]K, len(raw))
	for i, k := range raw {
		out[i] = k.(K)
	}
	return out
}
