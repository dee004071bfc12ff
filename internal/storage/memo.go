package storage

import "fmt"

// MemoizedFunc caches compute results per key with LazyValue semantics.
type MemoizedFunc[K comparable, V any] struct {
	m       *Manager
	opts    valueOptions
	compute func(K) (V, error)
	cells   map[K]*cell[V]
}

// NewMemoizedFunc creates a function that computes each key at most once.
func NewMemoizedFunc[K comparable, V any](m *Manager, compute func(K) (V, error), opts ...ValueOption) *MemoizedFunc[K, V] {
	f := &MemoizedFunc[K, V]{
		m:       m,
		compute: compute,
		cells:   make(map[K]*cell[V]),
	}
	for _, opt := range opts {
		opt(&f.opts)
	}
	if f.opts.name == "" {
		f.opts.name = "memoized function"
	}
	return f
}

// Get returns the value for key, computing it on first access.
func (f *MemoizedFunc[K, V]) Get(key K) (V, error) {
	gid := f.m.enter()
	defer f.m.leave()
	c, ok := f.cells[key]
	if !ok {
		c = &cell[V]{}
		f.cells[key] = c
	}
	label := func() string { return fmt.Sprintf("%s(%v)", f.opts.name, key) }
	return c.get(f.m, gid, &f.opts, label, nil, func() (V, error) { return f.compute(key) })
}

// IsComputed reports whether key has a cached value.
func (f *MemoizedFunc[K, V]) IsComputed(key K) bool {
	f.m.enter()
	defer f.m.leave()
	c, ok := f.cells[key]
	return ok && c.state == stateComputed
}

// Len returns the number of keys with a cached value or failure.
func (f *MemoizedFunc[K, V]) Len() int {
	f.m.enter()
	defer f.m.leave()
	n := 0
	for _, c := range f.cells {
		if c.state == stateComputed || c.state == stateFailed {
			n++
		}
	}
	return n
}

// Keys returns every key whose computation finished, in no particular order.
func (f *MemoizedFunc[K, V]) Keys() []K {
	f.m.enter()
	defer f.m.leave()
	out := make([]K, 0, len(f.cells))
	for k, c := range f.cells {
		if c.state == stateComputed || c.state == stateFailed {
			out = append(out, k)
		}
	}
	return out
}
