package storage

// LazyValue computes its value at most once.
type LazyValue[T any] struct {
	m           *Manager
	opts        valueOptions
	compute     func() (T, error)
	onRecursion func() (T, bool)
	c           cell[T]
}

// NewLazyValue creates a cell that runs compute on first Get.
func NewLazyValue[T any](m *Manager, compute func() (T, error), opts ...ValueOption) *LazyValue[T] {
	v := &LazyValue[T]{m: m, compute: compute}
	for _, opt := range opts {
		opt(&v.opts)
	}
	if v.opts.name == "" {
		v.opts.name = "lazy value"
	}
	return v
}

// NewRecursionTolerantLazyValue creates a cell that returns onRecursion
// instead of a *CycleError when it is requested during its own computation.
func NewRecursionTolerantLazyValue[T any](m *Manager, compute func() (T, error), onRecursion T, opts ...ValueOption) *LazyValue[T] {
	v := NewLazyValue(m, compute, opts...)
	v.onRecursion = func() (T, bool) { return onRecursion, true }
	return v
}

// Get returns the cached value, computing it on first access. After a failed
// computation every later call returns an error matching ErrAlreadyFailed.
func (v *LazyValue[T]) Get() (T, error) {
	gid := v.m.enter()
	defer v.m.leave()
	return v.c.get(v.m, gid, &v.opts, v.label, v.onRecursion, v.compute)
}

// MustGet panics on failure; for cells whose compute cannot fail.
func (v *LazyValue[T]) MustGet() T {
	val, err := v.Get()
	if err != nil {
		panic(err)
	}
	return val
}

// IsComputed reports whether a value is cached.
func (v *LazyValue[T]) IsComputed() bool {
	v.m.enter()
	defer v.m.leave()
	return v.c.state == stateComputed
}

func (v *LazyValue[T]) label() string {
	return v.opts.name
}
