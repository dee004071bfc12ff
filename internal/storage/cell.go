package storage

type cellState uint8

const (
	stateNotComputed cellState = iota
	stateComputing
	stateComputed
	stateFailed
)

type valueOptions struct {
	retry bool
	name  string
}

// ValueOption configures a lazy value or memoized function.
type ValueOption func(*valueOptions)

// RetryOnError recomputes after a failure or a panic instead of caching it.
func RetryOnError() ValueOption {
	return func(o *valueOptions) { o.retry = true }
}

// Named labels the cell in errors and trace spans.
func Named(name string) ValueOption {
	return func(o *valueOptions) { o.name = name }
}

// cell is the shared state machine behind LazyValue and MemoizedFunc.
type cell[T any] struct {
	state cellState
	owner uint64
	value T
	err   error
}

// get must be called with the manager entered.
func (c *cell[T]) get(m *Manager, gid uint64, opts *valueOptions, label func() string, onRecursion func() (T, bool), compute func() (T, error)) (T, error) {
	switch c.state {
	case stateComputed:
		return c.value, nil
	case stateFailed:
		return c.value, &FailedError{Key: label(), Err: c.err}
	case stateComputing:
		if onRecursion != nil {
			if v, ok := onRecursion(); ok {
				return v, nil
			}
		}
		m.cycles.Add(1)
		var zero T
		return zero, &CycleError{Key: label()}
	}

	c.state = stateComputing
	c.owner = gid
	m.computations.Add(1)
	span := m.span(label)

	done := false
	defer func() {
		if done {
			return
		}
		r := recover()
		perr := &PanicError{Key: label(), Value: r}
		c.owner = 0
		if opts.retry {
			c.state = stateNotComputed
		} else {
			c.state = stateFailed
			c.err = perr
		}
		m.failures.Add(1)
		if span != nil {
			span.End("panic")
		}
		panic(perr)
	}()

	v, err := compute()
	done = true
	c.owner = 0
	if err != nil {
		m.failures.Add(1)
		if span != nil {
			span.End("failed")
		}
		if opts.retry {
			c.state = stateNotComputed
			return v, err
		}
		c.state = stateFailed
		c.err = err
		return v, err
	}
	c.state = stateComputed
	c.value = v
	if span != nil {
		span.End("")
	}
	return v, nil
}
