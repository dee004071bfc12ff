package ast

import (
	"fmt"
	"iter"

	"fortio.org/safecast"
)

// Arena stores values under dense ids starting at 1, so the zero id of
// every kind stays invalid.
type Arena[ID ~uint32, T any] struct {
	data []T
}

func NewArena[ID ~uint32, T any](capHint uint) *Arena[ID, T] {
	return &Arena[ID, T]{data: make([]T, 0, capHint)}
}

// Add stores value and returns its id.
func (a *Arena[ID, T]) Add(value T) ID {
	a.data = append(a.data, value)
	n, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("arena overflow: %w", err))
	}
	return ID(n)
}

// Get returns the value of id, or nil for the zero id and unknown ids.
func (a *Arena[ID, T]) Get(id ID) *T {
	if id == 0 || int(id) > len(a.data) {
		return nil
	}
	return &a.data[id-1]
}

func (a *Arena[ID, T]) Len() int { return len(a.data) }

// IDs yields every id in allocation order.
func (a *Arena[ID, T]) IDs() iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for i := range a.data {
			if !yield(ID(i + 1)) {
				return
			}
		}
	}
}
