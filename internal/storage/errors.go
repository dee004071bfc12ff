package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrCyclicComputation matches every *CycleError.
	ErrCyclicComputation = errors.New("cyclic computation")
	// ErrAlreadyFailed matches errors returned by cells whose computation
	// failed on an earlier access.
	ErrAlreadyFailed = errors.New("computation already failed")
)

// CycleError reports that a cell was requested while its own computation was
// running on the same goroutine.
type CycleError struct {
	Key string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic computation of %s", e.Key)
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicComputation
}

// FailedError is returned on every access after a failed computation. It
// unwraps to the original failure.
type FailedError struct {
	Key string
	Err error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%s: computation already failed: %v", e.Key, e.Err)
}

func (e *FailedError) Is(target error) bool {
	return target == ErrAlreadyFailed
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// PanicError records a panic raised by a compute function.
type PanicError struct {
	Key   string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic during computation: %v", e.Key, e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
