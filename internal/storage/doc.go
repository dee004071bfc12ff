// Package storage provides lazily computed values and memoized functions with
// at-most-once computation, cached failures and cycle detection.
//
// A Manager owns every cell created from it. In ModeSingleThreaded no locking
// happens and any re-entrant request for a cell that is still computing fails
// with a *CycleError. In ModeLocking every read and computation serializes on
// one re-entrant lock per manager: other goroutines block until the running
// computation completes and then observe the cached result, while re-entry from
// the computing goroutine itself is still reported as a cycle.
package storage
