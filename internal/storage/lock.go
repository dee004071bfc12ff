package storage

import (
	"sync"

	"frontcore/internal/trace"
)

// reentrantMutex lets the owning goroutine re-acquire the lock; other
// goroutines wait until the owner has released every acquisition.
type reentrantMutex struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner uint64
	depth int
}

func newReentrantMutex() *reentrantMutex {
	m := &reentrantMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *reentrantMutex) lock(gid uint64) {
	m.mu.Lock()
	for m.depth > 0 && m.owner != gid {
		m.cond.Wait()
	}
	m.owner = gid
	m.depth++
	m.mu.Unlock()
}

func (m *reentrantMutex) unlock() {
	m.mu.Lock()
	m.depth--
	if m.depth == 0 {
		m.owner = 0
		m.cond.Broadcast()
	}
	m.mu.Unlock()
}

// identity returns the goroutine id used for lock ownership and cycle checks.
func identity() uint64 {
	return trace.GoroutineID()
}
