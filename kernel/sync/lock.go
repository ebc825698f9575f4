package sync

import (
	"kestrel/kernel/debug"
	"kestrel/kernel/task"
)

// Lock is a recursive mutual-exclusion lock built on a binary
// semaphore. Unlike the semaphore primitives, Acquire and Release do
// not run with interrupts globally disabled; only the embedded
// semaphore operations do. A Lock is the only primitive safe to hold
// around code that may block.
type Lock struct {
	owner     *task.Task
	sem       Semaphore
	recursion uint32
}

// Init prepares an unowned lock.
func (l *Lock) Init() {
	l.owner = nil
	l.recursion = 0
	l.sem.Init(1)
}

// Owner returns the task currently holding the lock, or nil.
func (l *Lock) Owner() *task.Task {
	return l.owner
}

// RecursionCount returns how many times the owner has acquired the
// lock without releasing it.
func (l *Lock) RecursionCount() uint32 {
	return l.recursion
}

// Acquire takes the lock, blocking on the embedded semaphore while
// another task holds it. Re-acquiring a lock already held by the
// calling task only bumps the recursion count.
func (l *Lock) Acquire() {
	if l.owner != currentTaskFn() {
		l.sem.Down()
		l.owner = currentTaskFn()
		debug.Assert(l.recursion == 0, "sync.Acquire: fresh lock has a recursion count")
		l.recursion = 1
		return
	}

	l.recursion++
}

// Release gives the lock up. Intermediate recursive releases only drop
// the count; the final release clears the owner before raising the
// semaphore. The order matters: Release does not run with interrupts
// disabled, and a preemption between the two steps must not let the
// next acquirer observe a stale owner.
func (l *Lock) Release() {
	debug.Assert(l.owner == currentTaskFn(), "sync.Release: lock is not held by the calling task")

	if l.recursion > 1 {
		l.recursion--
		return
	}

	debug.Assert(l.recursion == 1, "sync.Release: recursion count must be 1 on the final release")

	l.owner = nil
	l.recursion = 0
	l.sem.Up()
}
