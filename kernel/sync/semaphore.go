// Package sync provides the blocking synchronization primitives built
// on top of the scheduler: counting semaphores with wait queues and a
// recursive mutual-exclusion lock.
package sync

import (
	"kestrel/kernel/debug"
	"kestrel/kernel/irq"
	"kestrel/kernel/list"
	"kestrel/kernel/task"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	irqDisableFn  = irq.Disable
	irqSetFn      = irq.Set
	currentTaskFn = task.Current
	blockFn       = task.Block
	unblockFn     = task.Unblock
)

// Semaphore is a counting semaphore whose waiters block on an intrusive
// wait queue instead of spinning.
type Semaphore struct {
	value   uint8
	waiters list.List
}

// Init sets the semaphore counter and empties the wait queue.
func (s *Semaphore) Init(value uint8) {
	s.value = value
	s.waiters.Init()
}

// Value returns the current semaphore counter.
func (s *Semaphore) Value() uint8 {
	return s.value
}

// Down decrements the semaphore, blocking the calling task on the wait
// queue while the counter is zero. The counter is re-checked on every
// wakeup: joining the head of the ready queue does not guarantee the
// resource is still available by the time the task runs again.
func (s *Semaphore) Down() {
	prev := irqDisableFn()

	for s.value == 0 {
		cur := currentTaskFn()
		debug.Assert(!s.waiters.Find(&cur.GeneralLink), "sync.Down: task is already on the wait queue")
		s.waiters.Append(&cur.GeneralLink)
		blockFn(task.Blocked)
	}

	s.value--
	debug.Assert(s.value == 0, "sync.Down: semaphore value must be 0 after down")

	irqSetFn(prev)
}

// Up increments the semaphore and wakes the task at the head of the
// wait queue if one exists. The woken task does not run immediately; it
// is pushed to the head of the ready queue and competes for the counter
// when scheduled.
func (s *Semaphore) Up() {
	prev := irqDisableFn()

	debug.Assert(s.value == 0, "sync.Up: semaphore value must be 0 before up")

	if !s.waiters.Empty() {
		unblockFn(task.FromGeneralLink(s.waiters.Pop()))
	}

	s.value++
	debug.Assert(s.value == 1, "sync.Up: semaphore value must be 1 after up")

	irqSetFn(prev)
}
