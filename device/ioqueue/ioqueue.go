// Package ioqueue implements the single-producer single-consumer byte
// channel that couples interrupt-driven input sources to a foreground
// reader. The channel is a 64-byte ring with one slot sacrificed to
// tell full from empty, guarded by a recursive lock and two waiter
// slots holding at most one suspended task each.
package ioqueue

import (
	"kestrel/kernel/debug"
	"kestrel/kernel/irq"
	"kestrel/kernel/sync"
	"kestrel/kernel/task"
)

// bufSize is the ring capacity in slots. One slot always stays empty so
// the effective capacity is bufSize-1 bytes.
const bufSize = 64

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	statusFn      = irq.Get
	currentTaskFn = task.Current
	blockFn       = task.Block
	unblockFn     = task.Unblock
	lockAcquireFn = (*sync.Lock).Acquire
	lockReleaseFn = (*sync.Lock).Release
)

// Queue is the ring buffer channel. head is the write index and tail
// the read index; head == tail means empty and head+1 == tail (mod
// bufSize) means full.
type Queue struct {
	lock sync.Lock

	// At most one task can be parked in each slot. Two producers or two
	// consumers sharing a queue would overwrite each other's slot; the
	// structure supports exactly one of each.
	producer *task.Task
	consumer *task.Task

	buf        [bufSize]byte
	head, tail int32
}

// Init prepares an empty queue.
func (q *Queue) Init() {
	q.lock.Init()
	q.producer, q.consumer = nil, nil
	q.head, q.tail = 0, 0
}

func nextPos(pos int32) int32 {
	return (pos + 1) % bufSize
}

// Full returns true if the ring has no room left. It must be called
// with interrupts disabled.
func (q *Queue) Full() bool {
	debug.Assert(statusFn() == irq.StatusOff, "ioqueue.Full: interrupts are enabled")
	return nextPos(q.head) == q.tail
}

// empty returns true if the ring holds no bytes. It must be called with
// interrupts disabled.
func (q *Queue) empty() bool {
	debug.Assert(statusFn() == irq.StatusOff, "ioqueue.empty: interrupts are enabled")
	return q.head == q.tail
}

// Len returns the number of buffered bytes.
func (q *Queue) Len() int32 {
	return (q.head - q.tail + bufSize) % bufSize
}

// wait parks the current task in the supplied waiter slot and blocks it
// until the peer on the other side of the ring wakes it.
func wait(waiter **task.Task) {
	debug.Assert(waiter != nil && *waiter == nil, "ioqueue.wait: waiter slot is occupied")
	*waiter = currentTaskFn()
	blockFn(task.Blocked)
}

// wakeup unblocks the task parked in the supplied waiter slot and
// clears the slot.
func wakeup(waiter **task.Task) {
	debug.Assert(*waiter != nil, "ioqueue.wakeup: waiter slot is empty")
	unblockFn(*waiter)
	*waiter = nil
}

// GetByte removes and returns the byte at the tail of the ring. While
// the ring is empty the calling task parks itself in the consumer slot
// and blocks; the condition is re-tested on every wakeup. If a producer
// is parked on a previously full ring it is woken up. GetByte must be
// called with interrupts disabled.
func (q *Queue) GetByte() byte {
	debug.Assert(statusFn() == irq.StatusOff, "ioqueue.GetByte: interrupts are enabled")

	for q.empty() {
		lockAcquireFn(&q.lock)
		wait(&q.consumer)
		lockReleaseFn(&q.lock)
	}

	b := q.buf[q.tail]
	q.tail = nextPos(q.tail)

	if q.producer != nil {
		wakeup(&q.producer)
	}

	return b
}

// PutByte appends a byte at the head of the ring. While the ring is
// full the calling task parks itself in the producer slot and blocks;
// the condition is re-tested on every wakeup. If a consumer is parked
// on a previously empty ring it is woken up. PutByte must be called
// with interrupts disabled.
func (q *Queue) PutByte(b byte) {
	debug.Assert(statusFn() == irq.StatusOff, "ioqueue.PutByte: interrupts are enabled")

	for q.Full() {
		lockAcquireFn(&q.lock)
		wait(&q.producer)
		lockReleaseFn(&q.lock)
	}

	q.buf[q.head] = b
	q.head = nextPos(q.head)

	if q.consumer != nil {
		wakeup(&q.consumer)
	}
}
